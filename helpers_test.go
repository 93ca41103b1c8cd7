package modelapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/modelapi"
)

// Shared models.

type Note struct {
	modelapi.Model
	ID    string   `json:"id,omitempty"`
	Title string   `json:"title" minLength:"1" maxLength:"50"`
	Body  string   `json:"body,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

type NoteQuery struct {
	modelapi.Model
	Search string   `json:"search,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Limit  int      `json:"limit" default:"10" maximum:"100"`
}

type ErrorModel struct {
	modelapi.Model
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type Ready struct {
	modelapi.Model
	State string `json:"state"`
}

func (Ready) isJob() {}

type Pending struct {
	modelapi.Model
	Progress int `json:"progress"`
}

func (Pending) isJob() {}

type Job interface{ isJob() }

// Helpers.

// do serves a request through h and returns the recorded response.
func do(t testing.TB, h http.Handler, method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers come in key/value pairs")

	req := httptest.NewRequestWithContext(context.Background(), method, target, body)
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// doJSON sends a JSON body.
func doJSON(t testing.TB, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, method, target, strings.NewReader(body), append([]string{"Content-Type", "application/json"}, headers...)...)
}

func decode[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}
