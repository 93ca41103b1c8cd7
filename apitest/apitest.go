// Package apitest provides typed test helpers for modelapi routers.
package apitest

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bjaus/modelapi"
	"github.com/bjaus/modelapi/internal/jsonutil"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server

	// Header is sent with every request.
	Header http.Header
}

// NewClient starts a test server for r, closed when the test ends.
func NewClient(t testing.TB, r *modelapi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &Client{Server: srv, Header: make(http.Header)}
}

// Response holds a decoded API response. Problem is set instead of Body
// when the server answered with a problem document.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Problem *modelapi.ProblemDetail
	Raw     []byte
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// Get sends a GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return send[Resp](t, c, http.MethodGet, path, nil, "")
}

// GetQuery sends a GET request with query arguments.
func GetQuery[Resp any](t testing.TB, c *Client, path string, query url.Values) *Response[Resp] {
	t.Helper()
	return send[Resp](t, c, http.MethodGet, path+"?"+query.Encode(), nil, "")
}

// Post sends a POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return sendJSON[Resp](t, c, http.MethodPost, path, body)
}

// Put sends a PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return sendJSON[Resp](t, c, http.MethodPut, path, body)
}

// Patch sends a PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return sendJSON[Resp](t, c, http.MethodPatch, path, body)
}

// Delete sends a DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return send[Resp](t, c, http.MethodDelete, path, nil, "")
}

// PostMultipart sends a multipart/form-data POST with form values and files.
func PostMultipart[Resp any](t testing.TB, c *Client, path string, form url.Values, files ...File) *Response[Resp] {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range form {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatalf("apitest: write field %s: %v", key, err)
			}
		}
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.Field + `"; filename="` + f.Name + `"`}
		if f.ContentType != "" {
			h["Content-Type"] = []string{f.ContentType}
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("apitest: create part %s: %v", f.Field, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("apitest: write part %s: %v", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("apitest: close multipart writer: %v", err)
	}

	return send[Resp](t, c, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func sendJSON[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	b, err := jsonutil.Marshal(body)
	if err != nil {
		t.Fatalf("apitest: marshal request body: %v", err)
	}
	return send[Resp](t, c, method, path, bytes.NewReader(b), "application/json")
}

func send[Resp any](t testing.TB, c *Client, method, path string, body io.Reader, contentType string) *Response[Resp] {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, body)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	for k, v := range c.Header {
		req.Header[k] = v
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     raw,
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result
	}

	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/problem+json"):
		var pd modelapi.ProblemDetail
		if err := jsonutil.Decode(bytes.NewReader(raw), &pd); err != nil {
			t.Fatalf("apitest: decode problem: %v", err)
		}
		result.Problem = &pd
	case strings.HasPrefix(ct, "application/json"):
		var decoded Resp
		if err := jsonutil.Decode(bytes.NewReader(raw), &decoded); err != nil {
			t.Fatalf("apitest: decode response: %v", err)
		}
		result.Body = &decoded
	}

	return result
}
