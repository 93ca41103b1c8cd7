package modelapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/modelapi"
)

func newSpecRouter() *modelapi.Router {
	r := modelapi.New(modelapi.WithTitle("Serve Test"), modelapi.WithVersion("1.0.0"))
	modelapi.Post(r, "/notes", echoNote)
	return r
}

func TestServeSpec(t *testing.T) {
	t.Parallel()

	r := newSpecRouter()
	r.ServeSpec("/openapi.json")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, body := get(t, srv.URL+"/openapi.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Contains(t, doc["paths"], "/notes")
	assert.NotContains(t, doc["paths"], "/openapi.json")
}

func TestServeSpecYAML(t *testing.T) {
	t.Parallel()

	r := newSpecRouter()
	r.ServeSpecYAML("/openapi.yaml")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, body := get(t, srv.URL+"/openapi.yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &parsed))
	assert.Equal(t, "3.1.0", parsed["openapi"])

	info, ok := parsed["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Serve Test", info["title"])
}

func TestWriteSpec(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, newSpecRouter().WriteSpec(&buf))
	assert.Contains(t, buf.String(), "\n  \"info\"")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Serve Test", doc["info"].(map[string]any)["title"])
}

func TestWriteSpecYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, newSpecRouter().WriteSpecYAML(&buf))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))
	components, ok := parsed["components"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, components["schemas"], "Note")
}
