package modelapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/modelapi"
)

type created struct {
	modelapi.Model
	ID string `json:"id"`
}

func (created) StatusCode() int { return http.StatusCreated }

func (c created) SetHeaders(h http.Header) { h.Set("Location", "/things/"+c.ID) }

func (created) Cookies() []*http.Cookie {
	return []*http.Cookie{{Name: "last", Value: "created"}}
}

func TestResponse_union(t *testing.T) {
	t.Parallel()

	jobs := func(_ context.Context, req *struct {
		ID string `path:"id"`
	}) (Job, error) {
		if req.ID == "done" {
			return &Ready{State: "done"}, nil
		}
		return Pending{Progress: 40}, nil
	}

	r := modelapi.New()
	modelapi.Get(r, "/same/{id}", jobs, modelapi.Returns[Ready](), modelapi.Returns[Pending]())
	modelapi.Get(r, "/split/{id}", jobs,
		modelapi.Returns[Ready](http.StatusOK),
		modelapi.Returns[Pending](http.StatusAccepted),
	)

	tests := map[string]struct {
		target string
		status int
		body   string
	}{
		"same status ready":    {target: "/same/done", status: http.StatusOK, body: `{"state":"done"}`},
		"same status pending":  {target: "/same/x", status: http.StatusOK, body: `{"progress":40}`},
		"split status ready":   {target: "/split/done", status: http.StatusOK, body: `{"state":"done"}`},
		"split status pending": {target: "/split/x", status: http.StatusAccepted, body: `{"progress":40}`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, http.MethodGet, tc.target, nil)
			require.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestResponse_map_coercion(t *testing.T) {
	t.Parallel()

	logger, logs := newTestLogger()
	r := modelapi.New(modelapi.WithLogger(logger))
	modelapi.Get(r, "/good", func(_ context.Context, _ *modelapi.Void) (any, error) {
		return map[string]any{"title": "from map", "tags": []any{"x"}, "unknown": 1}, nil
	}, modelapi.Returns[Note](http.StatusCreated))
	modelapi.Get(r, "/bad", func(_ context.Context, _ *modelapi.Void) (any, error) {
		return map[string]any{"body": "no title"}, nil
	}, modelapi.Returns[Note]())

	t.Run("coerced into the model", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/good", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"title":"from map","tags":["x"]}`, rec.Body.String())
	})

	t.Run("invalid map is a server error", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/bad", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Field required")
		assert.Contains(t, logs.String(), "model error on api response serialization; endpoint: GET /bad")
		assert.Contains(t, logs.String(), "Field required")
	})
}

func TestResponse_kinds(t *testing.T) {
	t.Parallel()

	r := modelapi.New()
	modelapi.Get(r, "/text", func(_ context.Context, _ *modelapi.Void) (string, error) {
		return "hello", nil
	})
	modelapi.Get(r, "/bytes", func(_ context.Context, _ *modelapi.Void) ([]byte, error) {
		return []byte{0x1, 0x2}, nil
	})
	modelapi.Get(r, "/stream", func(_ context.Context, _ *modelapi.Void) (*modelapi.Stream, error) {
		return &modelapi.Stream{ContentType: "text/csv", Status: http.StatusPartialContent, Body: strings.NewReader("a,b\n")}, nil
	})
	modelapi.Delete(r, "/void", func(_ context.Context, _ *modelapi.Void) (*modelapi.Void, error) {
		return &modelapi.Void{}, nil
	})
	modelapi.Get(r, "/nil", func(_ context.Context, _ *modelapi.Void) (*Note, error) {
		return nil, nil //nolint:nilnil // empty result
	})
	modelapi.Post(r, "/things", func(_ context.Context, _ *modelapi.Void) (created, error) {
		return created{ID: "t1"}, nil
	})
	modelapi.Get(r, "/old", func(_ context.Context, _ *modelapi.Void) (*modelapi.Redirect, error) {
		return &modelapi.Redirect{URL: "/new", Status: http.StatusMovedPermanently}, nil
	})

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/text", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/bytes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, []byte{0x1, 0x2}, rec.Body.Bytes())
	})

	t.Run("stream", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/stream", nil)
		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, "a,b\n", rec.Body.String())
	})

	t.Run("void", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodDelete, "/void", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("nil model", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/nil", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("status, headers and cookies", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodPost, "/things", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/things/t1", rec.Header().Get("Location"))
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "last=created")
		assert.JSONEq(t, `{"id":"t1"}`, rec.Body.String())
	})

	t.Run("redirect", func(t *testing.T) {
		t.Parallel()
		rec := do(t, r, http.MethodGet, "/old", nil)
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "/new", rec.Header().Get("Location"))
	})
}

func TestResponse_handler_errors(t *testing.T) {
	t.Parallel()

	fail := func(err error) modelapi.Handler[modelapi.Void, *Note] {
		return func(_ context.Context, _ *modelapi.Void) (*Note, error) { return nil, err }
	}

	r := modelapi.New()
	modelapi.Get(r, "/missing", fail(modelapi.Errorf(http.StatusNotFound, "note %s not found", "n1")))
	modelapi.Get(r, "/internal", fail(errors.New("database password leaked")))
	modelapi.Get(r, "/unavailable", fail(modelapi.Error(http.StatusServiceUnavailable, "try later")))
	modelapi.Get(r, "/problem", fail(&modelapi.ProblemDetail{Type: "urn:conflict", Title: "Conflict", Status: http.StatusConflict}))

	tests := map[string]struct {
		target string
		status int
		detail string
		title  string
	}{
		"status error keeps detail":    {target: "/missing", status: http.StatusNotFound, detail: "note n1 not found", title: "Not Found"},
		"plain error hides detail":     {target: "/internal", status: http.StatusInternalServerError, title: "Internal Server Error"},
		"explicit 5xx keeps detail":    {target: "/unavailable", status: http.StatusServiceUnavailable, detail: "try later", title: "Service Unavailable"},
		"problem detail written as is": {target: "/problem", status: http.StatusConflict, title: "Conflict"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, r, http.MethodGet, tc.target, nil)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			pd := decode[modelapi.ProblemDetail](t, rec)
			assert.Equal(t, tc.status, pd.Status)
			assert.Equal(t, tc.detail, pd.Detail)
			assert.Equal(t, tc.title, pd.Title)
		})
	}
}

func TestResponse_custom_error_handler(t *testing.T) {
	t.Parallel()

	r := modelapi.New(modelapi.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(modelapi.ErrorStatus(err))
		_, _ = w.Write([]byte("custom: " + err.Error()))
	}))
	modelapi.Get(r, "/teapot", func(_ context.Context, _ *modelapi.Void) (string, error) {
		return "", modelapi.Error(http.StatusTeapot, "short and stout")
	})

	rec := do(t, r, http.MethodGet, "/teapot", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "custom: short and stout", rec.Body.String())
}
