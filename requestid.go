package modelapi

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

// DefaultRequestIDHeader carries request ids unless RequestIDConfig names another header.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: DefaultRequestIDHeader
	Generator func() string // default: a new ULID
}

// RequestID returns middleware that tags each request with an id, reusing
// the caller's header value when present. The id is echoed in the
// response header, stored in the context and stamped on problem
// responses as traceId.
func RequestID(cfg ...RequestIDConfig) Middleware {
	header, generate := DefaultRequestIDHeader, newULID
	for _, c := range cfg {
		if c.Header != "" {
			header = c.Header
		}
		if c.Generator != nil {
			generate = c.Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if id == "" {
				id = generate()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
		})
	}
}

// ContextWithRequestID returns a copy of ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request id of r, or "".
func GetRequestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func newULID() string {
	return ulid.Make().String()
}
