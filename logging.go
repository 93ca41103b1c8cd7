package modelapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusWriter records the status and byte count written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.size += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

type routeSlotKey struct{}

// routeSlot receives the pattern of the route that served a request, so
// middleware running outside the mux can report it for any backend.
type routeSlot struct {
	pattern string
}

func withRouteSlot(r *http.Request) (*http.Request, *routeSlot) {
	slot := &routeSlot{}
	return r.WithContext(context.WithValue(r.Context(), routeSlotKey{}, slot)), slot
}

// markRoute records pattern in the request's route slot, if any.
func markRoute(r *http.Request, pattern string) {
	if slot, ok := r.Context().Value(routeSlotKey{}).(*routeSlot); ok {
		slot.pattern = pattern
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logger returns middleware that logs one line per request. Client errors
// log at warn and server errors at error level.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			req, slot := withRouteSlot(r)

			next.ServeHTTP(sw, req)

			attrs := make([]slog.Attr, 0, 8)
			attrs = append(attrs,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("latency", time.Since(start)),
				slog.Int("size", sw.size),
				slog.String("remote", r.RemoteAddr),
			)
			if slot.pattern != "" {
				attrs = append(attrs, slog.String("route", slot.pattern))
			}
			if id := GetRequestID(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			logger.LogAttrs(r.Context(), levelFor(sw.status), "request", attrs...)
		})
	}
}
