package modelapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapiMW "github.com/oapi-codegen/nethttp-middleware"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

// Document returns the generated spec loaded and validated by kin-openapi.
func (r *Router) Document(ctx context.Context) (*openapi3.T, error) {
	data, err := jsonutil.Marshal(r.Spec())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	return doc, nil
}

// validateRequests wraps a typed route with request validation against the
// generated document. The validator is built on first use, once every
// route is registered.
func (r *Router) validateRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.validationOnce.Do(func() {
			r.validationMW = r.buildRequestValidator(req.Context())
		})
		r.validationMW(next).ServeHTTP(w, req)
	})
}

func (r *Router) buildRequestValidator(ctx context.Context) Middleware {
	doc, err := r.Document(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.ErrorContext(ctx, "request validation disabled", slog.Any("error", err))
		return func(next http.Handler) http.Handler { return next }
	}

	// Servers are not known at runtime; skip host matching.
	doc.Servers = nil

	return oapiMW.OapiRequestValidatorWithOptions(doc, &oapiMW.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			writeProblem(w, nil, &ProblemDetail{
				Type:   "about:blank",
				Title:  http.StatusText(statusCode),
				Status: statusCode,
				Detail: message,
			})
		},
	})
}
