package modelapi

import (
	"io"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/bjaus/modelapi/internal/jsonutil"
)

// ServeSpec registers a GET handler at the given path that serves
// the OpenAPI spec as JSON. The handler is not part of the spec.
func (r *Router) ServeSpec(pattern string) {
	r.mux.handle(http.MethodGet, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		data, err := jsonutil.Marshal(r.Spec())
		if err != nil {
			r.logger.ErrorContext(req.Context(), "openapi spec serialization failed", "error", err)
			writeErrorResponse(w, req, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		w.Write(data)
	}))
}

// ServeSpecYAML registers a GET handler at the given path that serves
// the OpenAPI spec as YAML.
func (r *Router) ServeSpecYAML(pattern string) {
	r.mux.handle(http.MethodGet, pattern, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		r.WriteSpecYAML(w)
	}))
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	return jsonutil.EncodeIndent(w, r.Spec(), "  ")
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Spec()); err != nil {
		return err
	}
	return enc.Close()
}
