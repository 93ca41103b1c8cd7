package modelapi

import (
	"html/template"
	"net/http"
)

// DocsOption configures the docs UI.
type DocsOption func(*docsConfig)

type docsConfig struct {
	title   string
	specURL string
}

// WithDocsTitle sets the page title for the docs UI.
func WithDocsTitle(title string) DocsOption {
	return func(c *docsConfig) {
		c.title = title
	}
}

// ServeDocs serves the OpenAPI document at prefix+"openapi.json" and a
// RapiDoc viewer for it at prefix, e.g. "/apidocs/".
func (r *Router) ServeDocs(prefix string, opts ...DocsOption) {
	cfg := &docsConfig{
		title:   r.title,
		specURL: prefix + "openapi.json",
	}
	if cfg.title == "" {
		cfg.title = "API Documentation"
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tmpl := template.Must(template.New("docs").Parse(docsHTML))

	r.ServeSpec(cfg.specURL)
	r.mux.handle(http.MethodGet, prefix, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		tmpl.Execute(w, cfg)
	}))
}

const docsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <script type="module" src="https://unpkg.com/rapidoc/dist/rapidoc-min.js"></script>
</head>
<body>
  <rapi-doc
    spec-url="{{.SpecURL}}"
    render-style="read"
    show-header="false"
    allow-try="true"
  ></rapi-doc>
</body>
</html>`

// Title returns the docs config title (used in the template).
func (c *docsConfig) Title() string { return c.title }

// SpecURL returns the docs config spec URL (used in the template).
func (c *docsConfig) SpecURL() string { return c.specURL }
