package modelapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// routeMux is the routing table behind a Router. Patterns use {name}
// placeholders and an optional trailing {name...} wildcard.
type routeMux interface {
	http.Handler
	handle(method, pattern string, h http.Handler)
	pathValue(r *http.Request, name string) string
}

// stdMux routes with the standard library's http.ServeMux.
type stdMux struct {
	mux *http.ServeMux
}

func newStdMux() *stdMux {
	return &stdMux{mux: http.NewServeMux()}
}

func (m *stdMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *stdMux) handle(method, pattern string, h http.Handler) {
	m.mux.Handle(method+" "+pattern, h)
}

func (m *stdMux) pathValue(r *http.Request, name string) string {
	return r.PathValue(name)
}

// chiMux routes with a chi.Router. Wildcards are rewritten to chi's
// catch-all and remembered by name.
type chiMux struct {
	router chi.Router

	mu        sync.RWMutex
	wildcards map[string]bool
}

func newChiMux(router chi.Router) *chiMux {
	if router == nil {
		router = chi.NewRouter()
	}
	return &chiMux{router: router, wildcards: make(map[string]bool)}
}

func (m *chiMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

func (m *chiMux) handle(method, pattern string, h http.Handler) {
	pattern = placeholderRE.ReplaceAllStringFunc(pattern, func(seg string) string {
		name, wildcard := strings.CutSuffix(strings.Trim(seg, "{}"), "...")
		if !wildcard {
			return seg
		}
		m.mu.Lock()
		m.wildcards[name] = true
		m.mu.Unlock()
		return "*"
	})
	m.router.Method(method, pattern, h)
}

func (m *chiMux) pathValue(r *http.Request, name string) string {
	if v := chi.URLParam(r, name); v != "" {
		return v
	}
	m.mu.RLock()
	wildcard := m.wildcards[name]
	m.mu.RUnlock()
	if wildcard {
		return chi.URLParam(r, "*")
	}
	return ""
}
