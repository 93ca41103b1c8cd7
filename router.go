package modelapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultFieldsName         = "fields"
	defaultMaxExpansionDepth  = 5
	defaultMaxMultipartMemory = 32 << 20
)

// Router is the central type that holds routes, middleware, and configuration.
// It implements http.Handler.
type Router struct {
	mux        routeMux
	middleware []Middleware
	routes     []*routeInfo

	title   string
	version string
	servers []Server

	validator    Validator
	errorHandler ErrorHandler
	logger       *slog.Logger

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry

	renderErrors       bool
	errorStatus        int
	fieldsName         string
	maxExpansion       int
	maxMultipartMemory int64

	specExtra map[string]any

	requestValidation bool
	validationOnce    sync.Once
	validationMW      Middleware

	mu sync.Mutex
}

// Server is an entry of the OpenAPI servers array.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) RouterOption {
	return func(r *Router) {
		r.servers = servers
	}
}

// WithValidator sets a global request validator, run after model binding.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// WithLogger sets the logger used for serialization and validation failures.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// WithRenderErrors makes validation failures answer with a problem
// document listing every error. When off, validation failures are logged
// and answered 500.
func WithRenderErrors(render bool) RouterOption {
	return func(r *Router) {
		r.renderErrors = render
	}
}

// WithErrorStatus sets the status of rendered validation failures.
func WithErrorStatus(status int) RouterOption {
	return func(r *Router) {
		r.errorStatus = status
	}
}

// WithFieldsName sets the request key holding the fieldset selection.
func WithFieldsName(name string) RouterOption {
	return func(r *Router) {
		r.fieldsName = name
	}
}

// WithMaxExpansionDepth limits the number of segments of a dotted fieldset path.
func WithMaxExpansionDepth(depth int) RouterOption {
	return func(r *Router) {
		r.maxExpansion = depth
	}
}

// WithMaxMultipartMemory sets the memory budget for parsing multipart bodies.
func WithMaxMultipartMemory(n int64) RouterOption {
	return func(r *Router) {
		r.maxMultipartMemory = n
	}
}

// WithChi routes requests with the given chi router instead of
// http.ServeMux. A nil router creates a new one.
func WithChi(router chi.Router) RouterOption {
	return func(r *Router) {
		r.mux = newChiMux(router)
	}
}

// WithSpecExtra merges value under key at the top level of the generated
// OpenAPI document.
func WithSpecExtra(key string, value any) RouterOption {
	return func(r *Router) {
		if r.specExtra == nil {
			r.specExtra = make(map[string]any)
		}
		r.specExtra[key] = value
	}
}

// WithRequestValidation validates every typed request against the
// generated OpenAPI document before binding.
func WithRequestValidation() RouterOption {
	return func(r *Router) {
		r.requestValidation = true
	}
}

// WithConfig applies a loaded Config.
func WithConfig(cfg Config) RouterOption {
	return func(r *Router) {
		r.title = cfg.Title
		r.version = cfg.Version
		r.renderErrors = cfg.RenderErrors
		r.errorStatus = cfg.ErrorStatus
		r.fieldsName = cfg.FieldsName
		r.maxExpansion = cfg.MaxExpansionDepth
		r.maxMultipartMemory = cfg.MaxMultipartMemory
		if len(cfg.Servers) > 0 {
			r.servers = make([]Server, len(cfg.Servers))
			for i, u := range cfg.Servers {
				r.servers[i] = Server{URL: u}
			}
		}
	}
}

// New creates a new Router with the given options.
func New(opts ...RouterOption) *Router {
	r := &Router{}
	for _, opt := range opts {
		opt(r)
	}

	if r.mux == nil {
		r.mux = newStdMux()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.errorStatus == 0 {
		r.errorStatus = http.StatusBadRequest
	}
	if r.fieldsName == "" {
		r.fieldsName = defaultFieldsName
	}
	if r.maxExpansion <= 0 {
		r.maxExpansion = defaultMaxExpansionDepth
	}
	if r.maxMultipartMemory <= 0 {
		r.maxMultipartMemory = defaultMaxMultipartMemory
	}
	r.codecs = newCodecRegistry(r.encoders, r.decoders)

	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	r.logger.InfoContext(ctx, "listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// RouteSummary describes a registered route.
type RouteSummary struct {
	Method  string
	Pattern string
	Summary string
	Hidden  bool
}

// Routes lists the registered routes in registration order.
func (r *Router) Routes() []RouteSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RouteSummary, len(r.routes))
	for i, ri := range r.routes {
		out[i] = RouteSummary{Method: ri.method, Pattern: ri.pattern, Summary: ri.summary, Hidden: ri.hidden}
	}
	return out
}

// addRoute registers a routeInfo with the router's mux and stores it
// for OpenAPI generation. Global middleware is applied in ServeHTTP;
// only group middleware is baked into ri.handler.
func (r *Router) addRoute(ri *routeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, pattern := ri.handler, ri.pattern
	r.mux.handle(ri.method, ri.pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		markRoute(req, pattern)
		h.ServeHTTP(w, req)
	}))
	r.routes = append(r.routes, ri)
}

func (r *Router) base() *Router { return r }

func (r *Router) routePrefix() string { return "" }

func (r *Router) routeTags() []string { return nil }

func (r *Router) routeMiddleware() []Middleware { return nil }
