package modelapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
)

// Registrar is the interface accepted by the registration functions.
// Both *Router and *Group implement it.
type Registrar interface {
	base() *Router
	routePrefix() string
	routeTags() []string
	routeMiddleware() []Middleware
}

// register is the internal generic registration function. It panics when
// the handler's types cannot be mapped to models.
func register[Req, Resp any](reg Registrar, method, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	r := reg.base()

	ri := &routeInfo{
		method:   method,
		pattern:  reg.routePrefix() + pattern,
		tags:     reg.routeTags(),
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
	}

	for _, opt := range opts {
		opt(ri)
	}

	// Void response → 204, otherwise 200.
	if ri.status == 0 {
		if derefType(ri.respType) == voidType {
			ri.status = http.StatusNoContent
		} else {
			ri.status = http.StatusOK
		}
	}
	if ri.fieldsName == "" {
		ri.fieldsName = r.fieldsName
	}
	if ri.maxExpansion <= 0 {
		ri.maxExpansion = r.maxExpansion
	}

	mi, err := inferModels(ri.reqType, ri.respType, ri)
	if err != nil {
		panic(fmt.Errorf("modelapi: %s %s: %w", method, ri.pattern, err))
	}
	ri.models = mi

	ri.handler = buildHandler(&dispatcher{router: r, route: ri}, h)

	if r.requestValidation {
		ri.handler = r.validateRequests(ri.handler)
	}
	if ri.bodyLimit > 0 {
		ri.handler = BodyLimit(ri.bodyLimit)(ri.handler)
	}
	if ri.rateLimit != nil {
		ri.handler = RateLimit(*ri.rateLimit)(ri.handler)
	}

	// Apply route-level middleware (from Group).
	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	r.addRoute(ri)
}

// dispatcher carries what a typed route needs at request time.
type dispatcher struct {
	router *Router
	route  *routeInfo
}

// buildHandler wraps a typed Handler into an http.Handler.
func buildHandler[Req, Resp any](d *dispatcher, h Handler[Req, Resp]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, fields, err := decodeRequest[Req](d, r)
		if err != nil {
			d.fail(w, r, err)
			return
		}

		// Models validate themselves during binding; containers here.
		if !d.route.models.reqIsModel {
			if sv, ok := any(req).(SelfValidator); ok {
				if err := sv.Validate(); err != nil {
					d.fail(w, r, asValidationErrors(err))
					return
				}
			}
		}

		if v := d.router.validator; v != nil {
			if err := v.Validate(req); err != nil {
				d.fail(w, r, asValidationErrors(err))
				return
			}
		}

		resp, err := h(r.Context(), req)
		if err != nil {
			d.writeError(w, r, err)
			return
		}

		d.writeResult(w, r, any(resp), fields)
	})
}

// fail answers a request that could not be bound or validated.
func (d *dispatcher) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tooLarge *http.MaxBytesError
		verrs    ValidationErrors
	)

	switch {
	case errors.As(err, &tooLarge):
		d.writeError(w, r, Error(http.StatusRequestEntityTooLarge, "request body too large"))

	case errors.As(err, &verrs):
		if d.router.renderErrors {
			d.writeError(w, r, &ProblemDetail{
				Type:   "about:blank",
				Title:  "Validation Failed",
				Status: d.router.errorStatus,
				Detail: fmt.Sprintf("%d validation error(s)", len(verrs)),
				Errors: verrs,
			})
			return
		}
		d.logError(r, "request validation failed", slog.Any("errors", []ValidationError(verrs)))
		d.writeError(w, r, Error(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)))

	case isBindError(err):
		d.writeError(w, r, Error(http.StatusBadRequest, err.Error()))

	default:
		d.writeError(w, r, err)
	}
}

func (d *dispatcher) logError(r *http.Request, msg string, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("method", d.route.method),
		slog.String("route", d.route.pattern),
	)
	if id := GetRequestID(r); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	d.router.logger.LogAttrs(r.Context(), slog.LevelError, msg, attrs...)
}

// Get registers a GET handler.
func Get[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler.
func Patch[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...RouteOption) {
	register(reg, http.MethodDelete, pattern, h, opts...)
}
