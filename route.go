package modelapi

import (
	"maps"
	"net/http"
	"reflect"
)

// routeInfo holds metadata for a registered route, used for both
// request dispatch and OpenAPI spec generation.
type routeInfo struct {
	method     string
	pattern    string
	summary    string
	desc       string
	tags       []string
	status     int
	deprecated bool
	errors     []int
	hidden     bool

	operationID string
	extra       map[string]any

	mergePath    bool
	fieldsName   string
	maxExpansion int

	bodyLimit int64
	rateLimit *RateLimitConfig

	accepts []reflect.Type
	returns []declaredResponse

	reqType  reflect.Type
	respType reflect.Type
	models   modelInfo

	handler http.Handler
}

// declaredResponse is a response model declared with Returns.
type declaredResponse struct {
	typ    reflect.Type
	status int
}

// statusFor returns the status used for a response model.
func (ri *routeInfo) statusFor(rm responseModel) int {
	if rm.status != 0 {
		return rm.status
	}
	return ri.status
}

// RouteOption configures a route at registration time.
type RouteOption func(*routeInfo)

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) RouteOption {
	return func(ri *routeInfo) {
		ri.status = code
	}
}

// Returns declares T as a response model of the route. For interface
// response types the declared models form a union, tried in order. An
// optional status overrides the route status whenever T is returned.
func Returns[T any](status ...int) RouteOption {
	return func(ri *routeInfo) {
		d := declaredResponse{typ: reflect.TypeFor[T]()}
		if len(status) > 0 {
			d.status = status[0]
		}
		ri.returns = append(ri.returns, d)
	}
}

// Accepts declares T as a candidate for the interface-typed body field of
// the request. Candidates are tried in declaration order.
func Accepts[T any]() RouteOption {
	return func(ri *routeInfo) {
		ri.accepts = append(ri.accepts, reflect.TypeFor[T]())
	}
}

// WithMergePathParams copies every path placeholder into the body model
// arguments, overriding keys from the body or query string.
func WithMergePathParams() RouteOption {
	return func(ri *routeInfo) {
		ri.mergePath = true
	}
}

// WithRouteFieldsName overrides the router's fieldset key for this route.
func WithRouteFieldsName(name string) RouteOption {
	return func(ri *routeInfo) {
		ri.fieldsName = name
	}
}

// WithRouteMaxExpansionDepth overrides the router's fieldset expansion depth.
func WithRouteMaxExpansionDepth(depth int) RouteOption {
	return func(ri *routeInfo) {
		ri.maxExpansion = depth
	}
}

// WithSummary sets the OpenAPI summary for the route.
func WithSummary(s string) RouteOption {
	return func(ri *routeInfo) {
		ri.summary = s
	}
}

// WithDescription sets the OpenAPI description for the route.
func WithDescription(d string) RouteOption {
	return func(ri *routeInfo) {
		ri.desc = d
	}
}

// WithTags adds OpenAPI tags to the route.
func WithTags(tags ...string) RouteOption {
	return func(ri *routeInfo) {
		ri.tags = append(ri.tags, tags...)
	}
}

// WithDeprecated marks the route as deprecated in the OpenAPI spec.
func WithDeprecated() RouteOption {
	return func(ri *routeInfo) {
		ri.deprecated = true
	}
}

// WithErrors declares additional HTTP error status codes for the OpenAPI spec.
func WithErrors(codes ...int) RouteOption {
	return func(ri *routeInfo) {
		ri.errors = append(ri.errors, codes...)
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) RouteOption {
	return func(ri *routeInfo) {
		ri.operationID = id
	}
}

// WithOpenAPIExtra deep-merges extra into the generated operation: maps
// merge recursively, lists append and other values replace.
func WithOpenAPIExtra(extra map[string]any) RouteOption {
	return func(ri *routeInfo) {
		if ri.extra == nil {
			ri.extra = make(map[string]any, len(extra))
		}
		maps.Copy(ri.extra, extra)
	}
}

// WithBodyLimit sets a per-route maximum request body size in bytes.
// Larger bodies are rejected with 413.
func WithBodyLimit(maxBytes int64) RouteOption {
	return func(ri *routeInfo) {
		ri.bodyLimit = maxBytes
	}
}

// WithRateLimit limits the route to rps requests per second per client,
// with the given burst. Excess requests get 429.
func WithRateLimit(rps float64, burst int) RouteOption {
	return func(ri *routeInfo) {
		ri.rateLimit = &RateLimitConfig{Rate: rps, Burst: burst}
	}
}
