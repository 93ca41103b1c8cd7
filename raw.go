package modelapi

import "net/http"

// RawRequest can be declared on a request container to get access to
// the underlying *http.Request.
type RawRequest struct {
	Request *http.Request
}

// Raw registers a plain http.HandlerFunc that bypasses binding. Raw routes
// are served with the registrar's middleware but are not documented.
func Raw(reg Registrar, method, pattern string, h http.HandlerFunc) {
	ri := &routeInfo{
		method:  method,
		pattern: reg.routePrefix() + pattern,
		hidden:  true,
		handler: h,
	}

	routeMW := reg.routeMiddleware()
	for i := len(routeMW) - 1; i >= 0; i-- {
		ri.handler = routeMW[i](ri.handler)
	}

	reg.base().addRoute(ri)
}
