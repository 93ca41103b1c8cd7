package modelapi

// Group is a collection of routes under a shared prefix with shared middleware and tags.
type Group struct {
	parent     Registrar
	prefix     string
	middleware []Middleware
	tags       []string
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupTags adds default tags to all routes registered on the group.
func WithGroupTags(tags ...string) GroupOption {
	return func(g *Group) {
		g.tags = append(g.tags, tags...)
	}
}

// WithGroupMiddleware adds middleware to the group.
func WithGroupMiddleware(mw ...Middleware) GroupOption {
	return func(g *Group) {
		g.middleware = append(g.middleware, mw...)
	}
}

// Group creates a new route group with the given prefix and options.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	return newGroup(r, prefix, opts)
}

// Group creates a nested group. Its prefix, tags and middleware extend the parent's.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	return newGroup(g, prefix, opts)
}

func newGroup(parent Registrar, prefix string, opts []GroupOption) *Group {
	g := &Group{parent: parent, prefix: prefix}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Group) base() *Router { return g.parent.base() }

func (g *Group) routePrefix() string { return g.parent.routePrefix() + g.prefix }

func (g *Group) routeTags() []string {
	return append(append([]string(nil), g.parent.routeTags()...), g.tags...)
}

func (g *Group) routeMiddleware() []Middleware {
	return append(append([]Middleware(nil), g.parent.routeMiddleware()...), g.middleware...)
}
