// Package router wraps chi with route introspection
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-cms/inkwell/internal/web/middleware"
)

// Router manages HTTP routing using chi and records every route it registers
type Router struct {
	mux    chi.Router
	prefix string
	table  *routeTable
}

type routeTable struct {
	routes []*RouteInfo
}

// RouteInfo describes a registered route for introspection
type RouteInfo struct {
	Method      string
	Pattern     string
	Name        string
	Description string
	Parameters  []string
}

// NewRouter creates a new Router with JSON:API error handlers for
// unmatched paths and methods
func NewRouter() *Router {
	r := &Router{
		mux:   chi.NewRouter(),
		table: &routeTable{},
	}
	r.mux.NotFound(NotFoundHandler)
	r.mux.MethodNotAllowed(MethodNotAllowedHandler)
	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use appends middleware to the router. Must be called before routes are added.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodPost, pattern, handler)
}

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.Handle(http.MethodDelete, pattern, handler)
}

// Handle registers handler for method and pattern
func (r *Router) Handle(method, pattern string, handler http.Handler) *RouteInfo {
	r.mux.Method(method, pattern, handler)

	info := &RouteInfo{
		Method:     method,
		Pattern:    r.prefix + pattern,
		Parameters: extractParameters(pattern),
	}
	r.table.routes = append(r.table.routes, info)
	return info
}

// Group mounts a sub-router under prefix. Routes registered on the sub-router
// appear in Routes with the full path.
func (r *Router) Group(prefix string, fn func(sub *Router)) {
	r.mux.Route(prefix, func(cr chi.Router) {
		fn(&Router{mux: cr, prefix: r.prefix + strings.TrimRight(prefix, "/"), table: r.table})
	})
}

// Routes returns the registered routes ordered by pattern then method
func (r *Router) Routes() []RouteInfo {
	out := make([]RouteInfo, 0, len(r.table.routes))
	for _, info := range r.table.routes {
		out = append(out, *info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return methodOrder(out[i].Method) < methodOrder(out[j].Method)
	})
	return out
}

// Named sets a name for the route
func (info *RouteInfo) Named(name string) *RouteInfo {
	info.Name = name
	return info
}

// Describe sets a one-line description for the route
func (info *RouteInfo) Describe(description string) *RouteInfo {
	info.Description = description
	return info
}

func methodOrder(method string) int {
	switch method {
	case http.MethodGet:
		return 0
	case http.MethodPost:
		return 1
	case http.MethodPatch:
		return 2
	case http.MethodDelete:
		return 3
	default:
		return 4
	}
}

// extractParameters returns the names of the path parameters in pattern
func extractParameters(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i]
			}
			params = append(params, name)
		}
	}
	return params
}
