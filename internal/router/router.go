// Package router is a minimal framework layer on top of the WSGI bridge.
// Routes are matched in registration order; the first structural match
// wins, so specific routes must be registered before catch-alls.
package router

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/wsgi"
)

// ErrNoResponse is returned when a handler returns neither a response nor an error
var ErrNoResponse = errors.New("handler returned no response")

// Request is what a route handler sees
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   io.Reader
	Env    *wsgi.Environ
}

// HandlerFunc handles a routed request. args are the positional
// arguments taken from the path after the route's '{' marker.
type HandlerFunc func(req *Request, args ...string) (*Response, error)

// Middleware wraps a handler
type Middleware func(HandlerFunc) HandlerFunc

// Route binds a method and path pattern to a handler
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Router dispatches by method and path
type Router struct {
	routes      []Route
	middlewares []Middleware
}

// New creates a new router
func New() *Router {
	return &Router{
		routes: make([]Route, 0),
	}
}

// Handle registers a new route
func (r *Router) Handle(method, pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, Route{
		Method:  method,
		Pattern: pattern,
		Handler: handler,
	})
}

// Route returns a decorator registering the wrapped handler. The handler
// is returned unchanged.
func (r *Router) Route(method, pattern string) func(HandlerFunc) HandlerFunc {
	return func(h HandlerFunc) HandlerFunc {
		r.Handle(method, pattern, h)
		return h
	}
}

// GET is a shortcut for Handle("GET", ...)
func (r *Router) GET(pattern string, handler HandlerFunc) {
	r.Handle("GET", pattern, handler)
}

// POST is a shortcut for Handle("POST", ...)
func (r *Router) POST(pattern string, handler HandlerFunc) {
	r.Handle("POST", pattern, handler)
}

// PUT is a shortcut for Handle("PUT", ...)
func (r *Router) PUT(pattern string, handler HandlerFunc) {
	r.Handle("PUT", pattern, handler)
}

// PATCH is a shortcut for Handle("PATCH", ...)
func (r *Router) PATCH(pattern string, handler HandlerFunc) {
	r.Handle("PATCH", pattern, handler)
}

// DELETE is a shortcut for Handle("DELETE", ...)
func (r *Router) DELETE(pattern string, handler HandlerFunc) {
	r.Handle("DELETE", pattern, handler)
}

// Use appends middleware. The first one added is the outermost.
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Routes returns a copy of the route table in match order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Match is a successful lookup
type Match struct {
	Route Route
	Args  []string
}

// Match finds the first route whose method is equal and whose pattern is
// either equal to path or, for patterns holding '{', has the same tail
// (everything before the last '/').
func (r *Router) Match(method, path string) (Match, bool) {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	for _, route := range r.routes {
		if route.Method != method {
			continue
		}

		if route.Pattern == path {
			return Match{Route: route, Args: args(route.Pattern, path)}, true
		}

		if strings.Contains(route.Pattern, "{") && tail(route.Pattern) == tail(path) {
			return Match{Route: route, Args: args(route.Pattern, path)}, true
		}
	}

	return Match{}, false
}

// ServeWSGI implements wsgi.App. A request no route matches gets 404.
func (r *Router) ServeWSGI(env *wsgi.Environ, start wsgi.StartResponseFunc) ([][]byte, error) {
	m, ok := r.Match(env.Method(), env.Path())
	if !ok {
		return finish(Text(response.StatusNotFound, "Not Found"), start)
	}

	req := &Request{
		Method: env.Method(),
		Path:   env.Path(),
		Query:  parseQuery(env.Query()),
		Body:   env.Input,
		Env:    env,
	}

	h := m.Route.Handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	resp, err := h(req, m.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", m.Route.Method, m.Route.Pattern, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%s %s: %w", m.Route.Method, m.Route.Pattern, ErrNoResponse)
	}

	return finish(resp, start)
}

func finish(resp *Response, start wsgi.StartResponseFunc) ([][]byte, error) {
	if err := start(resp.StatusLine(), resp.Headers); err != nil {
		return nil, err
	}
	return [][]byte{resp.Body}, nil
}

func tail(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// args splits the path from the pattern's '{' offset on '&'. An empty
// remainder yields no arguments.
func args(pattern, path string) []string {
	i := strings.IndexByte(pattern, '{')
	if i < 0 || i >= len(path) {
		return nil
	}
	return strings.Split(path[i:], "&")
}

// parseQuery flattens the query string. The last non-empty value for a
// key wins; keys with only blank values are left out.
func parseQuery(raw string) map[string]string {
	query := make(map[string]string)
	// ParseQuery still returns every pair it could decode on error
	values, _ := url.ParseQuery(raw)
	for key, vals := range values {
		for _, v := range vals {
			if v != "" {
				query[key] = v
			}
		}
	}
	return query
}
