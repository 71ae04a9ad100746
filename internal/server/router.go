package server

import (
	"net/http"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing. The bridge only serves a
// handful of read endpoints, so there is no pattern matching beyond what
// the mux provides.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a [Handler] for the specified HTTP method and path.
//
// Requests with any other method get a 405 with an Allow header. HEAD is
// accepted wherever GET is registered, since probes tend to use it.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	wrapped := r.chain(handler)

	methodHandler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(method, req.Method) {
			w.Header().Set("Allow", method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, req)
	})

	r.mux.Handle(path, methodHandler)
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
// Bridge handlers do their own method filtering so SSE endpoints can reject
// HEAD before committing to a stream.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.chain(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// chain wraps a handler with all registered middleware, applied in
// reverse order (last added wraps first).
func (r *BasicRouter) chain(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

func methodAllowed(registered, requested string) bool {
	if strings.EqualFold(registered, requested) {
		return true
	}
	return strings.EqualFold(registered, http.MethodGet) && strings.EqualFold(requested, http.MethodHead)
}
