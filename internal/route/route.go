// Package route resolves the handler a router would pick for a request so
// middleware can honor per-route markers (opt-outs, names) before dispatch.
package route

import "net/http"

// Router is implemented by *http.ServeMux
type Router interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

// Unwrapper is implemented by handler decorators that expose the handler they wrap
type Unwrapper interface {
	Unwrap() http.Handler
}

// Namer is implemented by handlers carrying a human-readable name
type Namer interface {
	HandlerName() string
}

// Resolve returns the handler and pattern router would use for r.
// A nil router or request yields (nil, "").
func Resolve(router Router, r *http.Request) (http.Handler, string) {
	if router == nil || r == nil || r.URL == nil {
		return nil, ""
	}
	return router.Handler(r)
}

// Find walks the decorator chain starting at h and returns the first handler
// implementing T.
func Find[T any](h http.Handler) (T, bool) {
	var zero T
	for depth := 0; h != nil && depth < 32; depth++ {
		if v, ok := h.(T); ok {
			return v, true
		}
		u, ok := h.(Unwrapper)
		if !ok {
			break
		}
		h = u.Unwrap()
	}
	return zero, false
}

// Name returns the name attached with Named anywhere in the chain, else pattern
func Name(h http.Handler, pattern string) string {
	if n, ok := Find[Namer](h); ok {
		return n.HandlerName()
	}
	return pattern
}

type namedHandler struct {
	name string
	next http.Handler
}

// Named attaches a name to h for request logs
func Named(name string, h http.Handler) http.Handler {
	return &namedHandler{name: name, next: h}
}

func (n *namedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.next.ServeHTTP(w, r)
}

func (n *namedHandler) Unwrap() http.Handler { return n.next }

func (n *namedHandler) HandlerName() string { return n.name }
