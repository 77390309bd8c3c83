package http

import (
	"net/http"
)

// Middleware wraps an http.Handler, following the standard net/http pattern.
type Middleware func(http.Handler) http.Handler

// Router is the routing surface the rest of the application registers
// against. Keeping it an interface means handlers and route files never
// import the concrete router package.
type Router interface {
	// Method registrars. Route-specific middleware is applied in order,
	// first middleware outermost.
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PUT(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PATCH(path string, handler http.HandlerFunc, middlewares ...Middleware)
	DELETE(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group registers routes under a shared prefix. Group middleware
	// applies to every route inside.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware applying to all subsequently registered routes.
	Use(middlewares ...Middleware)

	// Handler returns the http.Handler to mount on the server.
	Handler() http.Handler

	// Walk visits every registered route.
	Walk(fn func(method, path string, handler http.Handler) error) error
}

// Chain wraps handler with middlewares, first middleware outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// ChainFunc is Chain for http.HandlerFunc.
func ChainFunc(handler http.HandlerFunc, middlewares ...Middleware) http.Handler {
	return Chain(handler, middlewares...)
}
