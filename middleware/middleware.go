// Package middleware provides the onion-style wrappers applied around channel handlers
// on the server and around the transport call on the client.
package middleware

import (
	"context"

	"host-bridge/message"
)

// HandlerFunc answers a single method call. It never returns nil.
type HandlerFunc func(ctx context.Context, call *message.MethodCall) *message.MethodResult

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so that the first one is the outermost:
// Chain(A, B, C)(h) == A(B(C(h))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
