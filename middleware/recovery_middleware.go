package middleware

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"host-bridge/message"
)

// RecoveryMiddleware turns a panicking handler into an INTERNAL error result
// instead of taking the connection down with it. It only sees panics raised on
// the calling goroutine; TimeOutMiddleware recovers its own.
func RecoveryMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (res *message.MethodResult) {
			defer func() {
				if r := recover(); r != nil {
					res = panicResult(call, r)
				}
			}()
			return next(ctx, call)
		}
	}
}

func panicResult(call *message.MethodCall, r any) *message.MethodResult {
	zlog.Error().
		Str("channel", call.Channel).
		Str("method", call.Method).
		Interface("panic", r).
		Msg("handler panicked")
	return message.Error(message.CodeInternal, fmt.Sprintf("handler panic: %v", r), nil)
}
