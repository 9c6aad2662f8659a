package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"host-bridge/message"
)

// RateLimitMiddleware applies a token bucket shared by every call passing through it.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) *message.MethodResult {
			if !limiter.Allow() {
				return message.Error(message.CodeRateLimited, "rate limit exceeded", nil)
			}
			return next(ctx, call)
		}
	}
}
