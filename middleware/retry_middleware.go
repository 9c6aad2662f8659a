package middleware

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"host-bridge/message"
)

// RetryMiddleware re-issues calls whose result is retryable (UNAVAILABLE, TIMEOUT)
// with exponential backoff starting at baseDelay. It stops early when ctx is done.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) *message.MethodResult {
			res := next(ctx, call)
			for i := 0; i < maxRetries && res.IsRetryable(); i++ {
				zlog.Debug().
					Int("attempt", i+1).
					Str("channel", call.Channel).
					Str("method", call.Method).
					Str("code", res.ErrorCode).
					Msg("retrying method call")

				timer := time.NewTimer(baseDelay * time.Duration(1<<i))
				select {
				case <-ctx.Done():
					timer.Stop()
					return res
				case <-timer.C:
				}
				res = next(ctx, call)
			}
			return res
		}
	}
}
