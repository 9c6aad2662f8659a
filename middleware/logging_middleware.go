package middleware

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"host-bridge/message"
)

// LoggingMiddleware logs every call with its outcome and duration.
// Error outcomes are logged at warn level, everything else at debug.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) *message.MethodResult {
			start := time.Now()
			res := next(ctx, call)

			event := zlog.Debug()
			if res.Status == message.StatusError {
				event = zlog.Warn().Str("code", res.ErrorCode).Str("error", res.ErrorMessage)
			}
			event.Str("channel", call.Channel).
				Str("method", call.Method).
				Stringer("status", res.Status).
				Dur("duration", time.Since(start)).
				Msg("method call")
			return res
		}
	}
}
