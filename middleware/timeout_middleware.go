package middleware

import (
	"context"
	"time"

	"host-bridge/message"
)

// TimeOutMiddleware answers TIMEOUT when next does not finish within timeout.
// next keeps running in the background with a cancelled context. A panic in next
// is recovered on that goroutine and answered as INTERNAL.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) *message.MethodResult {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.MethodResult, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- panicResult(call, r)
					}
				}()
				done <- next(ctx, call)
			}()

			select {
			case res := <-done:
				return res
			case <-ctx.Done():
				return message.Error(message.CodeTimeout, "request timed out", nil)
			}
		}
	}
}
