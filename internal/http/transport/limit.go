package transport

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit ограничивает частоту исходящих запросов. В отличие от серверного
// варианта запрос не отклоняется, а ждёт свободного слота или отмены контекста.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, fmt.Errorf("transport.RateLimit: %w", err)
			}
			return next.RoundTrip(r)
		})
	}
}
