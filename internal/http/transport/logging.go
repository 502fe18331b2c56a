package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
)

// Logger пишет в debug метод, путь, статус и длительность каждого запроса.
func Logger(log *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			entry := log.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", r.Header.Get(RequestIDHeader)),
			)

			resp, err := next.RoundTrip(r)
			if err != nil {
				entry.Error("request failed", sl.Err(err), slog.Duration("duration", time.Since(start)))
				return nil, err
			}
			entry.Debug("request completed",
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)),
			)
			return resp, nil
		})
	}
}
