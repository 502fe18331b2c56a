package transport

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
)

// UnauthorizedHooks — подписчики на событие "бэкенд ответил 401".
// Контроллер приложения подписывается, чтобы вернуться к экрану входа.
type UnauthorizedHooks struct {
	mu  sync.Mutex
	fns []func()
}

// Subscribe добавляет обработчик.
func (h *UnauthorizedHooks) Subscribe(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *UnauthorizedHooks) fire() {
	h.mu.Lock()
	fns := append([]func(){}, h.fns...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// BearerAuth добавляет заголовок Authorization из хранилища сессии.
// При ответе 401 токен удаляется, а подписчики hooks уведомляются.
func BearerAuth(store session.Store, hooks *UnauthorizedHooks, log *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			const op = "transport.BearerAuth"
			log := log.With(slog.String("op", op))

			token, err := store.Token(r.Context())
			if err != nil {
				log.Error("failed to read session token", sl.Err(err))
			}
			if token != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := next.RoundTrip(r)
			if err != nil {
				return nil, err
			}

			if resp.StatusCode == http.StatusUnauthorized {
				log.Warn("session rejected by backend, clearing token", slog.String("path", r.URL.Path))
				if err := store.RemoveToken(r.Context()); err != nil {
					log.Error("failed to remove session token", sl.Err(err))
				}
				if hooks != nil {
					hooks.fire()
				}
			}
			return resp, nil
		})
	}
}
