// Package app собирает клиент Mirzo AI: хранилища, цепочку транспорта,
// REST-клиент, сервисы и корневой контроллер с таблицей выбора экрана.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/mirzo-ai/internal/cache"
	"github.com/magabrotheeeer/mirzo-ai/internal/config"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/transport"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/metrics"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/admin"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/assistant"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/auth"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/daily"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/documents"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/pending"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/subscription"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
)

// App держит все зависимости одного запуска клиента.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *cache.Cache

	Metrics    *metrics.Metrics
	Client     *client.Client
	Controller *Controller

	Auth         *auth.Service
	Documents    *documents.Service
	Assistant    *assistant.Service
	Daily        *daily.Service
	Subscription *subscription.Service
	Admin        *admin.Service
}

// Option настраивает App при создании.
type Option func(*options)

type options struct {
	base http.RoundTripper
}

// WithTransport задаёт базовый транспорт под цепочкой middleware.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// New связывает зависимости по конфигу. Для backend redis соединение
// проверяется сразу; Close его освобождает.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	const op = "app.New"

	o := options{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		Metrics: metrics.New(),
	}

	var (
		store      session.Store
		dailyStore daily.Store
	)
	switch cfg.Backend {
	case config.StorageRedis:
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.cache = cacheRedis
		store = session.NewRedisStore(cacheRedis, cfg.Env)
		dailyStore = daily.NewRedisStore(cacheRedis)
	default:
		store = session.NewFileStore(cfg.StateDir)
		dailyStore = daily.NewFileStore(filepath.Join(cfg.StateDir, "daily"))
	}

	hooks := &transport.UnauthorizedHooks{}
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	rt := transport.Chain(o.base,
		transport.RequestID(),
		transport.Logger(logger),
		transport.RateLimit(limiter),
		a.Metrics.InstrumentRoundTripper,
		transport.BearerAuth(store, hooks, logger),
	)

	apiClient, err := client.New(cfg.BaseURL, store,
		client.WithHTTPClient(&http.Client{Transport: rt, Timeout: cfg.TimeoutAPI}),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Client = apiClient

	a.Auth = auth.New(apiClient, logger)
	a.Documents = documents.New(apiClient, logger)
	a.Assistant = assistant.New(apiClient, logger)
	a.Daily = daily.New(a.Assistant, dailyStore, logger)
	a.Subscription = subscription.New(apiClient, logger)
	a.Admin = admin.New(apiClient, logger)

	a.Controller = NewController(a.Auth, logger)
	hooks.Subscribe(a.Controller.Unauthorized)

	return a, nil
}

// Boot восстанавливает сессию контроллера.
func (a *App) Boot(ctx context.Context) *models.User {
	return a.Controller.Boot(ctx)
}

// WaitForApproval запускает наблюдатель за статусом подписки и, если задан
// адрес, сервер метрик на время ожидания. onEvent вызывается для каждого события.
// Если сессия потеряна (ответ 401), ожидание прекращается с auth.ErrNoSession.
func (a *App) WaitForApproval(ctx context.Context, onEvent func(pending.Event)) (pending.Result, error) {
	const op = "app.WaitForApproval"
	log := a.logger.With(slog.String("op", op))

	a.Controller.ChangeView(ViewPendingSubscription)

	watcher := pending.New(a.Auth, a.logger,
		pending.WithInterval(a.cfg.PollInterval),
		pending.WithCountdown(a.cfg.Countdown),
		pending.WithObserver(a.Metrics),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.cfg.MetricsAddress != "" {
		g.Go(func() error {
			// Без метрик ожидание продолжается.
			if err := a.Metrics.Serve(gctx, a.cfg.MetricsAddress, a.logger); err != nil {
				log.Error("metrics server failed", sl.Err(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		var lost bool
		for ev := range watcher.Events() {
			if onEvent != nil {
				onEvent(ev)
			}
			if ev.Kind == pending.EventCheckFailed && errors.Is(ev.Err, auth.ErrNoSession) && !lost {
				lost = true
				a.Controller.Unauthorized()
				cancel()
			}
		}
		if lost {
			return auth.ErrNoSession
		}
		return nil
	})

	var res pending.Result
	g.Go(func() error {
		defer cancel()
		var err error
		res, err = watcher.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			log.Error("waiting for approval failed", sl.Err(err))
		}
		return res, fmt.Errorf("%s: %w", op, err)
	}

	switch res.Outcome {
	case pending.OutcomeApproved:
		a.Controller.SetUser(res.User)
		a.Controller.ChangeView(ViewDashboard)
	case pending.OutcomeRejected:
		a.Controller.SetUser(res.User)
		a.Controller.ChangeView(ViewSubscription)
	default:
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
	}
	return res, nil
}

// Close освобождает соединение с redis, если оно было открыто.
func (a *App) Close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis connection", sl.Err(err))
	}
}
