// Package pending следит за заявкой на подписку, пока администратор проверяет чек.
//
// Статус запрашивается сразу и затем с интервалом Interval. Параллельно идёт
// обратный отсчёт Countdown: когда он доходит до нуля, сообщается TimedOut,
// но опрос продолжается до решения администратора или отмены контекста.
package pending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

const (
	// Период опроса статуса.
	DefaultInterval = 5 * time.Second
	// Ориентировочное время проверки чека.
	DefaultCountdown = 600 * time.Second

	defaultTick   = time.Second
	eventsBufSize = 32
)

// Результаты проверки для метрик.
const (
	CheckPending  = "pending"
	CheckApproved = "approved"
	CheckRejected = "rejected"
	CheckError    = "error"
)

// EventKind — тип события наблюдателя.
type EventKind int

const (
	// Прошла секунда обратного отсчёта.
	EventTick EventKind = iota
	// Статус получен, решения пока нет.
	EventChecked
	// Не удалось получить статус.
	EventCheckFailed
	// Отсчёт дошёл до нуля. Отправляется один раз.
	EventTimedOut
	// Подписка активирована.
	EventApproved
	// Заявка отклонена.
	EventRejected
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventChecked:
		return "checked"
	case EventCheckFailed:
		return "check_failed"
	case EventTimedOut:
		return "timed_out"
	case EventApproved:
		return "approved"
	case EventRejected:
		return "rejected"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event — событие наблюдателя.
type Event struct {
	Kind      EventKind
	Remaining time.Duration
	Status    models.SubscriptionStatus
	User      *models.User
	Err       error
}

// Outcome — итог наблюдения.
type Outcome int

const (
	OutcomeCanceled Outcome = iota
	OutcomeApproved
	OutcomeRejected
)

// Result — итог Run. User заполнен при OutcomeApproved и OutcomeRejected.
type Result struct {
	Outcome  Outcome
	User     *models.User
	TimedOut bool
}

// UserSource отдаёт актуальное состояние пользователя.
type UserSource interface {
	Session(ctx context.Context) (*models.User, error)
}

// Observer получает результат каждой проверки (например, для метрик).
type Observer interface {
	PendingCheck(result string)
}

// Watcher опрашивает статус подписки. Один Watcher запускается один раз.
type Watcher struct {
	src       UserSource
	log       *slog.Logger
	interval  time.Duration
	countdown time.Duration
	tick      time.Duration
	observer  Observer
	events    chan Event
}

// Option настраивает Watcher.
type Option func(*Watcher)

// WithInterval задаёт период опроса.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithCountdown задаёт длительность обратного отсчёта.
func WithCountdown(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.countdown = d
		}
	}
}

// WithTick задаёт шаг обратного отсчёта.
func WithTick(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithObserver подключает наблюдателя за проверками.
func WithObserver(o Observer) Option {
	return func(w *Watcher) {
		w.observer = o
	}
}

// New создаёт наблюдатель.
func New(src UserSource, log *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		src:       src,
		log:       log,
		interval:  DefaultInterval,
		countdown: DefaultCountdown,
		tick:      defaultTick,
		events:    make(chan Event, eventsBufSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events возвращает канал событий. Канал закрывается, когда Run завершается.
// При переполненном буфере отбрасываются только тики обратного отсчёта,
// остальные события ждут читателя до отмены ctx.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run опрашивает статус до решения администратора или отмены ctx.
// При отмене возвращается OutcomeCanceled и ошибка контекста.
func (w *Watcher) Run(ctx context.Context) (Result, error) {
	const op = "pending.Run"
	log := w.log.With(slog.String("op", op))
	defer close(w.events)

	poll := time.NewTicker(w.interval)
	defer poll.Stop()
	countdown := time.NewTicker(w.tick)
	defer countdown.Stop()

	remaining := w.countdown
	var res Result

	log.Info("waiting for subscription approval",
		slog.Duration("interval", w.interval),
		slog.Duration("countdown", w.countdown),
	)

	if done := w.check(ctx, log, &res, remaining); done {
		return res, nil
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped waiting for approval")
			res.Outcome = OutcomeCanceled
			return res, ctx.Err()

		case <-countdown.C:
			remaining -= w.tick
			if remaining <= 0 {
				remaining = 0
				countdown.Stop()
				res.TimedOut = true
				log.Info("approval countdown expired, still polling")
				w.emit(ctx, Event{Kind: EventTimedOut})
				continue
			}
			w.emit(ctx, Event{Kind: EventTick, Remaining: remaining})

		case <-poll.C:
			if done := w.check(ctx, log, &res, remaining); done {
				return res, nil
			}
		}
	}
}

// check запрашивает статус и возвращает true, если администратор принял решение.
func (w *Watcher) check(ctx context.Context, log *slog.Logger, res *Result, remaining time.Duration) bool {
	user, err := w.src.Session(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Error("failed to check subscription status", sl.Err(err))
		w.observe(CheckError)
		w.emit(ctx, Event{Kind: EventCheckFailed, Remaining: remaining, Err: err})
		return false
	}

	switch user.SubscriptionStatus {
	case models.StatusActive:
		log.Info("subscription approved", slog.String("user_id", user.ID))
		w.observe(CheckApproved)
		res.Outcome, res.User = OutcomeApproved, user
		w.emit(ctx, Event{Kind: EventApproved, Status: user.SubscriptionStatus, User: user})
		return true
	case models.StatusNone:
		log.Info("subscription rejected", slog.String("user_id", user.ID))
		w.observe(CheckRejected)
		res.Outcome, res.User = OutcomeRejected, user
		w.emit(ctx, Event{Kind: EventRejected, Status: user.SubscriptionStatus, User: user})
		return true
	default:
		log.Debug("subscription still pending", slog.String("status", string(user.SubscriptionStatus)))
		w.observe(CheckPending)
		w.emit(ctx, Event{Kind: EventChecked, Status: user.SubscriptionStatus, Remaining: remaining})
		return false
	}
}

func (w *Watcher) observe(result string) {
	if w.observer != nil {
		w.observer.PendingCheck(result)
	}
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	if ev.Kind == EventTick {
		select {
		case w.events <- ev:
		default:
			w.log.Debug("pending event dropped", slog.String("kind", ev.Kind.String()))
		}
		return
	}
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

// FormatCountdown выводит оставшееся время как MM:SS.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
