// Package daily кэширует содержимое главной панели (цитату и план дня)
// на календарный день для каждого пользователя.
package daily

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

const (
	// Префикс ключа записи; дальше идёт id пользователя или guest.
	KeyPrefix = "mirzo_daily_content_"
	// Формат даты в записи. Дата сравнивается в местном времени.
	DateLayout = "Mon Jan 02 2006"

	guest        = "guest"
	minItemRunes = 10
)

var itemSeparator = regexp.MustCompile(`\n-|\n\*`)

// Source отдаёт цитату и план дня. Ошибки источник обрабатывает сам.
type Source interface {
	Quote(ctx context.Context) string
	Briefing(ctx context.Context) string
}

// Store хранит записи по ключу. Load возвращает nil без ошибки, если записи нет.
type Store interface {
	Load(ctx context.Context, key string) (*models.DailyContent, error)
	Save(ctx context.Context, key string, content models.DailyContent) error
	Delete(ctx context.Context, key string) error
}

// Service отдаёт содержимое дня, обращаясь к бэкенду не чаще раза в день.
type Service struct {
	source Source
	store  Store
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт сервис.
func New(source Source, store Store, log *slog.Logger) *Service {
	return &Service{
		source: source,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

// Key возвращает ключ записи для пользователя.
func Key(user *models.User) string {
	if user == nil || user.ID == "" {
		return KeyPrefix + guest
	}
	return KeyPrefix + user.ID
}

// Today возвращает текущую дату в формате записи.
func (s *Service) Today() string {
	return s.now().Local().Format(DateLayout)
}

// Load возвращает содержимое на сегодня. Сохранённая сегодня запись отдаётся
// без сетевых запросов. Иначе цитата и план запрашиваются параллельно;
// для гостя запрашивается только цитата.
func (s *Service) Load(ctx context.Context, user *models.User) (*models.DailyContent, error) {
	const op = "daily.Load"

	key := Key(user)
	today := s.Today()
	log := s.log.With(slog.String("op", op), slog.String("key", key))

	stored, err := s.store.Load(ctx, key)
	if err != nil {
		log.Warn("failed to read stored daily content", sl.Err(err))
	}
	if stored != nil && stored.Date == today {
		log.Debug("daily content served from store")
		return stored, nil
	}

	var quote, briefing string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quote = s.source.Quote(gctx)
		return nil
	})
	if user != nil {
		g.Go(func() error {
			briefing = s.source.Briefing(gctx)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	content := models.DailyContent{
		Date:     today,
		Quote:    quote,
		Briefing: SplitBriefing(briefing),
	}
	if err = s.store.Save(ctx, key, content); err != nil {
		log.Warn("failed to save daily content", sl.Err(err))
	}
	log.Info("daily content refreshed", slog.Int("items", len(content.Briefing)))
	return &content, nil
}

// Reset удаляет запись пользователя, чтобы следующий Load обратился к бэкенду.
func (s *Service) Reset(ctx context.Context, user *models.User) error {
	const op = "daily.Reset"

	if err := s.store.Delete(ctx, Key(user)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SplitBriefing делит план на пункты по строкам, начинающимся с "-" или "*".
// Остаются пункты длиннее десяти символов; если таких нет, план целиком
// становится единственным пунктом. Пустой план даёт пустой список.
func SplitBriefing(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	var items []string
	for _, part := range itemSeparator.Split(text, -1) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*"))
		if part == "" || utf8.RuneCountInString(part) <= minItemRunes {
			continue
		}
		items = append(items, part)
	}
	if len(items) == 0 {
		return []string{text}
	}
	return items
}
