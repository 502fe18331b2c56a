// Package assistant — чат с ассистентом, цитата и план дня, анализ изображений и карт.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// FallbackQuotes показываются, если цитату получить не удалось.
var FallbackQuotes = []string{
	"Muvaffaqiyat tasodif emas, u mashaqqatli mehnat, qat'iyat va o'rganish natijasidir.",
	"Har bir kun - yangi imkoniyat. Bugun kechagidan yaxshiroq bo'lishga intiling.",
	"Katta maqsadlarga erishish uchun kichik, ammo barqaror qadamlar tashlang.",
	"Intizom - bu siz xohlagan narsa va siz hozir xohlayotgan narsa o'rtasidagi tanlovdir.",
	"Haqiqiy liderlik bu buyruq berish emas, balki o'rnak bo'lishdir.",
}

// FallbackBriefing показывается, если план дня получить не удалось.
const FallbackBriefing = `- Bugungi kun uchun eng ustuvor vazifalarni belgilab oling va diqqatni jamlang.
- Jamoa bilan qisqa "status-meeting" o'tkazib, ish jarayonini muvofiqlashtiring.
- Ijro intizomi va hujjatlar aylanishini nazorat qilishni unutmang.`

// Location — координаты для анализа карты.
type Location struct {
	Lat float64
	Lng float64
}

// Tashkent используется, когда координаты не заданы.
var Tashkent = Location{Lat: 41.2995, Lng: 69.2401}

// Client описывает вызовы REST-клиента, нужные сервису.
type Client interface {
	Chat(ctx context.Context, history []client.ChatTurn, message string) (*client.TextResponse, error)
	MotivationalQuote(ctx context.Context) (string, error)
	DailyBriefing(ctx context.Context) (string, error)
	AnalyzeImage(ctx context.Context, image models.Attachment, prompt string) (string, error)
}

// Service реализует сценарии ассистента.
type Service struct {
	client Client
	log    *slog.Logger
	now    func() time.Time
	pick   func(n int) int
}

// New создаёт сервис ассистента.
func New(c Client, log *slog.Logger) *Service {
	return &Service{
		client: c,
		log:    log,
		now:    time.Now,
		pick:   rand.IntN,
	}
}

// Chat отправляет сообщение с историей и возвращает ответ модели.
func (s *Service) Chat(ctx context.Context, history []models.ChatMessage, message string) (*models.ChatMessage, error) {
	const op = "assistant.Chat"

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Message is a required field"}})
	}

	turns := make([]client.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, client.ChatTurn{Role: m.Role, Text: m.Text})
	}

	resp, err := s.client.Chat(ctx, turns, message)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.ChatMessage{
		Role:      models.RoleModel,
		Text:      resp.Text,
		Timestamp: s.now(),
		Sources:   resp.Sources,
	}, nil
}

// Quote возвращает цитату дня. При ошибке возвращается случайная запасная цитата.
func (s *Service) Quote(ctx context.Context) string {
	quote, err := s.client.MotivationalQuote(ctx)
	if err != nil || strings.TrimSpace(quote) == "" {
		if err != nil {
			s.log.Warn("failed to get quote, using fallback", sl.Err(err))
		}
		return FallbackQuotes[s.pick(len(FallbackQuotes))]
	}
	return quote
}

// Briefing возвращает план на день. При ошибке возвращается FallbackBriefing.
func (s *Service) Briefing(ctx context.Context) string {
	briefing, err := s.client.DailyBriefing(ctx)
	if err != nil {
		s.log.Warn("failed to get briefing, using fallback", sl.Err(err))
		return FallbackBriefing
	}
	return briefing
}

// AnalyzeImage анализирует изображение по вопросу prompt.
func (s *Service) AnalyzeImage(ctx context.Context, image models.Attachment, prompt string) (string, error) {
	const op = "assistant.AnalyzeImage"

	if len(image.Data) == 0 {
		return "", fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Image is a required field"}})
	}

	text, err := s.client.AnalyzeImage(ctx, image, strings.TrimSpace(prompt))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}

// MapPrompt формирует запрос к модели для анализа карты.
func MapPrompt(question string, loc Location) string {
	return fmt.Sprintf(
		"Hududiy tahlil. Ushbu xarita tasvirini tahlil qiling: joylar, masofalar va infratuzilma haqida aniq ma'lumot bering. "+
			"Foydalanuvchi joylashuvi: %.4f, %.4f. Savol: %s",
		loc.Lat, loc.Lng, question,
	)
}

// AnalyzeMap анализирует изображение карты. Без координат используется Ташкент.
func (s *Service) AnalyzeMap(ctx context.Context, image models.Attachment, question string, loc *Location) (string, error) {
	const op = "assistant.AnalyzeMap"

	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Question is a required field"}})
	}
	where := Tashkent
	if loc != nil {
		where = *loc
	}

	text, err := s.AnalyzeImage(ctx, image, MapPrompt(question, where))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}
