// Package subscription — загрузка чека об оплате, профиль и расчёт срока подписки.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

const (
	// Цена подписки в долларах.
	USDPrice = 4.99
	// Курс сума к доллару для показа цены.
	ExchangeRate = 12500
	// Карта для перевода оплаты.
	PaymentCard = "9860 3566 2700 0702"
	// За сколько дней до окончания подписка считается истекающей.
	ExpiringDays = 3
)

// ErrReceiptRequired — чек об оплате не приложен.
var ErrReceiptRequired = client.ErrReceiptRequired

// Client описывает вызовы REST-клиента, нужные сервису.
type Client interface {
	UploadReceipt(ctx context.Context, receipt *models.Attachment) (*models.UserDTO, error)
	Profile(ctx context.Context) (*models.UserDTO, error)
	UpdateProfile(ctx context.Context, upd client.ProfileUpdate) (*models.UserDTO, error)
}

// Status — сводка подписки для показа пользователю.
type Status struct {
	Status   models.SubscriptionStatus
	Expiry   *time.Time
	DaysLeft int
	Expiring bool
}

// Service реализует сценарии подписки и профиля.
type Service struct {
	client Client
	log    *slog.Logger
	now    func() time.Time
}

// New создаёт сервис.
func New(c Client, log *slog.Logger) *Service {
	return &Service{client: c, log: log, now: time.Now}
}

// PriceUZS возвращает цену подписки в сумах.
func PriceUZS() int {
	return int(math.Round(USDPrice * ExchangeRate))
}

// DaysRemaining возвращает число дней до окончания подписки с округлением вверх.
// Без даты окончания возвращает 0, для истёкшей подписки значение отрицательное.
func DaysRemaining(user *models.User, now time.Time) int {
	if user == nil || user.SubscriptionExpiry == nil {
		return 0
	}
	diff := user.SubscriptionExpiry.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

// IsExpiring сообщает, что до окончания подписки осталось от 0 до ExpiringDays дней.
func IsExpiring(days int) bool {
	return days >= 0 && days <= ExpiringDays
}

// Describe собирает сводку подписки пользователя на момент сейчас.
func (s *Service) Describe(user *models.User) Status {
	if user == nil {
		return Status{Status: models.StatusNone}
	}
	days := DaysRemaining(user, s.now())
	return Status{
		Status:   user.SubscriptionStatus,
		Expiry:   user.SubscriptionExpiry,
		DaysLeft: days,
		Expiring: user.SubscriptionStatus == models.StatusActive && IsExpiring(days),
	}
}

// UploadReceipt отправляет чек об оплате и возвращает обновлённого пользователя.
// Если статус стал PENDING, вызывающий переходит к ожиданию подтверждения.
func (s *Service) UploadReceipt(ctx context.Context, receipt *models.Attachment) (*models.User, error) {
	const op = "subscription.UploadReceipt"

	if receipt == nil || len(receipt.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrReceiptRequired)
	}

	dto, err := s.client.UploadReceipt(ctx, receipt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := dto.ToUser()
	s.log.Info("receipt uploaded",
		slog.String("user_id", user.ID),
		slog.String("file", receipt.Name),
		slog.String("status", string(user.SubscriptionStatus)),
	)
	return user, nil
}

// Profile возвращает профиль текущего пользователя.
func (s *Service) Profile(ctx context.Context) (*models.User, error) {
	const op = "subscription.Profile"

	dto, err := s.client.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := dto.ToUser()
	user.DowngradeIfExpired(s.now())
	return user, nil
}

// UpdateProfile меняет имя и организацию. Пустые значения не отправляются.
func (s *Service) UpdateProfile(ctx context.Context, fullName, organization string) (*models.User, error) {
	const op = "subscription.UpdateProfile"

	upd := client.ProfileUpdate{
		FullName:     strings.TrimSpace(fullName),
		Organization: strings.TrimSpace(organization),
	}
	if upd.FullName == "" && upd.Organization == "" {
		return nil, fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"nothing to update"}})
	}

	dto, err := s.client.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dto == nil {
		return s.Profile(ctx)
	}
	return dto.ToUser(), nil
}
