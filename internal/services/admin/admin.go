// Package admin — панель администратора: пользователи, подтверждение оплат,
// сводка и ключ AI-провайдера.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// Filter — отбор пользователей в списке.
type Filter string

const (
	FilterAll     Filter = "ALL"
	FilterPending Filter = "PENDING"
)

// Client описывает вызовы REST-клиента, нужные сервису.
type Client interface {
	Users(ctx context.Context) ([]models.UserDTO, error)
	User(ctx context.Context, id string) (*models.UserDTO, error)
	CreateUser(ctx context.Context, form client.UserForm) (*models.UserDTO, error)
	UpdateUser(ctx context.Context, id string, form client.UserForm) (*models.UserDTO, error)
	DeleteUser(ctx context.Context, id string) error
	SetUserSubscription(ctx context.Context, id string, status models.SubscriptionStatus) error
	Stats(ctx context.Context) (*models.AdminStats, error)
	APIKey(ctx context.Context) (string, error)
	UpdateAPIKey(ctx context.Context, key string) error
}

// UserForm — форма пользователя. Пустой ID означает создание.
// Пароль обязателен только для нового пользователя; при изменении пустой
// пароль не отправляется.
type UserForm struct {
	ID                 string
	FullName           string                    `validate:"required"`
	PhoneNumber        string                    `validate:"required,uzphone"`
	Password           string                    `validate:"omitempty,min=6"`
	Organization       string                    `validate:"required"`
	SubscriptionStatus models.SubscriptionStatus `validate:"omitempty,oneof=NONE PENDING ACTIVE"`
	IsAdmin            *bool
	IsActive           *bool
}

// Service реализует сценарии администратора.
type Service struct {
	client   Client
	validate *validator.Validate
	log      *slog.Logger
}

// New создаёт сервис администратора.
func New(c Client, log *slog.Logger) *Service {
	return &Service{
		client:   c,
		validate: response.NewValidator(),
		log:      log,
	}
}

// Users возвращает пользователей, отобранных фильтром, по имени.
func (s *Service) Users(ctx context.Context, filter Filter) ([]*models.User, error) {
	const op = "admin.Users"

	dtos, err := s.client.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users := make([]*models.User, 0, len(dtos))
	for _, d := range dtos {
		u := d.ToUser()
		if filter == FilterPending && u.SubscriptionStatus != models.StatusPending {
			continue
		}
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].FullName) < strings.ToLower(users[j].FullName)
	})
	return users, nil
}

// User возвращает пользователя по id.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	const op = "admin.User"

	dto, err := s.client.User(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return dto.ToUser(), nil
}

// Save проверяет форму и создаёт либо изменяет пользователя.
func (s *Service) Save(ctx context.Context, form UserForm) (*models.User, error) {
	const op = "admin.Save"

	form.FullName = strings.TrimSpace(form.FullName)
	form.Organization = strings.TrimSpace(form.Organization)
	if err := response.Validate(s.validate, form); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if form.ID == "" && form.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Password is required for a new user"}})
	}

	payload := client.UserForm{
		FullName:     &form.FullName,
		PhoneNumber:  &form.PhoneNumber,
		Organization: &form.Organization,
		IsAdmin:      form.IsAdmin,
		IsActive:     form.IsActive,
	}
	if form.Password != "" {
		payload.Password = &form.Password
	}
	if form.SubscriptionStatus != "" {
		payload.SubscriptionStatus = &form.SubscriptionStatus
	}

	var (
		dto *models.UserDTO
		err error
	)
	if form.ID == "" {
		dto, err = s.client.CreateUser(ctx, payload)
	} else {
		dto, err = s.client.UpdateUser(ctx, form.ID, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dto == nil {
		return nil, nil
	}

	user := dto.ToUser()
	s.log.Info("user saved", slog.String("user_id", user.ID), slog.Bool("created", form.ID == ""))
	return user, nil
}

// Delete удаляет пользователя.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "admin.Delete"

	if err := s.client.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("user_id", id))
	return nil
}

// Approve активирует подписку пользователя.
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.setStatus(ctx, "admin.Approve", id, models.StatusActive)
}

// Reject отклоняет заявку: статус возвращается в NONE.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.setStatus(ctx, "admin.Reject", id, models.StatusNone)
}

func (s *Service) setStatus(ctx context.Context, op, id string, status models.SubscriptionStatus) error {
	if err := s.client.SetUserSubscription(ctx, id, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription status changed", slog.String("user_id", id), slog.String("status", string(status)))
	return nil
}

// Stats возвращает сводку. При ошибке возвращаются нули.
func (s *Service) Stats(ctx context.Context) models.AdminStats {
	stats, err := s.client.Stats(ctx)
	if err != nil || stats == nil {
		if err != nil {
			s.log.Warn("failed to load admin stats", sl.Err(err))
		}
		return models.AdminStats{}
	}
	return *stats
}

// APIKey возвращает замаскированный ключ AI-провайдера.
func (s *Service) APIKey(ctx context.Context) (string, error) {
	const op = "admin.APIKey"

	key, err := s.client.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}

// UpdateAPIKey заменяет ключ AI-провайдера. Пустой ключ не принимается.
func (s *Service) UpdateAPIKey(ctx context.Context, key string) error {
	const op = "admin.UpdateAPIKey"

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field APIKey is a required field"}})
	}
	if err := s.client.UpdateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("ai api key updated")
	return nil
}
