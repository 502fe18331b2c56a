// Package auth содержит логику входа, регистрации и восстановления сессии.
//
// Формы проверяются на клиенте до отправки на сервер, токен сохраняется
// REST-клиентом. Локальная проверка срока подписки не авторитетна и нужна
// только для того, чтобы не показывать закрытые разделы после её окончания.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/jwt"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// ErrNoSession — пользователь не вошёл в систему.
var ErrNoSession = errors.New("no active session")

// Client описывает вызовы REST-клиента, нужные сервису.
type Client interface {
	Register(ctx context.Context, req client.RegisterRequest) (*client.AuthResponse, error)
	Login(ctx context.Context, phoneNumber, password string) (*client.AuthResponse, error)
	LoginAsAdmin(ctx context.Context, secret string) (*client.AuthResponse, error)
	CurrentUser(ctx context.Context) (*models.UserDTO, error)
	Token(ctx context.Context) (string, error)
	RemoveToken(ctx context.Context) error
}

// RegisterForm — данные формы регистрации.
type RegisterForm struct {
	FullName     string `validate:"required"`
	PhoneNumber  string `validate:"required,uzphone"`
	Password     string `validate:"required,min=6"`
	Password2    string `validate:"required,eqfield=Password"`
	Organization string `validate:"required"`
}

// LoginForm — данные формы входа.
type LoginForm struct {
	PhoneNumber string `validate:"required"`
	Password    string `validate:"required"`
}

// Service реализует сценарии аутентификации.
type Service struct {
	client   Client
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт сервис аутентификации.
func New(c Client, log *slog.Logger) *Service {
	return &Service{
		client:   c,
		validate: response.NewValidator(),
		log:      log,
		now:      time.Now,
	}
}

// Register проверяет форму и регистрирует пользователя.
func (s *Service) Register(ctx context.Context, form RegisterForm) (*models.User, error) {
	const op = "auth.Register"

	form.FullName = strings.TrimSpace(form.FullName)
	form.Organization = strings.TrimSpace(form.Organization)
	if err := response.Validate(s.validate, form); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.client.Register(ctx, client.RegisterRequest{
		FullName:     form.FullName,
		PhoneNumber:  form.PhoneNumber,
		Password:     form.Password,
		Organization: form.Organization,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%s: registration response has no token", op)
	}

	s.log.Info("user registered", slog.String("user_id", resp.User.ID))
	return resp.User.ToUser(), nil
}

// Login проверяет форму и выполняет вход.
func (s *Service) Login(ctx context.Context, form LoginForm) (*models.User, error) {
	const op = "auth.Login"

	if err := response.Validate(s.validate, form); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.client.Login(ctx, form.PhoneNumber, form.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%s: login response has no token", op)
	}

	user := resp.User.ToUser()
	s.checkExpiry(user)
	s.log.Info("user logged in", slog.String("user_id", user.ID), slog.Bool("admin", user.IsAdmin))
	return user, nil
}

// LoginAsAdmin выполняет вход администратора по секрету.
func (s *Service) LoginAsAdmin(ctx context.Context, secret string) (*models.User, error) {
	const op = "auth.LoginAsAdmin"

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Secret is a required field"}})
	}

	resp, err := s.client.LoginAsAdmin(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%s: admin login response has no token", op)
	}

	s.log.Info("admin logged in", slog.String("user_id", resp.User.ID))
	return resp.User.ToUser(), nil
}

// Session возвращает пользователя текущей сессии.
// Без токена, а также с локально истёкшим JWT возвращается ErrNoSession.
func (s *Service) Session(ctx context.Context) (*models.User, error) {
	const op = "auth.Session"

	token, err := s.client.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if token == "" {
		return nil, ErrNoSession
	}
	if jwt.Expired(token, s.now()) {
		s.log.Info("stored token expired, dropping session")
		if err = s.client.RemoveToken(ctx); err != nil {
			s.log.Error("failed to remove expired token", sl.Err(err))
		}
		return nil, ErrNoSession
	}

	dto, err := s.client.CurrentUser(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrNoSession, err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := dto.ToUser()
	s.checkExpiry(user)
	return user, nil
}

// CurrentUser возвращает пользователя сессии или nil.
// Ошибки только логируются.
func (s *Service) CurrentUser(ctx context.Context) *models.User {
	user, err := s.Session(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			s.log.Error("failed to load current user", sl.Err(err))
		}
		return nil
	}
	return user
}

// Logout удаляет токен сессии.
func (s *Service) Logout(ctx context.Context) error {
	const op = "auth.Logout"

	if err := s.client.RemoveToken(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged out")
	return nil
}

func (s *Service) checkExpiry(user *models.User) {
	if user.DowngradeIfExpired(s.now()) {
		s.log.Info("subscription expired, treating as NONE", slog.String("user_id", user.ID))
	}
}
