package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

type AuthResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	User    models.UserDTO `json:"user"`
}

type UserResponse struct {
	Success bool            `json:"success"`
	User    *models.UserDTO `json:"user"`
}

// RegisterRequest — данные для регистрации. Номер нормализуется клиентом.
type RegisterRequest struct {
	FullName     string
	PhoneNumber  string
	Password     string
	Organization string
}

type registerPayload struct {
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	Password     string `json:"password"`
	Password2    string `json:"password2"`
	Organization string `json:"organization"`
}

type loginPayload struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// Register регистрирует пользователя и сохраняет выданный токен.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	const op = "client.Register"

	var resp AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/register/", registerPayload{
		FullName:     req.FullName,
		PhoneNumber:  phone.Normalize(req.PhoneNumber),
		Password:     req.Password,
		Password2:    req.Password,
		Organization: req.Organization,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = c.keepToken(ctx, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// Login выполняет вход по номеру телефона и паролю.
func (c *Client) Login(ctx context.Context, phoneNumber, password string) (*AuthResponse, error) {
	const op = "client.Login"

	var resp AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login/", loginPayload{
		PhoneNumber: phone.Normalize(phoneNumber),
		Password:    password,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = c.keepToken(ctx, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// LoginAsAdmin выполняет вход администратора по секрету.
func (c *Client) LoginAsAdmin(ctx context.Context, secret string) (*AuthResponse, error) {
	const op = "client.LoginAsAdmin"

	var resp AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/admin/", map[string]string{"secret": secret}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = c.keepToken(ctx, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

func (c *Client) keepToken(ctx context.Context, resp *AuthResponse) error {
	if !resp.Success || resp.Token == "" {
		return nil
	}
	return c.store.SetToken(ctx, resp.Token)
}

// CurrentUser возвращает пользователя текущей сессии.
func (c *Client) CurrentUser(ctx context.Context) (*models.UserDTO, error) {
	const op = "client.CurrentUser"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me/", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%s: response has no user", op)
	}
	return resp.User, nil
}
