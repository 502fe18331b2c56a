package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// UserForm — данные пользователя для создания или изменения администратором.
// Для изменения nil-поля не отправляются.
type UserForm struct {
	FullName           *string
	PhoneNumber        *string
	Password           *string
	Organization       *string
	SubscriptionStatus *models.SubscriptionStatus
	IsAdmin            *bool
	IsActive           *bool
}

type usersResponse struct {
	Success bool             `json:"success"`
	Users   []models.UserDTO `json:"users"`
}

type statsResponse struct {
	Success bool           `json:"success"`
	Stats   map[string]any `json:"stats"`
}

type apiKeyResponse struct {
	Success      bool   `json:"success"`
	APIKeyMasked string `json:"api_key_masked"`
}

// createPayload строит тело запроса на создание с умолчаниями:
// статус NONE, не администратор, активен.
func (f UserForm) createPayload() map[string]any {
	status := models.StatusNone
	if f.SubscriptionStatus != nil && *f.SubscriptionStatus != "" {
		status = *f.SubscriptionStatus
	}
	isAdmin := f.IsAdmin != nil && *f.IsAdmin
	isActive := f.IsActive == nil || *f.IsActive

	return map[string]any{
		"full_name":           deref(f.FullName),
		"phone_number":        phone.Normalize(deref(f.PhoneNumber)),
		"password":            deref(f.Password),
		"organization":        deref(f.Organization),
		"subscription_status": status,
		"is_admin":            isAdmin,
		"is_active":           isActive,
	}
}

// updatePayload содержит только заданные непустые поля.
func (f UserForm) updatePayload() map[string]any {
	payload := map[string]any{}
	if v := deref(f.FullName); v != "" {
		payload["full_name"] = v
	}
	if v := deref(f.PhoneNumber); v != "" {
		payload["phone_number"] = phone.Normalize(v)
	}
	if v := deref(f.Password); v != "" {
		payload["password"] = v
	}
	if v := deref(f.Organization); v != "" {
		payload["organization"] = v
	}
	if f.SubscriptionStatus != nil && *f.SubscriptionStatus != "" {
		payload["subscription_status"] = *f.SubscriptionStatus
	}
	if f.IsAdmin != nil {
		payload["is_admin"] = *f.IsAdmin
	}
	if f.IsActive != nil {
		payload["is_active"] = *f.IsActive
	}
	return payload
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userPath(id string) string {
	return "/admin/users/" + url.PathEscape(id) + "/"
}

// Users возвращает всех пользователей.
func (c *Client) Users(ctx context.Context) ([]models.UserDTO, error) {
	const op = "client.Users"

	var resp usersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users/", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Users, nil
}

// User возвращает одного пользователя.
func (c *Client) User(ctx context.Context, id string) (*models.UserDTO, error) {
	const op = "client.User"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodGet, userPath(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%s: response has no user", op)
	}
	return resp.User, nil
}

// CreateUser создаёт пользователя.
func (c *Client) CreateUser(ctx context.Context, form UserForm) (*models.UserDTO, error) {
	const op = "client.CreateUser"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/users/", form.createPayload(), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.User, nil
}

// UpdateUser изменяет пользователя.
func (c *Client) UpdateUser(ctx context.Context, id string, form UserForm) (*models.UserDTO, error) {
	const op = "client.UpdateUser"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodPut, userPath(id), form.updatePayload(), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.User, nil
}

// DeleteUser удаляет пользователя.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	const op = "client.DeleteUser"

	if err := c.doJSON(ctx, http.MethodDelete, userPath(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetUserSubscription меняет статус подписки пользователя (одобрение или отказ).
func (c *Client) SetUserSubscription(ctx context.Context, id string, status models.SubscriptionStatus) error {
	const op = "client.SetUserSubscription"

	body := map[string]models.SubscriptionStatus{"status": status}
	if err := c.doJSON(ctx, http.MethodPut, userPath(id)+"subscription/", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stats возвращает сводку. Бэкенд отдаёт ключи как в snake_case, так и в camelCase.
func (c *Client) Stats(ctx context.Context) (*models.AdminStats, error) {
	const op = "client.Stats"

	var resp statsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/stats/", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AdminStats{
		PendingCount:  int(pickNumber(resp.Stats, "pending_count", "pendingCount")),
		ActiveCount:   int(pickNumber(resp.Stats, "active_subscription_count", "activeCount")),
		TotalEarnings: pickNumber(resp.Stats, "total_earnings", "totalEarnings"),
	}, nil
}

// pickNumber возвращает первое ненулевое числовое значение из keys.
func pickNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case json.Number:
			if f, err := v.Float64(); err == nil && f != 0 {
				return f
			}
		case string:
			var f float64
			if _, err := fmt.Sscan(v, &f); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}

// APIKey возвращает замаскированный ключ AI-провайдера.
func (c *Client) APIKey(ctx context.Context) (string, error) {
	const op = "client.APIKey"

	var resp apiKeyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/admin/settings/gemini-api-key/", nil, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.APIKeyMasked, nil
}

// UpdateAPIKey заменяет ключ AI-провайдера.
func (c *Client) UpdateAPIKey(ctx context.Context, key string) error {
	const op = "client.UpdateAPIKey"

	if err := c.doJSON(ctx, http.MethodPut, "/admin/settings/gemini-api-key/", map[string]string{"api_key": key}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
