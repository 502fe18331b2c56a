package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// ErrReceiptRequired — чек об оплате не приложен.
var ErrReceiptRequired = errors.New("receipt file is required")

// ProfileUpdate — изменяемые поля профиля. Пустые поля не отправляются.
type ProfileUpdate struct {
	FullName     string `json:"fullName,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Profile возвращает профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (*models.UserDTO, error) {
	const op = "client.Profile"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodGet, "/users/profile/", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%s: response has no user", op)
	}
	return resp.User, nil
}

// UpdateProfile обновляет профиль и возвращает пользователя, если бэкенд его прислал.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.UserDTO, error) {
	const op = "client.UpdateProfile"

	var resp UserResponse
	if err := c.doJSON(ctx, http.MethodPut, "/users/profile/", upd, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.User, nil
}

// UploadReceipt отправляет чек об оплате. После успешной загрузки подписка
// обычно переходит в статус PENDING до решения администратора.
func (c *Client) UploadReceipt(ctx context.Context, receipt *models.Attachment) (*models.UserDTO, error) {
	const op = "client.UploadReceipt"

	if receipt == nil || len(receipt.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrReceiptRequired)
	}

	var resp UserResponse
	files := []formFile{{field: "receipt", file: *receipt}}
	if err := c.doMultipart(ctx, http.MethodPost, "/users/subscription/", nil, files, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%s: response has no user", op)
	}
	return resp.User, nil
}
