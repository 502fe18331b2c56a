// Package client реализует REST-клиент бэкенда Mirzo AI.
//
// Все ответы бэкенда имеют вид {"success": bool, ...}. Неуспешные ответы
// превращаются в *response.APIError с текстом, пригодным для показа пользователю.
// Токен сессии прикладывает транспорт (см. internal/http/transport), клиент лишь
// сохраняет его после входа и удаляет при выходе.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
)

// DefaultBaseURL — адрес боевого API.
const DefaultBaseURL = "https://mirzoaiapi.cdcgroup.uz/api"

// ErrUnauthorized — бэкенд отклонил сессию (HTTP 401).
var ErrUnauthorized = errors.New("unauthorized")

// Client — типизированный доступ к API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
}

// Option настраивает клиент при создании.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (например, с цепочкой транспорта).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New создаёт клиент для base. Пустой base означает DefaultBaseURL.
func New(base string, store session.Store, opts ...Option) (*Client, error) {
	const op = "client.New"

	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("%s: invalid api base url: %w", op, err)
	}
	if store == nil {
		store = session.NewMemoryStore("")
	}

	c := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL возвращает адрес API без завершающего слэша.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token возвращает сохранённый токен сессии.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.store.Token(ctx)
}

// SetToken сохраняет токен сессии.
func (c *Client) SetToken(ctx context.Context, token string) error {
	return c.store.SetToken(ctx, token)
}

// RemoveToken удаляет токен сессии.
func (c *Client) RemoveToken(ctx context.Context) error {
	return c.store.RemoveToken(ctx)
}

// IsUnauthorized сообщает, что бэкенд отклонил сессию.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || response.IsStatus(err, http.StatusUnauthorized)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, reader, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	err = response.Decode(resp.StatusCode, data, out)
	if err != nil && resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}
