package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

type ChatTurn struct {
	Role models.ChatRole `json:"role"`
	Text string          `json:"text"`
}

type chatPayload struct {
	History []ChatTurn `json:"history"`
	Message string     `json:"message"`
}

type quoteResponse struct {
	Success bool   `json:"success"`
	Quote   string `json:"quote"`
}

type briefingResponse struct {
	Success  bool            `json:"success"`
	Briefing json.RawMessage `json:"briefing"`
}

// Chat отправляет сообщение ассистенту вместе с историей диалога.
func (c *Client) Chat(ctx context.Context, history []ChatTurn, message string) (*TextResponse, error) {
	const op = "client.Chat"

	if history == nil {
		history = []ChatTurn{}
	}

	var resp TextResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai/chat/", chatPayload{History: history, Message: message}, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// MotivationalQuote возвращает цитату дня.
func (c *Client) MotivationalQuote(ctx context.Context) (string, error) {
	const op = "client.MotivationalQuote"

	var resp quoteResponse
	if err := c.doJSON(ctx, http.MethodGet, "/ai/quote/", nil, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.Quote, nil
}

// DailyBriefing возвращает план на день одной строкой.
// Если бэкенд прислал массив, элементы соединяются переводом строки.
func (c *Client) DailyBriefing(ctx context.Context) (string, error) {
	const op = "client.DailyBriefing"

	var resp briefingResponse
	if err := c.doJSON(ctx, http.MethodGet, "/ai/briefing/", nil, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var items []string
	if err := json.Unmarshal(resp.Briefing, &items); err == nil {
		return strings.Join(items, "\n"), nil
	}
	var text string
	if err := json.Unmarshal(resp.Briefing, &text); err != nil {
		return "", fmt.Errorf("%s: unexpected briefing format", op)
	}
	return text, nil
}

// AnalyzeImage отправляет изображение с вопросом и возвращает ответ модели.
func (c *Client) AnalyzeImage(ctx context.Context, image models.Attachment, prompt string) (string, error) {
	const op = "client.AnalyzeImage"

	fields := []formField{{name: "prompt", value: prompt}}
	files := []formFile{{field: "image", file: image}}

	var resp TextResponse
	if err := c.doMultipart(ctx, http.MethodPost, "/ai/analyze-image/", fields, files, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.Text, nil
}
