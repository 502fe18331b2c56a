// Package response разбирает унифицированные JSON-ответы бэкенда вида
// {"success": bool, ...} и превращает неуспешные ответы в ошибки с текстом,
// который показывается пользователю как есть.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Envelope описывает общую часть любого ответа бэкенда.
// Error может быть строкой либо объектом вида {"поле": ["сообщение", ...]}.
type Envelope struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// APIError — ошибка, полученная от бэкенда.
type APIError struct {
	Status  int             // HTTP-статус ответа
	Message string          // Текст для пользователя
	Raw     json.RawMessage // Исходное значение поля error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return e.Message
}

// Decode разбирает тело ответа. При HTTP-статусе >= 400 или success=false
// возвращает *APIError, иначе декодирует тело целиком в out (если out != nil).
func Decode(status int, body []byte, out any) error {
	var env Envelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			if status >= http.StatusBadRequest {
				return &APIError{Status: status, Message: fallbackMessage(status, body)}
			}
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if status >= http.StatusBadRequest || !env.Success {
		msg := ErrorMessage(env.Error)
		if msg == "" {
			msg = env.Detail
		}
		if msg == "" {
			msg = fallbackMessage(status, nil)
		}
		return &APIError{Status: status, Message: msg, Raw: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func fallbackMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	if status >= http.StatusBadRequest {
		return http.StatusText(status)
	}
	return "request failed"
}

// ErrorMessage извлекает текст ошибки из поля error.
// Строка возвращается как есть; у объекта берётся первое сообщение первого поля;
// у массива — первый элемент.
func ErrorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
			return ErrorMessage(items[0])
		}
		return ""
	case '{':
		if value, ok := firstField(raw); ok {
			return ErrorMessage(value)
		}
		return ""
	}
	return string(raw)
}

// firstField возвращает значение первого поля объекта в порядке следования в JSON.
func firstField(raw json.RawMessage) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	if !dec.More() {
		return nil, false
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	var value json.RawMessage
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

// IsStatus сообщает, является ли err ошибкой бэкенда с указанным статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
