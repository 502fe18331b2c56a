// Package models содержит доменные структуры клиента Mirzo AI:
// пользователя, статус подписки, сохранённые документы и служебные записи.
// Сервер является источником истины, клиент только читает и отображает эти данные.
package models

import "time"

// SubscriptionStatus — статус подписки пользователя, который хранит сервер.
type SubscriptionStatus string

const (
	// Подписки нет либо она отклонена администратором.
	StatusNone SubscriptionStatus = "NONE"
	// Чек загружен и ожидает ручной проверки.
	StatusPending SubscriptionStatus = "PENDING"
	// Подписка оплачена и активна.
	StatusActive SubscriptionStatus = "ACTIVE"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusActive:
		return true
	}
	return false
}

// User представляет пользователя так, как его возвращает бэкенд.
// Пароль на клиенте никогда не хранится.
type User struct {
	ID                 string             `json:"id"`
	FullName           string             `json:"fullName"`
	PhoneNumber        string             `json:"phoneNumber"`
	Organization       string             `json:"organization"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiry *time.Time         `json:"subscriptionExpiry,omitempty"`
	History            []SavedDocument    `json:"history"`
	IsAdmin            bool               `json:"isAdmin"`
}

// HasAccess сообщает, открыты ли пользователю платные разделы.
func (u *User) HasAccess() bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || u.SubscriptionStatus == StatusActive
}

// DowngradeIfExpired переводит активную подписку с истёкшей датой в NONE.
// Проверка не авторитетна: сервер может считать иначе.
func (u *User) DowngradeIfExpired(now time.Time) bool {
	if u == nil || u.SubscriptionStatus != StatusActive || u.SubscriptionExpiry == nil {
		return false
	}
	if !now.After(*u.SubscriptionExpiry) {
		return false
	}
	u.SubscriptionStatus = StatusNone
	u.SubscriptionExpiry = nil
	return true
}

// UserDTO — пользователь в формате ответа бэкенда. Дата окончания подписки
// приходит строкой и разбирается в ToUser.
type UserDTO struct {
	ID                 string          `json:"id"`
	FullName           string          `json:"fullName"`
	PhoneNumber        string          `json:"phoneNumber"`
	Organization       string          `json:"organization"`
	SubscriptionStatus string          `json:"subscriptionStatus"`
	SubscriptionExpiry string          `json:"subscriptionExpiry,omitempty"`
	History            []SavedDocument `json:"history"`
	IsAdmin            bool            `json:"isAdmin"`
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExpiry разбирает дату окончания подписки в одном из форматов бэкенда.
// Пустая или нераспознанная строка даёт nil.
func ParseExpiry(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ToUser конвертирует ответ бэкенда в доменную модель.
func (d UserDTO) ToUser() *User {
	history := d.History
	if history == nil {
		history = []SavedDocument{}
	}
	return &User{
		ID:                 d.ID,
		FullName:           d.FullName,
		PhoneNumber:        d.PhoneNumber,
		Organization:       d.Organization,
		SubscriptionStatus: SubscriptionStatus(d.SubscriptionStatus),
		SubscriptionExpiry: ParseExpiry(d.SubscriptionExpiry),
		History:            history,
		IsAdmin:            d.IsAdmin,
	}
}
