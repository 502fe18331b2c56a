// Package jwt разбирает bearer-токены, выданные бэкендом.
//
// Ключа подписи у клиента нет, поэтому токен разбирается без проверки подписи
// и используется только для локального решения "сессия точно истекла".
// Непрозрачные (не JWT) токены считаются действительными до ответа 401.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims описывает поля, которые клиент читает из токена.
type Claims struct {
	UserID               string `json:"user_id"` // Идентификатор пользователя
	jwt.RegisteredClaims        // ExpiresAt, IssuedAt и пр.
}

// Inspect разбирает токен без проверки подписи.
func Inspect(tokenStr string) (*Claims, error) {
	const op = "jwt.Inspect"

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// Expired сообщает, истёк ли токен к моменту now.
// Для непрозрачных токенов и токенов без exp возвращает false.
func Expired(tokenStr string, now time.Time) bool {
	claims, err := Inspect(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
