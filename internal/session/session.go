// Package session хранит bearer-токен между запусками клиента.
//
// Токен прикладывается к каждому запросу и удаляется при явном выходе
// или при ответе 401 от бэкенда.
package session

import (
	"context"
	"sync"
)

// TokenKey — имя записи с токеном во всех хранилищах.
const TokenKey = "auth_token"

// Store описывает хранилище токена. Token возвращает пустую строку, если сессии нет.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	RemoveToken(ctx context.Context) error
}

// MemoryStore держит токен в памяти процесса.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore создаёт хранилище с начальным токеном.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) RemoveToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
