package session

import (
	"context"
	"fmt"
	"time"
)

// KV — часть internal/cache, нужная хранилищу.
type KV interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// RedisStore хранит токен в redis. Ключ дополняется идентификатором профиля,
// чтобы на одной машине могли работать несколько учётных записей.
type RedisStore struct {
	kv  KV
	key string
}

// NewRedisStore создаёт хранилище для профиля profile.
func NewRedisStore(kv KV, profile string) *RedisStore {
	key := TokenKey
	if profile != "" {
		key = TokenKey + ":" + profile
	}
	return &RedisStore{kv: kv, key: key}
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	const op = "session.RedisStore.Token"
	var token string
	found, err := s.kv.Get(ctx, s.key, &token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", nil
	}
	return token, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	const op = "session.RedisStore.SetToken"
	if err := s.kv.Set(ctx, s.key, token, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) RemoveToken(ctx context.Context) error {
	const op = "session.RedisStore.RemoveToken"
	if err := s.kv.Invalidate(ctx, s.key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
