package daily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// RedisTTL — срок жизни записи в redis. Запись за прошлый день всё равно
// заменяется при первом обращении, TTL только убирает брошенные ключи.
const RedisTTL = 48 * time.Hour

// FileStore хранит каждую запись в отдельном JSON-файле.
type FileStore struct {
	dir string
}

// NewFileStore создаёт хранилище в каталоге dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Load(_ context.Context, key string) (*models.DailyContent, error) {
	const op = "daily.FileStore.Load"

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var content models.DailyContent
	if err = json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &content, nil
}

func (s *FileStore) Save(_ context.Context, key string, content models.DailyContent) error {
	const op = "daily.FileStore.Save"

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp := s.path(key) + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = os.Rename(tmp, s.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	const op = "daily.FileStore.Delete"

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// KV — часть internal/cache, нужная хранилищу.
type KV interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// RedisStore хранит записи в redis через internal/cache.
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

// NewRedisStore создаёт хранилище с TTL записей RedisTTL.
func NewRedisStore(kv KV) *RedisStore {
	return &RedisStore{kv: kv, ttl: RedisTTL}
}

func (s *RedisStore) Load(ctx context.Context, key string) (*models.DailyContent, error) {
	const op = "daily.RedisStore.Load"

	var content models.DailyContent
	found, err := s.kv.Get(ctx, key, &content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	return &content, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, content models.DailyContent) error {
	const op = "daily.RedisStore.Save"

	if err := s.kv.Set(ctx, key, content, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	const op = "daily.RedisStore.Delete"

	if err := s.kv.Invalidate(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
