package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore хранит токен в файле, доступном только владельцу.
type FileStore struct {
	path string
}

// NewFileStore создаёт хранилище в каталоге dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, TokenKey)}
}

// Path возвращает путь к файлу с токеном.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Token(_ context.Context) (string, error) {
	const op = "session.FileStore.Token"
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) SetToken(_ context.Context, token string) error {
	const op = "session.FileStore.SetToken"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FileStore) RemoveToken(_ context.Context) error {
	const op = "session.FileStore.RemoveToken"
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
