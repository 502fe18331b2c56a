// Package attachment читает локальные файлы для отправки в multipart-запросах.
package attachment

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// MaxSize — предельный размер одного файла.
const MaxSize = 20 << 20

// ErrTooLarge — файл превышает MaxSize.
var ErrTooLarge = errors.New("file is too large")

// ErrNotImage — ожидалось изображение.
var ErrNotImage = errors.New("file is not an image")

// Load читает файл и определяет его тип по расширению, а если не вышло, по содержимому.
func Load(path string) (models.Attachment, error) {
	const op = "attachment.Load"

	info, err := os.Stat(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%s: %w", op, err)
	}
	if info.IsDir() {
		return models.Attachment{}, fmt.Errorf("%s: %s is a directory", op, path)
	}
	if info.Size() > MaxSize {
		return models.Attachment{}, fmt.Errorf("%s: %s: %w", op, path, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%s: %w", op, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return models.Attachment{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// LoadAll читает несколько файлов.
func LoadAll(paths []string) ([]models.Attachment, error) {
	files := make([]models.Attachment, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadImage читает файл и проверяет, что это изображение.
func LoadImage(path string) (models.Attachment, error) {
	const op = "attachment.LoadImage"

	f, err := Load(path)
	if err != nil {
		return models.Attachment{}, err
	}
	if !IsImage(f) {
		return models.Attachment{}, fmt.Errorf("%s: %s: %w", op, f.Name, ErrNotImage)
	}
	return f, nil
}

// IsImage сообщает, является ли вложение изображением.
func IsImage(f models.Attachment) bool {
	return strings.HasPrefix(f.ContentType, "image/") ||
		strings.HasPrefix(http.DetectContentType(f.Data), "image/")
}
