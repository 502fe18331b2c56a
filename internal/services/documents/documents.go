// Package documents содержит сценарии работы с официальными документами:
// генерацию, доработку, историю и экспорт в HTML для печати.
package documents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// DefaultOrganization подставляется, если организация не указана ни в форме, ни в профиле.
const DefaultOrganization = "Farg'ona shahar hokimligi"

// Client описывает вызовы REST-клиента, нужные сервису.
type Client interface {
	GenerateDocument(ctx context.Context, req client.GenerateRequest) (*client.TextResponse, error)
	RefineDocument(ctx context.Context, req client.RefineRequest) (string, error)
	History(ctx context.Context) ([]models.SavedDocument, error)
	DeleteHistoryItem(ctx context.Context, id string) error
}

// GenerateForm — параметры генерации документа.
type GenerateForm struct {
	DocType      models.DocumentType
	Sector       models.Sector
	Topic        string
	Goal         string
	UseSearch    bool
	Organization string
	Files        []models.Attachment
}

// Document — результат генерации.
type Document struct {
	Type    models.DocumentType
	Topic   string
	HTML    string
	Sources []models.GroundingSource
}

// Service реализует работу с документами.
type Service struct {
	client Client
	log    *slog.Logger
}

// New создаёт сервис документов.
func New(c Client, log *slog.Logger) *Service {
	return &Service{client: c, log: log}
}

func (f *GenerateForm) normalize(user *models.User) error {
	var msgs []string

	f.Topic = strings.TrimSpace(f.Topic)
	f.Goal = strings.TrimSpace(f.Goal)
	f.Organization = strings.TrimSpace(f.Organization)

	if f.DocType == "" {
		f.DocType = models.DocReport
	}
	if f.Sector == "" {
		f.Sector = models.SectorGovernment
	}
	if f.Organization == "" && user != nil {
		f.Organization = user.Organization
	}
	if f.Organization == "" {
		f.Organization = DefaultOrganization
	}

	if f.Topic == "" {
		msgs = append(msgs, "field Topic is a required field")
	}
	if !f.DocType.Valid() {
		msgs = append(msgs, fmt.Sprintf("field DocType has unknown value %q", f.DocType))
	}
	if !f.Sector.Valid() {
		msgs = append(msgs, fmt.Sprintf("field Sector has unknown value %q", f.Sector))
	}
	if len(msgs) > 0 {
		return &response.FormError{Messages: msgs}
	}
	return nil
}

// Generate создаёт документ. Пустые тип и отрасль заменяются значениями по умолчанию,
// организация берётся из профиля user, если не указана.
// Бэкенд сам сохраняет результат в историю.
func (s *Service) Generate(ctx context.Context, user *models.User, form GenerateForm) (*Document, error) {
	const op = "documents.Generate"

	if err := form.normalize(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.client.GenerateDocument(ctx, client.GenerateRequest{
		DocType:      form.DocType,
		Sector:       form.Sector,
		Topic:        form.Topic,
		Goal:         form.Goal,
		UseSearch:    form.UseSearch,
		Organization: form.Organization,
		Files:        form.Files,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("document generated",
		slog.String("type", string(form.DocType)),
		slog.Int("files", len(form.Files)),
		slog.Int("sources", len(resp.Sources)),
	)
	return &Document{
		Type:    form.DocType,
		Topic:   form.Topic,
		HTML:    resp.Text,
		Sources: resp.Sources,
	}, nil
}

// Refine дорабатывает документ. Нужна инструкция или хотя бы один файл.
func (s *Service) Refine(ctx context.Context, originalHTML, instruction string, files []models.Attachment) (string, error) {
	const op = "documents.Refine"

	instruction = strings.TrimSpace(instruction)
	if strings.TrimSpace(originalHTML) == "" {
		return "", fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field OriginalHTML is a required field"}})
	}
	if instruction == "" && len(files) == 0 {
		return "", fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field Instruction is a required field"}})
	}

	text, err := s.client.RefineDocument(ctx, client.RefineRequest{
		OriginalHTML: originalHTML,
		Instruction:  instruction,
		Files:        files,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("document refined", slog.Int("files", len(files)))
	return text, nil
}

// History возвращает сохранённые документы.
func (s *Service) History(ctx context.Context) ([]models.SavedDocument, error) {
	const op = "documents.History"

	docs, err := s.client.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return docs, nil
}

// Find возвращает документ из истории по id.
func (s *Service) Find(ctx context.Context, id string) (*models.SavedDocument, error) {
	const op = "documents.Find"

	docs, err := s.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, fmt.Errorf("%s: document %s not found", op, id)
}

// Delete удаляет документ из истории.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "documents.Delete"

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", op, &response.FormError{Messages: []string{"field ID is a required field"}})
	}
	if err := s.client.DeleteHistoryItem(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("document deleted", slog.String("id", id))
	return nil
}
