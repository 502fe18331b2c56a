package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

type GenerateRequest struct {
	DocType      models.DocumentType
	Sector       models.Sector
	Topic        string
	Goal         string
	UseSearch    bool
	Organization string
	Files        []models.Attachment
}

type TextResponse struct {
	Success bool                     `json:"success"`
	Text    string                   `json:"text"`
	Sources []models.GroundingSource `json:"sources,omitempty"`
}

type RefineRequest struct {
	OriginalHTML string
	Instruction  string
	Files        []models.Attachment
}

type HistoryResponse struct {
	Success bool                   `json:"success"`
	History []models.SavedDocument `json:"history"`
}

func attachments(field string, files []models.Attachment) []formFile {
	out := make([]formFile, 0, len(files))
	for _, f := range files {
		out = append(out, formFile{field: field, file: f})
	}
	return out
}

// GenerateDocument создаёт документ. Тело отправляется как multipart/form-data.
func (c *Client) GenerateDocument(ctx context.Context, req GenerateRequest) (*TextResponse, error) {
	const op = "client.GenerateDocument"

	fields := []formField{
		{name: "docType", value: string(req.DocType)},
		{name: "sector", value: string(req.Sector)},
		{name: "topic", value: req.Topic},
		{name: "goal", value: req.Goal},
		{name: "useSearch", value: strconv.FormatBool(req.UseSearch)},
		{name: "organization", value: req.Organization},
	}

	var resp TextResponse
	if err := c.doMultipart(ctx, http.MethodPost, "/documents/generate/", fields, attachments("files", req.Files), &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &resp, nil
}

// RefineDocument дорабатывает документ по инструкции и возвращает новый HTML.
func (c *Client) RefineDocument(ctx context.Context, req RefineRequest) (string, error) {
	const op = "client.RefineDocument"

	fields := []formField{
		{name: "originalHtml", value: req.OriginalHTML},
		{name: "instruction", value: req.Instruction},
	}

	var resp TextResponse
	if err := c.doMultipart(ctx, http.MethodPost, "/documents/refine/", fields, attachments("files", req.Files), &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.Text, nil
}

// History возвращает сохранённые документы.
func (c *Client) History(ctx context.Context) ([]models.SavedDocument, error) {
	const op = "client.History"

	var resp HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents/history/", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.History == nil {
		return []models.SavedDocument{}, nil
	}
	return resp.History, nil
}

// DeleteHistoryItem удаляет документ из истории.
func (c *Client) DeleteHistoryItem(ctx context.Context, id string) error {
	const op = "client.DeleteHistoryItem"

	if err := c.doJSON(ctx, http.MethodDelete, "/documents/history/"+url.PathEscape(id)+"/", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
