package documents

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Type}} - {{.Topic}}</title>
<style>
@page { margin: 2.5cm; size: A4; }
body { font-family: "Times New Roman", Times, serif; line-height: 1.5; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #000; padding: 8px; }
</style>
</head>
<body>
{{.Body}}
{{- if .Sources}}
<div class="footer-sources">
<strong>Foydalanilgan manbalar:</strong><br/>
{{- range .Sources}}
<div>&bull; <a href="{{.URI}}">{{.Title}}</a></div>
{{- end}}
</div>
{{- end}}
</body>
</html>
`))

// Printable оборачивает HTML документа в страницу для печати со списком источников.
// Содержимое документа вставляется как есть: его сформировал бэкенд.
func Printable(doc Document) ([]byte, error) {
	const op = "documents.Printable"

	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, struct {
		Type    models.DocumentType
		Topic   string
		Body    template.HTML
		Sources []models.GroundingSource
	}{
		Type:    doc.Type,
		Topic:   doc.Topic,
		Body:    template.HTML(doc.HTML), //nolint:gosec // HTML приходит от бэкенда
		Sources: doc.Sources,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}
