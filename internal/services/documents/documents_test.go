package documents_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/transport"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/documents"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
	"github.com/magabrotheeeer/mirzo-ai/internal/testutil/fakebackend"
)

func newService(t *testing.T) (*documents.Service, *fakebackend.Backend) {
	t.Helper()
	b := fakebackend.New(t)
	u := b.AddUser(models.UserDTO{PhoneNumber: "998901234567", SubscriptionStatus: "ACTIVE"}, "secret1")
	store := session.NewMemoryStore(b.IssueToken(u.ID))

	httpClient := &http.Client{Transport: transport.Chain(nil, transport.BearerAuth(store, nil, sl.Discard()))}
	c, err := client.New(b.URL(), store, client.WithHTTPClient(httpClient))
	require.NoError(t, err)
	return documents.New(c, sl.Discard()), b
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and profile organization", func(t *testing.T) {
		svc, b := newService(t)
		user := &models.User{Organization: "Soliq qo'mitasi"}

		doc, err := svc.Generate(ctx, user, documents.GenerateForm{Topic: "  Choraklik hisobot "})
		require.NoError(t, err)
		assert.Equal(t, models.DocReport, doc.Type)
		assert.Equal(t, "Choraklik hisobot", doc.Topic)
		assert.Contains(t, doc.HTML, "Soliq qo'mitasi")

		last, _ := b.Last(http.MethodPost, "/documents/generate/")
		assert.Equal(t, []string{string(models.SectorGovernment)}, last.Form["sector"])
		assert.Equal(t, []string{"false"}, last.Form["useSearch"])
	})

	t.Run("default organization without profile", func(t *testing.T) {
		svc, b := newService(t)

		_, err := svc.Generate(ctx, nil, documents.GenerateForm{Topic: "Nutq", DocType: models.DocSpeech, UseSearch: true})
		require.NoError(t, err)
		last, _ := b.Last(http.MethodPost, "/documents/generate/")
		assert.Equal(t, []string{documents.DefaultOrganization}, last.Form["organization"])
	})

	t.Run("validation", func(t *testing.T) {
		svc, b := newService(t)

		_, err := svc.Generate(ctx, nil, documents.GenerateForm{DocType: "Roman"})
		var formErr *response.FormError
		require.True(t, errors.As(err, &formErr))
		assert.Equal(t, []string{
			"field Topic is a required field",
			`field DocType has unknown value "Roman"`,
		}, formErr.Messages)
		assert.Equal(t, 0, b.Calls(http.MethodPost, "/documents/generate/"))
	})
}

func TestService_RefineAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	doc, err := svc.Generate(ctx, nil, documents.GenerateForm{Topic: "Buyruq", DocType: models.DocOrder})
	require.NoError(t, err)

	_, err = svc.Refine(ctx, doc.HTML, " ", nil)
	assert.ErrorContains(t, err, "field Instruction is a required field")

	refined, err := svc.Refine(ctx, doc.HTML, "Rasmiyroq qiling", nil)
	require.NoError(t, err)
	assert.Contains(t, refined, "Rasmiyroq qiling")

	refined, err = svc.Refine(ctx, doc.HTML, "", []models.Attachment{{Name: "a.txt", Data: []byte("x")}})
	require.NoError(t, err)
	assert.NotEmpty(t, refined)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.DocOrder, history[0].Type)

	found, err := svc.Find(ctx, history[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Buyruq", found.Title)

	_, err = svc.Find(ctx, "missing")
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, svc.Delete(ctx, history[0].ID))
	history, err = svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Error(t, svc.Delete(ctx, ""))
}

func TestPrintable(t *testing.T) {
	out, err := documents.Printable(documents.Document{
		Type:    models.DocReport,
		Topic:   "Yillik",
		HTML:    "<h1>Yillik</h1>",
		Sources: []models.GroundingSource{{URI: "https://lex.uz", Title: "Lex"}},
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>Yillik</h1>")
	assert.Contains(t, html, `<a href="https://lex.uz">Lex</a>`)
	assert.Contains(t, html, "Foydalanilgan manbalar")

	out, err = documents.Printable(documents.Document{Type: models.DocReport, Topic: "T", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Foydalanilgan manbalar")
}
