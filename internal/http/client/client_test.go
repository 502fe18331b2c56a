package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
	"github.com/magabrotheeeer/mirzo-ai/internal/testutil/fakebackend"
)

const testPhone = "998901234567"

func newTestClient(t *testing.T) (*Client, *fakebackend.Backend, *session.MemoryStore) {
	t.Helper()
	backend := fakebackend.New(t)
	store := session.NewMemoryStore("")
	c, err := New(backend.URL(), store, WithHTTPClient(&http.Client{Transport: bearer(store)}))
	require.NoError(t, err)
	return c, backend, store
}

// bearer прикладывает токен так же, как это делает transport.BearerAuth.
func bearer(store session.Store) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		token, _ := store.Token(r.Context())
		if token != "" {
			r = r.Clone(r.Context())
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return http.DefaultTransport.RoundTrip(r)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func loginUser(t *testing.T, c *Client, b *fakebackend.Backend, u models.UserDTO) models.UserDTO {
	t.Helper()
	if u.PhoneNumber == "" {
		u.PhoneNumber = testPhone
	}
	u = b.AddUser(u, "secret1")
	_, err := c.Login(context.Background(), u.PhoneNumber, "secret1")
	require.NoError(t, err)
	return u
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "empty uses default", base: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", base: "https://example.uz/api/", want: "https://example.uz/api"},
		{name: "scheme added", base: "example.uz/api", want: "https://example.uz/api"},
		{name: "http kept", base: "http://localhost:8000/api", want: "http://localhost:8000/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.base, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestClient_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores token and normalizes phone", func(t *testing.T) {
		c, b, store := newTestClient(t)

		resp, err := c.Register(ctx, RegisterRequest{
			FullName:     "Ali Valiyev",
			PhoneNumber:  "+998 (90) 123-45-67",
			Password:     "secret1",
			Organization: "Hokimiyat",
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, testPhone, resp.User.PhoneNumber)

		token, _ := store.Token(ctx)
		assert.Equal(t, resp.Token, token)

		last, found := b.Last(http.MethodPost, "/auth/register/")
		require.True(t, found)
		var body map[string]string
		require.NoError(t, json.Unmarshal(last.Body, &body))
		assert.Equal(t, testPhone, body["phone_number"])
		assert.Equal(t, "secret1", body["password2"])
		assert.Equal(t, "Ali Valiyev", body["full_name"])
	})

	t.Run("field error shown as first message", func(t *testing.T) {
		c, b, store := newTestClient(t)
		b.AddUser(models.UserDTO{PhoneNumber: testPhone}, "x")

		_, err := c.Register(ctx, RegisterRequest{FullName: "A", PhoneNumber: testPhone, Password: "secret1", Organization: "O"})
		require.Error(t, err)
		var apiErr *response.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Bu raqam allaqachon ro'yxatdan o'tgan", apiErr.Message)

		token, _ := store.Token(ctx)
		assert.Empty(t, token)
	})
}

func TestClient_LoginAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)

	_, err := c.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(ctx, "901234567", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Telefon raqam yoki parol noto'g'ri")
	assert.False(t, IsUnauthorized(err))

	u := loginUser(t, c, b, models.UserDTO{FullName: "Ali", SubscriptionStatus: "ACTIVE"})

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)
	assert.Equal(t, "ACTIVE", me.SubscriptionStatus)
}

func TestClient_LoginAsAdmin(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestClient(t)

	_, err := c.LoginAsAdmin(ctx, "nope")
	require.Error(t, err)
	assert.EqualError(t, errors.Unwrap(err), "Maxfiy kalit noto'g'ri")

	resp, err := c.LoginAsAdmin(ctx, fakebackend.AdminSecret)
	require.NoError(t, err)
	assert.True(t, resp.User.IsAdmin)
	token, _ := store.Token(ctx)
	assert.NotEmpty(t, token)
}

func TestClient_Documents(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)
	loginUser(t, c, b, models.UserDTO{SubscriptionStatus: "ACTIVE"})

	resp, err := c.GenerateDocument(ctx, GenerateRequest{
		DocType:      models.DocReport,
		Sector:       models.SectorTax,
		Topic:        "Yillik hisobot",
		Goal:         "Natijalarni ko'rsatish",
		UseSearch:    true,
		Organization: "Soliq qo'mitasi",
		Files: []models.Attachment{
			{Name: "data.txt", ContentType: "text/plain", Data: []byte("raqamlar")},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "<h1>Yillik hisobot</h1>")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://lex.uz", resp.Sources[0].URI)

	last, _ := b.Last(http.MethodPost, "/documents/generate/")
	assert.Equal(t, []string{string(models.DocReport)}, last.Form["docType"])
	assert.Equal(t, []string{string(models.SectorTax)}, last.Form["sector"])
	assert.Equal(t, []string{"true"}, last.Form["useSearch"])
	assert.Equal(t, []string{"data.txt"}, last.Files["files"])

	refined, err := c.RefineDocument(ctx, RefineRequest{OriginalHTML: resp.Text, Instruction: "Qisqartiring"})
	require.NoError(t, err)
	assert.Contains(t, refined, "<p>Qisqartiring</p>")

	history, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Yillik hisobot", history[0].Title)

	require.NoError(t, c.DeleteHistoryItem(ctx, history[0].ID))
	history, err = c.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)

	err = c.DeleteHistoryItem(ctx, "missing")
	assert.True(t, response.IsStatus(err, http.StatusNotFound))
}

func TestClient_Profile(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)
	loginUser(t, c, b, models.UserDTO{FullName: "Ali", Organization: "Old"})

	updated, err := c.UpdateProfile(ctx, ProfileUpdate{Organization: "New"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Ali", updated.FullName)
	assert.Equal(t, "New", updated.Organization)

	last, _ := b.Last(http.MethodPut, "/users/profile/")
	assert.JSONEq(t, `{"organization":"New"}`, string(last.Body))

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", profile.Organization)
}

func TestClient_UploadReceipt(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)
	loginUser(t, c, b, models.UserDTO{})

	_, err := c.UploadReceipt(ctx, nil)
	assert.ErrorIs(t, err, ErrReceiptRequired)
	assert.Equal(t, 0, b.Calls(http.MethodPost, "/users/subscription/"))

	u, err := c.UploadReceipt(ctx, &models.Attachment{Name: "chek.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusPending), u.SubscriptionStatus)

	last, _ := b.Last(http.MethodPost, "/users/subscription/")
	assert.Equal(t, []string{"chek.jpg"}, last.Files["receipt"])
}

func TestClient_AI(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)
	loginUser(t, c, b, models.UserDTO{SubscriptionStatus: "ACTIVE"})

	resp, err := c.Chat(ctx, []ChatTurn{{Role: models.RoleUser, Text: "Salom"}, {Role: models.RoleModel, Text: "Salom!"}}, "Qanday?")
	require.NoError(t, err)
	assert.Equal(t, "Javob (2): Qanday?", resp.Text)

	resp, err = c.Chat(ctx, nil, "Birinchi")
	require.NoError(t, err)
	assert.Equal(t, "Javob (0): Birinchi", resp.Text)
	last, _ := b.Last(http.MethodPost, "/ai/chat/")
	assert.JSONEq(t, `{"history":[],"message":"Birinchi"}`, string(last.Body))

	b.SetQuote("Ilm kuchdir")
	quote, err := c.MotivationalQuote(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ilm kuchdir", quote)

	text, err := c.AnalyzeImage(ctx, models.Attachment{Name: "xarita.png", Data: []byte("png")}, "Nima bor?")
	require.NoError(t, err)
	assert.Equal(t, "xarita.png: Nima bor?", text)
}

func TestClient_DailyBriefing(t *testing.T) {
	tests := []struct {
		name     string
		briefing any
		want     string
	}{
		{name: "array joined", briefing: []string{"- bir", "- ikki"}, want: "- bir\n- ikki"},
		{name: "string as is", briefing: "- bir\n- ikki", want: "- bir\n- ikki"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b, _ := newTestClient(t)
			loginUser(t, c, b, models.UserDTO{})
			b.SetBriefing(tt.briefing)

			got, err := c.DailyBriefing(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Admin(t *testing.T) {
	ctx := context.Background()
	c, b, _ := newTestClient(t)

	_, err := c.LoginAsAdmin(ctx, fakebackend.AdminSecret)
	require.NoError(t, err)

	name, phoneNumber, password, org := "Vali", "90 765 43 21", "secret1", "Vazirlik"
	created, err := c.CreateUser(ctx, UserForm{FullName: &name, PhoneNumber: &phoneNumber, Password: &password, Organization: &org})
	require.NoError(t, err)
	require.NotNil(t, created)

	last, _ := b.Last(http.MethodPost, "/admin/users/")
	assert.JSONEq(t, `{
		"full_name": "Vali",
		"phone_number": "998907654321",
		"password": "secret1",
		"organization": "Vazirlik",
		"subscription_status": "NONE",
		"is_admin": false,
		"is_active": true
	}`, string(last.Body))

	newOrg := "Hokimiyat"
	updated, err := c.UpdateUser(ctx, created.ID, UserForm{Organization: &newOrg})
	require.NoError(t, err)
	assert.Equal(t, "Hokimiyat", updated.Organization)
	assert.Equal(t, "Vali", updated.FullName)
	last, _ = b.Last(http.MethodPut, "/admin/users/"+created.ID+"/")
	assert.JSONEq(t, `{"organization":"Hokimiyat"}`, string(last.Body))

	require.NoError(t, c.SetUserSubscription(ctx, created.ID, models.StatusActive))
	got, err := c.User(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", got.SubscriptionStatus)
	assert.NotEmpty(t, got.SubscriptionExpiry)

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AdminStats{ActiveCount: 1, TotalEarnings: fakebackend.MonthlyPrice}, *stats)

	require.NoError(t, c.UpdateAPIKey(ctx, "AIzaNEWKEY123456"))
	masked, err := c.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza********3456", masked)

	require.NoError(t, c.DeleteUser(ctx, created.ID))
	_, err = c.User(ctx, created.ID)
	assert.True(t, response.IsStatus(err, http.StatusNotFound))
}

func TestClient_StatsKeys(t *testing.T) {
	tests := []struct {
		name  string
		stats map[string]any
		want  models.AdminStats
	}{
		{
			name:  "snake case",
			stats: map[string]any{"pending_count": 2, "active_subscription_count": 5, "total_earnings": 495000},
			want:  models.AdminStats{PendingCount: 2, ActiveCount: 5, TotalEarnings: 495000},
		},
		{
			name:  "camel case",
			stats: map[string]any{"pendingCount": 1, "activeCount": 3, "totalEarnings": "297000"},
			want:  models.AdminStats{PendingCount: 1, ActiveCount: 3, TotalEarnings: 297000},
		},
		{
			name:  "missing keys",
			stats: map[string]any{},
			want:  models.AdminStats{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, b, _ := newTestClient(t)
			_, err := c.LoginAsAdmin(context.Background(), fakebackend.AdminSecret)
			require.NoError(t, err)
			b.SetStats(tt.stats)

			got, err := c.Stats(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestClient_AdminForbiddenForUsers(t *testing.T) {
	c, b, _ := newTestClient(t)
	loginUser(t, c, b, models.UserDTO{})

	_, err := c.Users(context.Background())
	require.Error(t, err)
	assert.True(t, response.IsStatus(err, http.StatusForbidden))
	assert.Contains(t, err.Error(), "Admin huquqi talab qilinadi")
}
