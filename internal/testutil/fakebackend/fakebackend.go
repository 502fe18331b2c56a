// Package fakebackend поднимает в памяти HTTP-сервер с контрактом бэкенда Mirzo AI.
// Используется в тестах клиента, сервисов и CLI вместо настоящего API.
package fakebackend

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/password"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// AdminSecret — секрет входа администратора по умолчанию.
const AdminSecret = "admin-secret"

var signingKey = []byte("fakebackend-signing-key")

// Request — запрос, полученный сервером. Для multipart заполнены Form и Files.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
	Form   map[string][]string
	Files  map[string][]string
}

type account struct {
	user         models.UserDTO
	passwordHash string
	isActive     bool
}

type failure struct {
	status int
	body   any
}

// Backend — состояние фейкового бэкенда.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // по id
	tokens   map[string]string   // токен -> id
	history  map[string][]models.SavedDocument
	calls    map[string]int
	last     map[string]Request
	failures map[string]failure

	apiKey   string
	quote    string
	briefing any
	stats    map[string]any

	passwords password.Hasher
}

// New запускает сервер и останавливает его по завершении теста.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		history:  make(map[string][]models.SavedDocument),
		calls:    make(map[string]int),
		last:     make(map[string]Request),
		failures: make(map[string]failure),
		apiKey:   "AIzaSyD-fake-gemini-key",
		quote:    "Kichik qadamlar katta natijalarga olib keladi.",
		briefing: []string{
			"- Bugungi yig'ilish uchun hisobot tayyorlash",
			"- Yangi qarorlar bilan tanishib chiqish",
		},
		passwords: password.NewHasher(bcrypt.MinCost),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL возвращает базовый адрес API.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		b.record,
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/", b.register)
		r.Post("/auth/login/", b.login)
		r.Post("/auth/admin/", b.adminLogin)

		r.Group(func(r chi.Router) {
			r.Use(b.authenticate)
			r.Get("/auth/me/", b.me)

			r.Post("/documents/generate/", b.generate)
			r.Post("/documents/refine/", b.refine)
			r.Get("/documents/history/", b.listHistory)
			r.Delete("/documents/history/{id}/", b.deleteHistory)

			r.Get("/users/profile/", b.me)
			r.Put("/users/profile/", b.updateProfile)
			r.Post("/users/subscription/", b.uploadReceipt)

			r.Post("/ai/chat/", b.chat)
			r.Get("/ai/quote/", b.getQuote)
			r.Get("/ai/briefing/", b.getBriefing)
			r.Post("/ai/analyze-image/", b.analyzeImage)

			r.Group(func(r chi.Router) {
				r.Use(b.requireAdmin)
				r.Get("/admin/users/", b.listUsers)
				r.Post("/admin/users/", b.createUser)
				r.Get("/admin/users/{id}/", b.getUser)
				r.Put("/admin/users/{id}/", b.updateUser)
				r.Delete("/admin/users/{id}/", b.deleteUser)
				r.Put("/admin/users/{id}/subscription/", b.setSubscription)
				r.Get("/admin/stats/", b.getStats)
				r.Get("/admin/settings/gemini-api-key/", b.getAPIKey)
				r.Put("/admin/settings/gemini-api-key/", b.putAPIKey)
			})
		})
	})
	return r
}

func callKey(method, path string) string {
	return method + " " + strings.TrimPrefix(path, "/api")
}

// record запоминает каждый запрос и отдаёт заранее заданные сбои.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		req := Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		}
		if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mediaType, "multipart/") {
			cp := r.Clone(r.Context())
			cp.Body = io.NopCloser(bytes.NewReader(body))
			if err = cp.ParseMultipartForm(32 << 20); err == nil {
				req.Form = cp.MultipartForm.Value
				req.Files = make(map[string][]string)
				for field, headers := range cp.MultipartForm.File {
					for _, h := range headers {
						req.Files[field] = append(req.Files[field], h.Filename)
					}
				}
			}
		}

		key := callKey(r.Method, r.URL.Path)
		b.mu.Lock()
		b.calls[key]++
		b.last[key] = req
		f, failing := b.failures[key]
		b.mu.Unlock()

		if failing {
			render.Status(r, f.status)
			render.JSON(w, r, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail заставляет method path отвечать status с телом body.
func (b *Backend) Fail(method, path string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[callKey(method, path)] = failure{status: status, body: body}
}

// Recover отменяет Fail.
func (b *Backend) Recover(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, callKey(method, path))
}

// Calls возвращает число запросов к method path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[callKey(method, path)]
}

// Last возвращает последний запрос к method path.
func (b *Backend) Last(method, path string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.last[callKey(method, path)]
	return req, ok
}

// AddUser создаёт пользователя и возвращает его с id.
func (b *Backend) AddUser(u models.UserDTO, password string) models.UserDTO {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(u, password)
}

func (b *Backend) addUserLocked(u models.UserDTO, password string) models.UserDTO {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = string(models.StatusNone)
	}
	if u.History == nil {
		u.History = []models.SavedDocument{}
	}
	b.accounts[u.ID] = &account{user: u, passwordHash: b.hash(password), isActive: true}
	return u
}

// hash хранит пароль так же, как настоящий бэкенд, но с минимальной стоимостью bcrypt.
func (b *Backend) hash(plain string) string {
	h, err := b.passwords.Hash(plain)
	if err != nil {
		panic(err)
	}
	return h
}

// IssueToken выдаёт токен для пользователя id.
func (b *Backend) IssueToken(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(id)
}

func (b *Backend) issueTokenLocked(id string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	b.tokens[signed] = id
	return signed
}

// RevokeTokens делает все выданные токены недействительными.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

// SetStatus меняет статус подписки пользователя, как это делает администратор.
func (b *Backend) SetStatus(id string, status models.SubscriptionStatus, expiry string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.accounts[id]; ok {
		acc.user.SubscriptionStatus = string(status)
		acc.user.SubscriptionExpiry = expiry
	}
}

// UserByID возвращает текущее состояние пользователя.
func (b *Backend) UserByID(id string) (models.UserDTO, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[id]
	if !ok {
		return models.UserDTO{}, false
	}
	return acc.user, true
}

// SetQuote задаёт ответ /ai/quote/.
func (b *Backend) SetQuote(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quote = q
}

// SetBriefing задаёт ответ /ai/briefing/: строку или массив строк.
func (b *Backend) SetBriefing(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.briefing = v
}

// SetStats задаёт тело поля stats ответа /admin/stats/.
// По умолчанию сводка считается по пользователям.
func (b *Backend) SetStats(stats map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = stats
}

// APIKey возвращает сохранённый ключ AI-провайдера.
func (b *Backend) APIKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiKey
}
