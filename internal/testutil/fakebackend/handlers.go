package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/phone"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// MonthlyPrice — цена подписки, из которой считается выручка в сводке.
const MonthlyPrice = 99000

type ctxKey struct{}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func ok(w http.ResponseWriter, r *http.Request, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	render.JSON(w, r, body)
}

func fail(w http.ResponseWriter, r *http.Request, status int, errBody any) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{"success": false, "error": errBody})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		id, found := b.tokens[token]
		_, exists := b.accounts[id]
		b.mu.Unlock()

		if token == "" || !found || !exists {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]any{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (b *Backend) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		acc := b.accounts[userID(r)]
		isAdmin := acc != nil && acc.user.IsAdmin
		b.mu.Unlock()

		if !isAdmin {
			fail(w, r, http.StatusForbidden, "Admin huquqi talab qilinadi")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) findByPhoneLocked(phoneNumber string) *account {
	for _, acc := range b.accounts {
		if acc.user.PhoneNumber == phoneNumber {
			return acc
		}
	}
	return nil
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName     string `json:"full_name"`
		PhoneNumber  string `json:"phone_number"`
		Password     string `json:"password"`
		Password2    string `json:"password2"`
		Organization string `json:"organization"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password != req.Password2 {
		fail(w, r, http.StatusBadRequest, map[string][]string{"password2": {"Parollar mos kelmadi"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findByPhoneLocked(req.PhoneNumber) != nil {
		fail(w, r, http.StatusBadRequest, map[string][]string{"phone_number": {"Bu raqam allaqachon ro'yxatdan o'tgan"}})
		return
	}
	u := b.addUserLocked(models.UserDTO{
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Organization: req.Organization,
	}, req.Password)
	token := b.issueTokenLocked(u.ID)
	ok(w, r, map[string]any{"token": token, "user": u})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		Password    string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.findByPhoneLocked(req.PhoneNumber)
	if acc == nil || b.passwords.Verify(acc.passwordHash, req.Password) != nil {
		fail(w, r, http.StatusBadRequest, "Telefon raqam yoki parol noto'g'ri")
		return
	}
	if !acc.isActive {
		fail(w, r, http.StatusForbidden, "Hisob bloklangan")
		return
	}
	ok(w, r, map[string]any{"token": b.issueTokenLocked(acc.user.ID), "user": acc.user})
}

func (b *Backend) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := decode(r, &req); err != nil || req.Secret != AdminSecret {
		fail(w, r, http.StatusBadRequest, map[string][]string{"secret": {"Maxfiy kalit noto'g'ri"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var admin *account
	for _, acc := range b.accounts {
		if acc.user.IsAdmin {
			admin = acc
			break
		}
	}
	if admin == nil {
		u := b.addUserLocked(models.UserDTO{FullName: "Administrator", IsAdmin: true}, "")
		admin = b.accounts[u.ID]
	}
	ok(w, r, map[string]any{"token": b.issueTokenLocked(admin.user.ID), "user": admin.user})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	u := b.accounts[userID(r)].user
	u.History = append([]models.SavedDocument{}, b.history[u.ID]...)
	b.mu.Unlock()
	ok(w, r, map[string]any{"user": u})
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName     string `json:"fullName"`
		Organization string `json:"organization"`
	}
	if err := decode(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	acc := b.accounts[userID(r)]
	if req.FullName != "" {
		acc.user.FullName = req.FullName
	}
	if req.Organization != "" {
		acc.user.Organization = req.Organization
	}
	u := acc.user
	b.mu.Unlock()
	ok(w, r, map[string]any{"user": u})
}

func (b *Backend) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil || len(r.MultipartForm.File["receipt"]) == 0 {
		fail(w, r, http.StatusBadRequest, map[string][]string{"receipt": {"Chek fayli talab qilinadi"}})
		return
	}

	b.mu.Lock()
	acc := b.accounts[userID(r)]
	acc.user.SubscriptionStatus = string(models.StatusPending)
	u := acc.user
	b.mu.Unlock()
	ok(w, r, map[string]any{"user": u})
}

func (b *Backend) generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	topic := r.FormValue("topic")
	if topic == "" {
		fail(w, r, http.StatusBadRequest, map[string][]string{"topic": {"Mavzu kiritilmagan"}})
		return
	}

	text := fmt.Sprintf("<h1>%s</h1><p>%s</p><p>%s</p>", topic, r.FormValue("goal"), r.FormValue("organization"))
	var sources []models.GroundingSource
	if r.FormValue("useSearch") == "true" {
		sources = []models.GroundingSource{{URI: "https://lex.uz", Title: "Lex.uz"}}
	}

	doc := models.SavedDocument{
		ID:      uuid.NewString(),
		Title:   topic,
		Type:    models.DocumentType(r.FormValue("docType")),
		Date:    time.Now().Format(time.RFC3339),
		Content: text,
	}
	b.mu.Lock()
	id := userID(r)
	b.history[id] = append([]models.SavedDocument{doc}, b.history[id]...)
	b.mu.Unlock()

	ok(w, r, map[string]any{"text": text, "sources": sources})
}

func (b *Backend) refine(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	text := r.FormValue("originalHtml") + "<p>" + r.FormValue("instruction") + "</p>"
	ok(w, r, map[string]any{"text": text})
}

func (b *Backend) listHistory(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	history := append([]models.SavedDocument{}, b.history[userID(r)]...)
	b.mu.Unlock()
	ok(w, r, map[string]any{"history": history})
}

func (b *Backend) deleteHistory(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	id := userID(r)
	docs := b.history[id]
	for i, d := range docs {
		if d.ID == docID {
			b.history[id] = append(docs[:i:i], docs[i+1:]...)
			ok(w, r, nil)
			return
		}
	}
	fail(w, r, http.StatusNotFound, "Hujjat topilmadi")
}

func (b *Backend) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		History []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"history"`
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil || req.Message == "" {
		fail(w, r, http.StatusBadRequest, "message is required")
		return
	}
	text := fmt.Sprintf("Javob (%d): %s", len(req.History), req.Message)
	ok(w, r, map[string]any{"text": text, "sources": []models.GroundingSource{}})
}

func (b *Backend) getQuote(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	q := b.quote
	b.mu.Unlock()
	ok(w, r, map[string]any{"quote": q})
}

func (b *Backend) getBriefing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	v := b.briefing
	b.mu.Unlock()
	ok(w, r, map[string]any{"briefing": v})
}

func (b *Backend) analyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil || len(r.MultipartForm.File["image"]) == 0 {
		fail(w, r, http.StatusBadRequest, map[string][]string{"image": {"Rasm yuklanmagan"}})
		return
	}
	name := r.MultipartForm.File["image"][0].Filename
	ok(w, r, map[string]any{"text": fmt.Sprintf("%s: %s", name, r.FormValue("prompt"))})
}

type adminUserForm struct {
	FullName           *string `json:"full_name"`
	PhoneNumber        *string `json:"phone_number"`
	Password           *string `json:"password"`
	Organization       *string `json:"organization"`
	SubscriptionStatus *string `json:"subscription_status"`
	IsAdmin            *bool   `json:"is_admin"`
	IsActive           *bool   `json:"is_active"`
}

func (b *Backend) applyForm(f adminUserForm, acc *account) {
	if f.FullName != nil {
		acc.user.FullName = *f.FullName
	}
	if f.PhoneNumber != nil {
		acc.user.PhoneNumber = *f.PhoneNumber
	}
	if f.Password != nil {
		acc.passwordHash = b.hash(*f.Password)
	}
	if f.Organization != nil {
		acc.user.Organization = *f.Organization
	}
	if f.SubscriptionStatus != nil {
		acc.user.SubscriptionStatus = *f.SubscriptionStatus
	}
	if f.IsAdmin != nil {
		acc.user.IsAdmin = *f.IsAdmin
	}
	if f.IsActive != nil {
		acc.isActive = *f.IsActive
	}
}

func (b *Backend) listUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	users := make([]models.UserDTO, 0, len(b.accounts))
	for _, acc := range b.accounts {
		users = append(users, acc.user)
	}
	b.mu.Unlock()
	ok(w, r, map[string]any{"users": users})
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var form adminUserForm
	if err := decode(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if form.PhoneNumber == nil || !phone.Valid(*form.PhoneNumber) {
		fail(w, r, http.StatusBadRequest, map[string][]string{"phone_number": {"Telefon raqam noto'g'ri"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findByPhoneLocked(*form.PhoneNumber) != nil {
		fail(w, r, http.StatusBadRequest, map[string][]string{"phone_number": {"Bu raqam allaqachon ro'yxatdan o'tgan"}})
		return
	}
	u := b.addUserLocked(models.UserDTO{}, "")
	acc := b.accounts[u.ID]
	b.applyForm(form, acc)
	ok(w, r, map[string]any{"user": acc.user})
}

func (b *Backend) withAccount(w http.ResponseWriter, r *http.Request, fn func(acc *account)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, found := b.accounts[chi.URLParam(r, "id")]
	if !found {
		fail(w, r, http.StatusNotFound, "Foydalanuvchi topilmadi")
		return
	}
	fn(acc)
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	b.withAccount(w, r, func(acc *account) {
		ok(w, r, map[string]any{"user": acc.user})
	})
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	var form adminUserForm
	if err := decode(r, &form); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	b.withAccount(w, r, func(acc *account) {
		b.applyForm(form, acc)
		ok(w, r, map[string]any{"user": acc.user})
	})
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	b.withAccount(w, r, func(acc *account) {
		delete(b.accounts, acc.user.ID)
		delete(b.history, acc.user.ID)
		ok(w, r, nil)
	})
}

func (b *Backend) setSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.SubscriptionStatus `json:"status"`
	}
	if err := decode(r, &req); err != nil || !req.Status.Valid() {
		fail(w, r, http.StatusBadRequest, map[string][]string{"status": {"Noto'g'ri holat"}})
		return
	}
	b.withAccount(w, r, func(acc *account) {
		acc.user.SubscriptionStatus = string(req.Status)
		acc.user.SubscriptionExpiry = ""
		if req.Status == models.StatusActive {
			acc.user.SubscriptionExpiry = time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339)
		}
		ok(w, r, map[string]any{"user": acc.user})
	})
}

func (b *Backend) getStats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stats != nil {
		ok(w, r, map[string]any{"stats": b.stats})
		return
	}

	var pending, active int
	for _, acc := range b.accounts {
		switch models.SubscriptionStatus(acc.user.SubscriptionStatus) {
		case models.StatusPending:
			pending++
		case models.StatusActive:
			active++
		}
	}
	ok(w, r, map[string]any{"stats": map[string]any{
		"pending_count":             pending,
		"active_subscription_count": active,
		"total_earnings":            active * MonthlyPrice,
	}})
}

func (b *Backend) getAPIKey(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	key := b.apiKey
	b.mu.Unlock()

	masked := strings.Repeat("*", len(key))
	if len(key) > 8 {
		masked = key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
	}
	ok(w, r, map[string]any{"api_key_masked": masked})
}

func (b *Backend) putAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		fail(w, r, http.StatusBadRequest, map[string][]string{"api_key": {"Kalit bo'sh bo'lmasligi kerak"}})
		return
	}
	b.mu.Lock()
	b.apiKey = strings.TrimSpace(req.APIKey)
	b.mu.Unlock()
	ok(w, r, nil)
}
