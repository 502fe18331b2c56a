package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
	"github.com/magabrotheeeer/mirzo-ai/internal/session"
	"github.com/magabrotheeeer/mirzo-ai/internal/testutil/fakebackend"
)

const (
	testPhone    = "998901234567"
	testPassword = "secret1"
)

type env struct {
	backend  *fakebackend.Backend
	stateDir string
	cfgFile  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	backend := fakebackend.New(t)
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")

	cfg := fmt.Sprintf(`env: local
api:
  base_url: %s
  timeout: 5s
  rate_limit: 1000
  rate_burst: 1000
storage:
  backend: file
  state_dir: %s
pending:
  poll_interval: 20ms
  countdown: 600s
`, backend.URL(), stateDir)
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o600))

	return &env{backend: backend, stateDir: stateDir, cfgFile: cfgFile}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (e *env) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--config", e.cfgFile, "--color", "never"}, args...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	code := Execute(ctx, args, WithIO(strings.NewReader(stdin), &out, &errOut))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (e *env) addUser(status models.SubscriptionStatus) models.UserDTO {
	return e.backend.AddUser(models.UserDTO{
		FullName:           "Aziz Karimov",
		PhoneNumber:        testPhone,
		Organization:       "Hokimlik",
		SubscriptionStatus: string(status),
	}, testPassword)
}

func (e *env) login(t *testing.T, status models.SubscriptionStatus) models.UserDTO {
	t.Helper()
	u := e.addUser(status)
	res := e.run(t, "", "login", "--phone", "901234567", "--password", testPassword)
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	return u
}

func (e *env) tokenPath() string {
	return filepath.Join(e.stateDir, session.TokenKey)
}

func TestAuthCommandsShowAuthScreen(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "login", args: []string{"login", "--phone", "901234567", "--password", "wrong1"}},
		{name: "register", args: []string{"register", "--name", "A", "--phone", "1", "--org", "Hokimlik", "--password", "x", "--password2", "y"}},
		{name: "admin-login", args: []string{"admin-login", "--secret", "wrong"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.addUser(models.StatusActive)

			var out, errOut bytes.Buffer
			r := newRuntime(WithIO(strings.NewReader(""), &out, &errOut))
			defer r.close()
			root := r.rootCmd()
			root.SetArgs(append([]string{"--config", e.cfgFile, "--color", "never"}, tt.args...))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			require.Error(t, root.ExecuteContext(ctx))

			require.NotNil(t, r.app)
			assert.Equal(t, app.ScreenAuth, r.app.Controller.Screen())
		})
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newEnv(t)
	e.addUser(models.StatusActive)

	res := e.run(t, "", "login", "--phone", "90 123 45 67", "--password", testPassword)
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Signed in as Aziz Karimov")
	assert.Contains(t, res.stdout, "[ACTIVE]")
	assert.FileExists(t, e.tokenPath())

	res = e.run(t, "", "whoami")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Aziz Karimov")
	assert.Contains(t, res.stdout, "+998901234567")
	assert.Contains(t, res.stdout, "Hokimlik")

	res = e.run(t, "", "logout")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.NoFileExists(t, e.tokenPath())

	res = e.run(t, "", "whoami")
	assert.Equal(t, output.ExitUnauthorized, res.code)
	assert.Contains(t, res.stderr, "not logged in")
}

func TestLoginPrompts(t *testing.T) {
	e := newEnv(t)
	e.addUser(models.StatusPending)

	res := e.run(t, "901234567\n"+testPassword+"\n", "login")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Phone: ")
	assert.Contains(t, res.stderr, "Password: ")
	assert.Contains(t, res.stdout, "mirzo subscription wait")
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.addUser(models.StatusActive)

	res := e.run(t, "", "login", "--phone", "901234567", "--password", "wrong1")
	assert.Equal(t, output.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, "Telefon raqam yoki parol noto'g'ri")
	assert.NoFileExists(t, e.tokenPath())
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:     "success",
			stdin:    "Dilnoza Rahimova\n901112233\nVazirlik\nsecret1\nsecret1\n",
			wantCode: output.ExitSuccess,
			wantOut:  "Signed in as Dilnoza Rahimova",
		},
		{
			name:     "passwords differ",
			stdin:    "Dilnoza Rahimova\n901112233\nVazirlik\nsecret1\nsecret2\n",
			wantCode: output.ExitUsageError,
			wantErr:  "invalid input",
		},
		{
			name:     "bad phone",
			stdin:    "Dilnoza Rahimova\n12\nVazirlik\nsecret1\nsecret1\n",
			wantCode: output.ExitUsageError,
			wantErr:  "invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			res := e.run(t, tt.stdin, "register")

			assert.Equal(t, tt.wantCode, res.code, res.stderr)
			if tt.wantOut != "" {
				assert.Contains(t, res.stdout, tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, res.stderr, tt.wantErr)
			}
		})
	}
}

func TestStatusAndView(t *testing.T) {
	tests := []struct {
		name     string
		status   models.SubscriptionStatus
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "active status", status: models.StatusActive, args: []string{"status"}, wantOut: "DASHBOARD"},
		{name: "pending status", status: models.StatusPending, args: []string{"status"}, wantOut: "PENDING_SUBSCRIPTION"},
		{name: "none status locked", status: models.StatusNone, args: []string{"status"}, wantOut: "LOCKED"},
		{name: "none opens profile", status: models.StatusNone, args: []string{"view", "profile"}, wantOut: "PROFILE"},
		{name: "none generator locked", status: models.StatusNone, args: []string{"view", "doc-generator"}, wantCode: output.ExitLocked},
		{name: "active generator", status: models.StatusActive, args: []string{"view", "doc_generator"}, wantOut: "DOC_GENERATOR"},
		{name: "unknown view", status: models.StatusActive, args: []string{"view", "settings"}, wantCode: output.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.login(t, tt.status)

			res := e.run(t, "", tt.args...)
			assert.Equal(t, tt.wantCode, res.code, res.stderr)
			if tt.wantOut != "" {
				assert.Contains(t, res.stdout, tt.wantOut)
			}
		})
	}
}

func TestStatusWithoutSession(t *testing.T) {
	e := newEnv(t)

	res := e.run(t, "", "status")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "LANDING")
	assert.Contains(t, res.stdout, "none")
}

func TestLockedSectionsExitCode(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusNone)

	for _, args := range [][]string{
		{"doc", "history"},
		{"doc", "generate", "--topic", "Hisobot"},
		{"daily"},
		{"quote"},
	} {
		res := e.run(t, "", args...)
		assert.Equal(t, output.ExitLocked, res.code, strings.Join(args, " "))
		assert.Contains(t, res.stderr, "active subscription")
	}
	assert.Zero(t, e.backend.Calls("POST", "/documents/generate/"))
}

func TestDocGenerateAndHistory(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)
	out := filepath.Join(t.TempDir(), "doc.html")

	res := e.run(t, "", "doc", "generate",
		"--type", "1", "--sector", "1",
		"--topic", "Yillik hisobot", "--goal", "Natijalarni jamlash",
		"--search", "--out", out)
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Document saved to")

	page, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Yillik hisobot</h1>")
	assert.Contains(t, string(page), "Hokimlik")
	assert.Contains(t, string(page), "https://lex.uz")

	res = e.run(t, "", "doc", "history")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Yillik hisobot")
}

func TestDocGenerateStdout(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)

	res := e.run(t, "", "-q", "doc", "generate", "--topic", "Xat")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "<h1>Xat</h1>")
	assert.NotContains(t, res.stdout, "[OK]")
}

func TestDocGenerateBadChoice(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)

	res := e.run(t, "", "doc", "generate", "--type", "99", "--topic", "Xat")
	assert.Equal(t, output.ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "unknown document type")
	assert.Zero(t, e.backend.Calls("POST", "/documents/generate/"))
}

func TestDailyIsCached(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)
	e.backend.SetQuote("Ilm – najot kaliti")

	for range 2 {
		res := e.run(t, "", "daily")
		require.Equal(t, output.ExitSuccess, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Ilm – najot kaliti")
	}
	assert.Equal(t, 1, e.backend.Calls("GET", "/ai/quote/"))

	res := e.run(t, "", "daily", "--reset")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Equal(t, 2, e.backend.Calls("GET", "/ai/quote/"))
}

func TestSubscriptionUploadAndWait(t *testing.T) {
	e := newEnv(t)
	u := e.login(t, models.StatusNone)

	receipt := filepath.Join(t.TempDir(), "check.png")
	require.NoError(t, os.WriteFile(receipt, []byte("\x89PNG\r\n\x1a\nreceipt"), 0o600))

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if got, ok := e.backend.UserByID(u.ID); ok && got.SubscriptionStatus == string(models.StatusPending) {
				time.Sleep(50 * time.Millisecond)
				e.backend.SetStatus(u.ID, models.StatusActive, time.Now().AddDate(0, 1, 0).UTC().Format(time.RFC3339))
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	res := e.run(t, "", "subscription", "upload", receipt, "--wait")
	<-done
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Receipt check.png sent")
	assert.Contains(t, res.stdout, "Subscription activated")

	res = e.run(t, "", "status")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[ACTIVE]")
}

func TestSubscriptionWaitRejected(t *testing.T) {
	e := newEnv(t)
	u := e.login(t, models.StatusPending)

	go func() {
		time.Sleep(60 * time.Millisecond)
		e.backend.SetStatus(u.ID, models.StatusNone, "")
	}()

	res := e.run(t, "", "subscription", "wait")
	assert.Equal(t, output.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, "receipt was rejected")
}

func TestSubscriptionWaitWithoutReceipt(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusNone)

	res := e.run(t, "", "subscription", "wait")
	assert.Equal(t, output.ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "no receipt is under review")
}

func TestSubscriptionInfo(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusNone)

	res := e.run(t, "", "sub", "info")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "$")
	assert.Contains(t, res.stdout, "so'm")
	assert.Contains(t, res.stdout, "mirzo subscription upload")
}

func TestRevokedTokenClearsSession(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)
	require.FileExists(t, e.tokenPath())

	e.backend.RevokeTokens()

	res := e.run(t, "", "doc", "history")
	assert.Equal(t, output.ExitUnauthorized, res.code)
	assert.Contains(t, res.stderr, "not logged in")
	assert.NoFileExists(t, e.tokenPath())
}

func TestAdminFlow(t *testing.T) {
	e := newEnv(t)
	u := e.addUser(models.StatusPending)

	res := e.run(t, "", "admin-login", "--secret", fakebackend.AdminSecret)
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Administrator session")

	res = e.run(t, "", "status")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ADMIN")

	res = e.run(t, "", "admin", "users")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Aziz Karimov")
	assert.NotContains(t, res.stdout, "(admin)")

	res = e.run(t, "", "admin", "approve", u.ID)
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	got, ok := e.backend.UserByID(u.ID)
	require.True(t, ok)
	assert.Equal(t, string(models.StatusActive), got.SubscriptionStatus)

	res = e.run(t, "", "admin", "users", "--all")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "(admin)")

	res = e.run(t, "", "admin", "apikey", "--set", "sk-new")
	require.Equal(t, output.ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "sk-new", e.backend.APIKey())
}

func TestAdminLoginWrongSecret(t *testing.T) {
	e := newEnv(t)

	res := e.run(t, "", "admin-login", "--secret", "nope")
	assert.Equal(t, output.ExitGeneral, res.code)
	assert.Contains(t, res.stderr, "Maxfiy kalit noto'g'ri")
}

func TestAdminRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.login(t, models.StatusActive)

	res := e.run(t, "", "admin", "stats")
	assert.Equal(t, output.ExitUnauthorized, res.code)
	assert.Contains(t, res.stderr, "admin access required")
}

func TestConfigErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute(context.Background(),
		[]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "status"},
		WithIO(strings.NewReader(""), &out, &errOut))

	assert.Equal(t, output.ExitConfigError, code)
	assert.Contains(t, errOut.String(), "cannot read config")
}

func TestBadColorFlag(t *testing.T) {
	e := newEnv(t)

	res := e.run(t, "", "--color", "rainbow", "status")
	assert.Equal(t, output.ExitUsageError, res.code)
}
