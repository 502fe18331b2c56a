package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/magabrotheeeer/mirzo-ai/internal/lib/sl"
	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// ErrLocked — раздел закрыт, пока подписка не активна.
var ErrLocked = errors.New("section requires an active subscription")

// View — раздел приложения, выбранный пользователем.
type View string

const (
	ViewDashboard           View = "DASHBOARD"
	ViewDocGenerator        View = "DOC_GENERATOR"
	ViewProfile             View = "PROFILE"
	ViewSubscription        View = "SUBSCRIPTION"
	ViewPendingSubscription View = "PENDING_SUBSCRIPTION"
	ViewLogin               View = "LOGIN"
	ViewRegister            View = "REGISTER"
	ViewAdminDashboard      View = "ADMIN_DASHBOARD"
)

// Views перечисляет все разделы в порядке меню.
var Views = []View{
	ViewDashboard,
	ViewDocGenerator,
	ViewProfile,
	ViewSubscription,
	ViewPendingSubscription,
	ViewLogin,
	ViewRegister,
	ViewAdminDashboard,
}

// ParseView принимает имя раздела в любом регистре, через "-" или "_".
func ParseView(s string) (View, bool) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, v := range Views {
		if string(v) == name {
			return v, true
		}
	}
	return "", false
}

// Screen — то, что фактически показывается пользователю.
type Screen string

const (
	ScreenLanding Screen = "LANDING"
	ScreenAuth    Screen = "AUTH"
	ScreenAdmin   Screen = "ADMIN"
	ScreenLocked  Screen = "LOCKED"
)

// Resolve выбирает экран по пользователю, флагу стартовой страницы и разделу.
// Для доступного раздела экран совпадает с именем раздела.
func Resolve(user *models.User, showLanding bool, view View) Screen {
	if user == nil {
		if showLanding {
			return ScreenLanding
		}
		return ScreenAuth
	}
	if user.IsAdmin && view == ViewAdminDashboard {
		return ScreenAdmin
	}

	locked := !user.HasAccess()
	switch view {
	case ViewProfile, ViewSubscription, ViewPendingSubscription:
		return Screen(view)
	case ViewDocGenerator:
		if locked {
			return ScreenLocked
		}
		return Screen(view)
	default:
		if locked {
			return ScreenLocked
		}
		return Screen(ViewDashboard)
	}
}

// lockedView сообщает, закрыт ли раздел для пользователя без подписки.
func lockedView(v View) bool {
	return v == ViewDashboard || v == ViewDocGenerator
}

// Sessions — источник текущей сессии.
type Sessions interface {
	CurrentUser(ctx context.Context) *models.User
	Logout(ctx context.Context) error
}

// Controller хранит состояние сессии и выбранный раздел.
// Методы безопасны для вызова из разных горутин.
type Controller struct {
	sessions Sessions
	log      *slog.Logger

	mu          sync.Mutex
	user        *models.User
	view        View
	showLanding bool
}

// NewController создаёт контроллер в начальном состоянии: стартовая страница, раздел DASHBOARD.
func NewController(sessions Sessions, log *slog.Logger) *Controller {
	return &Controller{
		sessions:    sessions,
		log:         log,
		view:        ViewDashboard,
		showLanding: true,
	}
}

// Boot загружает текущего пользователя и выбирает начальный раздел.
func (c *Controller) Boot(ctx context.Context) *models.User {
	const op = "app.Controller.Boot"
	log := c.log.With(slog.String("op", op))

	user := c.sessions.CurrentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if user == nil {
		log.Debug("no active session")
		return nil
	}
	c.user = user
	c.showLanding = false
	switch {
	case user.IsAdmin:
		c.view = ViewAdminDashboard
	case user.SubscriptionStatus == models.StatusPending:
		c.view = ViewPendingSubscription
	}
	log.Debug("session restored", slog.String("user_id", user.ID), slog.String("view", string(c.view)))
	return user
}

// Login фиксирует вошедшего пользователя.
func (c *Controller) Login(user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.user = user
	c.showLanding = false
	if user != nil && user.IsAdmin {
		c.view = ViewAdminDashboard
	} else {
		c.view = ViewDashboard
	}
}

// Logout удаляет токен и возвращает на стартовую страницу.
func (c *Controller) Logout(ctx context.Context) error {
	const op = "app.Controller.Logout"

	err := c.sessions.Logout(ctx)

	c.mu.Lock()
	c.user = nil
	c.showLanding = true
	c.mu.Unlock()

	if err != nil {
		c.log.Error("failed to clear session", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangeView переключает раздел. Для пользователя без активной подписки
// DASHBOARD и DOC_GENERATOR не открываются, раздел остаётся прежним.
func (c *Controller) ChangeView(v View) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.user.HasAccess() && lockedView(v) {
		return false
	}
	c.view = v
	return true
}

// Open — ChangeView с ошибкой ErrLocked вместо false.
func (c *Controller) Open(v View) error {
	if !c.ChangeView(v) {
		return fmt.Errorf("app.Controller.Open: %s: %w", v, ErrLocked)
	}
	return nil
}

// SetUser заменяет пользователя свежими данными сервера, не трогая раздел.
func (c *Controller) SetUser(user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if user != nil {
		c.user = user
	}
}

// Unauthorized вызывается транспортом на любой ответ 401.
func (c *Controller) Unauthorized() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user != nil {
		c.log.Info("session expired, returning to landing", slog.String("user_id", c.user.ID))
	}
	c.user = nil
	c.showLanding = true
	c.view = ViewDashboard
}

// User возвращает текущего пользователя или nil.
func (c *Controller) User() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// View возвращает выбранный раздел.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// ShowAuth скрывает стартовую страницу (кнопка "Начать").
func (c *Controller) ShowAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showLanding = false
}

// Screen — текущий экран по таблице Resolve.
func (c *Controller) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Resolve(c.user, c.showLanding, c.view)
}
