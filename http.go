package oasis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// SessionKeyUID holds the id of the logged in account.
const SessionKeyUID = "uid"

// ErrUnauthenticated is returned by protected routes for anonymous visitors.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode("UNAUTHENTICATED").
	WithCode(goerrors.CodeUnauthorized).
	WithSeverity(goerrors.SeverityInfo)

// LoginPayload is the login form.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// LoginDecider runs a login attempt. AuthenticationDecider implements it.
type LoginDecider interface {
	Decide(ctx context.Context, loginInput, secret string) DecisionOutcome
}

// AccountFinder loads the account bound to a session.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*Account, error)
}

type sessionRenewer interface {
	RenewToken() error
}

type sessionDestroyer interface {
	Destroy() error
}

type sessionRemover interface {
	Remove(key string)
}

// RouteConfig holds the HTTP settings of the login routes.
type RouteConfig struct {
	LoginURL             string
	ContextKey           string
	RejectedRouteKey     string
	RejectedRouteDefault string
	SecureCookies        bool
}

func (c RouteConfig) withDefaults() RouteConfig {
	if c.LoginURL == "" {
		c.LoginURL = "/login"
	}
	if c.ContextKey == "" {
		c.ContextKey = "account"
	}
	if c.RejectedRouteKey == "" {
		c.RejectedRouteKey = "rejected_route"
	}
	if c.RejectedRouteDefault == "" {
		c.RejectedRouteDefault = "/"
	}
	return c
}

// RouteAuthenticator is the session based HTTP glue around the decider,
// the session guard and the logout redirector.
type RouteAuthenticator struct {
	decider          LoginDecider
	accounts         AccountFinder
	guard            *SessionGuard
	logout           *LogoutRedirector
	cfg              RouteConfig
	messengerFactory func(router.Context) Messenger
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// RouteOption customizes the route authenticator.
type RouteOption func(*RouteAuthenticator)

// WithRouteConfig overrides the route settings.
func WithRouteConfig(cfg RouteConfig) RouteOption {
	return func(a *RouteAuthenticator) {
		a.cfg = cfg.withDefaults()
	}
}

// WithSessionGuard runs guard on every request with a logged in account.
func WithSessionGuard(guard *SessionGuard) RouteOption {
	return func(a *RouteAuthenticator) {
		a.guard = guard
	}
}

// WithMessengerFactory replaces the flash backed messenger.
func WithMessengerFactory(factory func(router.Context) Messenger) RouteOption {
	return func(a *RouteAuthenticator) {
		if factory != nil {
			a.messengerFactory = factory
		}
	}
}

// WithRouteLogger sets the logger.
func WithRouteLogger(logger Logger) RouteOption {
	return func(a *RouteAuthenticator) {
		if logger != nil {
			a.Logger = logger
		}
	}
}

func NewHTTPAuthenticator(decider LoginDecider, accounts AccountFinder, logout *LogoutRedirector, opts ...RouteOption) *RouteAuthenticator {
	a := &RouteAuthenticator{
		decider:          decider,
		accounts:         accounts,
		logout:           logout,
		cfg:              RouteConfig{}.withDefaults(),
		messengerFactory: NewFlashMessenger,
		Logger:           defaultLogger("oasis.http"),
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Login runs the decider for payload. On success the session token is
// renewed and bound to the account.
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) (DecisionOutcome, error) {
	messenger := a.messengerFor(c)
	ctx := WithMessenger(c.Context(), messenger)

	outcome := a.decider.Decide(ctx, payload.GetIdentifier(), payload.GetPassword())
	if !outcome.Success {
		return outcome, outcome.Err
	}

	session, ok := SessionFromContext(ctx)
	if !ok {
		err := newKindError(KindMisconfigured, errors.New("no session bound to request"), nil)
		logCritical(a.Logger, "login succeeded without a session", "account_id", outcome.UID)
		messenger.Error(MessageContactSupport)
		return DecisionOutcome{Path: outcome.Path, Kind: KindMisconfigured, Message: MessageContactSupport, Err: err}, err
	}

	// an external login must not take over an administrator session
	if current, ok := AccountFromContext(ctx); ok && current.IsAdmin() && current.ID.String() != outcome.UID {
		a.Logger.Warn("login refused over active administrator session",
			"admin_id", current.ID.String(),
			"account_id", outcome.UID,
			"path", outcome.Path,
		)
		messenger.Error(MessageAdminSession)
		err := newKindError(KindSessionConflict, errors.New("administrator session active"), map[string]any{
			"account_id": outcome.UID,
		})
		return DecisionOutcome{Path: outcome.Path, Kind: KindSessionConflict, Message: MessageAdminSession, Err: err}, err
	}

	if !outcome.Account.IsActive() {
		a.Logger.Info("blocked account login refused", "account_id", outcome.UID, "path", outcome.Path)
		clearMarker(session)
		messenger.Error(MessageUnrecognized)
		err := newKindError(KindInvalidCredentials, errors.New("account blocked"), nil)
		return DecisionOutcome{Path: outcome.Path, Kind: KindInvalidCredentials, Message: MessageUnrecognized, Err: err}, err
	}

	if r, ok := session.(sessionRenewer); ok {
		if err := r.RenewToken(); err != nil {
			a.Logger.Warn("failed to renew session token", "error", err)
		}
	}
	session.Set(SessionKeyUID, outcome.UID)

	return outcome, nil
}

// Logout ends the session and returns where the visitor should go next.
func (a *RouteAuthenticator) Logout(c router.Context) string {
	ctx := c.Context()

	target := "/"
	if a.logout != nil {
		target = a.logout.Target(ctx)
	}

	if session, ok := SessionFromContext(ctx); ok {
		if d, ok := session.(sessionDestroyer); ok {
			if err := d.Destroy(); err != nil {
				a.Logger.Error("failed to destroy session", "error", err)
			}
		} else {
			clearMarker(session)
			if r, ok := session.(sessionRemover); ok {
				r.Remove(SessionKeyUID)
			}
		}
	}

	return target
}

// SessionAccount loads the session account, when there is one, into the
// request context and runs the session guard.
func (a *RouteAuthenticator) SessionAccount() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			a.attach(c)
			return next(c)
		}
	}
}

// ProtectedRoute rejects anonymous visitors through errorHandler, the
// AuthErrorHandler when nil.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.AuthErrorHandler
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if _, ok := a.attach(c); !ok {
				return errorHandler(c, ErrUnauthenticated)
			}
			return next(c)
		}
	}
}

func (a *RouteAuthenticator) attach(c router.Context) (*Account, bool) {
	ctx := c.Context()
	if account, ok := AccountFromContext(ctx); ok {
		return account, true
	}

	account, ok := a.sessionAccount(ctx)
	if !ok {
		return nil, false
	}

	ctx = WithAccount(ctx, account)
	c.SetContext(ctx)
	c.Locals(a.cfg.ContextKey, account)

	if a.guard != nil {
		a.guard.Check(WithMessenger(ctx, a.messengerFor(c)))
	}

	return account, true
}

func (a *RouteAuthenticator) sessionAccount(ctx context.Context) (*Account, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || a.accounts == nil {
		return nil, false
	}

	uid := strings.TrimSpace(sessionString(session, SessionKeyUID))
	if uid == "" {
		return nil, false
	}

	account, err := a.accounts.FindByID(ctx, uid)
	if err != nil {
		a.Logger.Error("failed to load session account", "account_id", uid, "error", err)
		return nil, false
	}

	if account == nil || !account.IsActive() {
		a.Logger.Info("session account missing or blocked", "account_id", uid)
		return nil, false
	}

	return account, true
}

func (a *RouteAuthenticator) messengerFor(c router.Context) Messenger {
	if a.messengerFactory == nil {
		return noopMessenger{}
	}
	return normalizeMessenger(a.messengerFactory(c))
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	r := ctx.Cookies(a.cfg.RejectedRouteKey)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.RejectedRouteDefault
	}
	a.cookieDel(ctx, a.cfg.RejectedRouteKey)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	a.Logger.Info("Setting redirect cookie", "key", a.cfg.RejectedRouteKey, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.RejectedRouteKey,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.SecureCookies,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "An unexpected authentication error").
			WithCode(goerrors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.cfg.LoginURL, statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return c.JSON(code, router.ViewContext{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}

func clearMarker(session SessionStore) {
	r, ok := session.(sessionRemover)
	if !ok {
		return
	}
	for _, key := range []string{SessionKeyMemberID, SessionKeyAPIToken, SessionKeyRegCategory, SessionKeyOrchardRoles} {
		r.Remove(key)
	}
}

// flashMessenger shows messages through go-router flash cookies.
type flashMessenger struct {
	ctx router.Context
}

// NewFlashMessenger returns a Messenger writing flash messages on c.
func NewFlashMessenger(c router.Context) Messenger {
	return flashMessenger{ctx: c}
}

func (f flashMessenger) Success(message string) {
	flash.WithSuccess(f.ctx, router.ViewContext{"system_message": message})
}

func (f flashMessenger) Warning(message string) {
	flash.WithError(f.ctx, router.ViewContext{"system_message": message, "level": "warning"})
}

func (f flashMessenger) Error(message string) {
	flash.WithError(f.ctx, router.ViewContext{"system_message": message})
}
