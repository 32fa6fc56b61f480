// Package sessions backs oasis.SessionStore with scs and loads and commits
// the session around go-router handlers.
package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/goliatone/go-router"
)

// Store is a request scoped oasis.SessionStore over an scs session.
type Store struct {
	ctx     context.Context
	manager *scs.SessionManager
}

var _ oasis.SessionStore = (*Store)(nil)

// NewStore binds manager to the session loaded into ctx.
func NewStore(ctx context.Context, manager *scs.SessionManager) *Store {
	return &Store{ctx: ctx, manager: manager}
}

func (s *Store) Get(key string) any {
	return s.manager.Get(s.ctx, key)
}

func (s *Store) Set(key string, value any) {
	s.manager.Put(s.ctx, key, value)
}

func (s *Store) Has(key string) bool {
	return s.manager.Exists(s.ctx, key)
}

// Remove deletes key from the session.
func (s *Store) Remove(key string) {
	s.manager.Remove(s.ctx, key)
}

// RenewToken issues a new session token keeping the data.
func (s *Store) RenewToken() error {
	return s.manager.RenewToken(s.ctx)
}

// Destroy removes the session and its data.
func (s *Store) Destroy() error {
	return s.manager.Destroy(s.ctx)
}

// NewManager returns an scs manager with the cookie defaults used by the
// bridge. lifetime <= 0 keeps the scs default.
func NewManager(cookieName string, lifetime time.Duration) *scs.SessionManager {
	manager := scs.New()
	if cookieName != "" {
		manager.Cookie.Name = cookieName
	}
	if lifetime > 0 {
		manager.Lifetime = lifetime
	}
	manager.Cookie.HttpOnly = true
	manager.Cookie.SameSite = http.SameSiteLaxMode
	return manager
}

// requestContext is the part of router.Context the middleware needs.
type requestContext interface {
	Cookies(key string, defaultValue ...string) string
	Cookie(cookie *router.Cookie)
	Context() context.Context
	SetContext(ctx context.Context)
}

// Middleware loads the session named by the manager cookie, binds a Store
// to the request context and commits the session once the handler returns.
func Middleware(manager *scs.SessionManager) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			ctx, err := Load(c, manager)
			if err != nil {
				return err
			}

			handlerErr := next(c)

			if err := Commit(c, manager, ctx); err != nil {
				return err
			}
			return handlerErr
		}
	}
}

// Load reads the session for c and binds it to the request context.
func Load(c requestContext, manager *scs.SessionManager) (context.Context, error) {
	token := c.Cookies(manager.Cookie.Name)

	ctx, err := manager.Load(c.Context(), token)
	if err != nil {
		return nil, err
	}

	c.SetContext(oasis.WithSession(ctx, NewStore(ctx, manager)))
	return ctx, nil
}

// Commit persists a modified session and writes or expires its cookie.
func Commit(c requestContext, manager *scs.SessionManager, ctx context.Context) error {
	switch manager.Status(ctx) {
	case scs.Modified:
		token, expiry, err := manager.Commit(ctx)
		if err != nil {
			return err
		}
		cookie := baseCookie(manager, token)
		if manager.Cookie.Persist {
			cookie.Expires = expiry
		}
		c.Cookie(cookie)
	case scs.Destroyed:
		cookie := baseCookie(manager, "")
		cookie.Expires = time.Unix(1, 0)
		c.Cookie(cookie)
	}
	return nil
}

func baseCookie(manager *scs.SessionManager, value string) *router.Cookie {
	return &router.Cookie{
		Name:     manager.Cookie.Name,
		Value:    value,
		Path:     manager.Cookie.Path,
		Domain:   manager.Cookie.Domain,
		HTTPOnly: manager.Cookie.HttpOnly,
		Secure:   manager.Cookie.Secure,
		SameSite: sameSite(manager.Cookie.SameSite),
	}
}

func sameSite(mode http.SameSite) string {
	switch mode {
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return "Lax"
	}
}
