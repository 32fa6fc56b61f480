package oasis

import (
	"context"
	"strings"

	"github.com/goliatone/go-router"
)

// MessageSessionAdvisory is shown when a member session lost its registry token.
const MessageSessionAdvisory = "Your membership session may have expired. Please log out and log in again."

// GuardResult describes what the guard saw on a request.
type GuardResult struct {
	// Member is set when the session carries a member marker.
	Member bool
	// Advisory is set when the member token looked absent.
	Advisory bool
}

// SessionGuard flags member sessions whose registry token looks absent.
// It never blocks the request and never logs the member out.
type SessionGuard struct {
	messenger Messenger
	activity  ActivitySink
	logger    Logger
	provider  LoggerProvider
}

// GuardOption customizes the guard.
type GuardOption func(*SessionGuard)

// WithGuardMessenger sets the fallback messenger.
func WithGuardMessenger(m Messenger) GuardOption {
	return func(g *SessionGuard) {
		g.messenger = normalizeMessenger(m)
	}
}

// WithGuardActivitySink records session advisories.
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(g *SessionGuard) {
		g.activity = normalizeActivitySink(sink)
	}
}

// WithGuardLogger sets the guard logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *SessionGuard) {
		g.provider, g.logger = ResolveLogger("oasis.guard", g.provider, logger)
	}
}

// WithGuardLoggerProvider sets the provider used to scope the guard logger.
func WithGuardLoggerProvider(provider LoggerProvider) GuardOption {
	return func(g *SessionGuard) {
		g.provider, g.logger = ResolveLogger("oasis.guard", provider, nil)
	}
}

func NewSessionGuard(opts ...GuardOption) *SessionGuard {
	provider, logger := ResolveLogger("oasis.guard", nil, nil)
	g := &SessionGuard{
		messenger: noopMessenger{},
		activity:  noopActivitySink{},
		logger:    logger,
		provider:  provider,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Check inspects the session bound to ctx. Anonymous requests and
// sessions without a member marker are skipped.
func (g *SessionGuard) Check(ctx context.Context) GuardResult {
	account, ok := AccountFromContext(ctx)
	if !ok {
		return GuardResult{}
	}

	session, ok := SessionFromContext(ctx)
	if !ok || !HasMarker(session) {
		return GuardResult{}
	}

	marker, _ := ReadMarker(session)
	if strings.TrimSpace(marker.APIToken) != "" {
		return GuardResult{Member: true}
	}

	g.logger.Warn("member session has no registry token",
		"account_id", account.ID.String(),
		"member_id", marker.MemberID,
	)

	messenger := normalizeMessenger(g.messenger)
	if m, ok := MessengerFromContext(ctx); ok {
		messenger = m
	}
	messenger.Warning(MessageSessionAdvisory)

	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventSessionAdvisory,
		AccountID: account.ID.String(),
		MemberID:  marker.MemberID,
		Path:      LoginPathExternal,
	})

	return GuardResult{Member: true, Advisory: true}
}

// Middleware runs Check on every request and always calls next. Use it on
// routes that bind the account without going through RouteAuthenticator.
func (g *SessionGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			g.Check(c.Context())
			return next(c)
		}
	}
}
