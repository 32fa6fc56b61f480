package oasis

import (
	"context"
	"strings"
)

// LogoutRedirector picks where a visitor goes after logging out.
type LogoutRedirector struct {
	cfg Config
}

func NewLogoutRedirector(cfg Config) *LogoutRedirector {
	return &LogoutRedirector{cfg: cfg}
}

// Target returns the registry logout URL for member sessions and the
// default destination for everyone else. Read it before the session is
// destroyed.
func (l *LogoutRedirector) Target(ctx context.Context) string {
	fallback := "/"
	if l.cfg != nil {
		if u := strings.TrimSpace(l.cfg.GetDefaultLogoutURL()); u != "" {
			fallback = u
		}
	}

	session, ok := SessionFromContext(ctx)
	if !ok || !HasMarker(session) || l.cfg == nil {
		return fallback
	}

	if u := strings.TrimSpace(l.cfg.GetMemberLogoutURL()); u != "" {
		return u
	}
	return fallback
}
