package oasis_test

import (
	"context"
	"testing"

	oasis "github.com/goliatone/go-auth-oasis"
	"github.com/stretchr/testify/assert"
)

func TestLogoutRedirectorTarget(t *testing.T) {
	cfg := oasis.RegistryConfig{
		MemberLogoutURL:  "https://members.example.org/logout",
		DefaultLogoutURL: "/goodbye",
	}

	member := newMemSession()
	member.Set(oasis.SessionKeyMemberID, "123")
	member.Set(oasis.SessionKeyAPIToken, "tok-1")

	tests := []struct {
		name   string
		cfg    oasis.Config
		ctx    context.Context
		expect string
	}{
		{
			name:   "member session goes to registry logout",
			cfg:    cfg,
			ctx:    oasis.WithSession(context.Background(), member),
			expect: "https://members.example.org/logout",
		},
		{
			name:   "local session goes to default",
			cfg:    cfg,
			ctx:    oasis.WithSession(context.Background(), newMemSession()),
			expect: "/goodbye",
		},
		{
			name:   "no session goes to default",
			cfg:    cfg,
			ctx:    context.Background(),
			expect: "/goodbye",
		},
		{
			name:   "member without registry logout url",
			cfg:    oasis.RegistryConfig{DefaultLogoutURL: "/goodbye"},
			ctx:    oasis.WithSession(context.Background(), member),
			expect: "/goodbye",
		},
		{
			name:   "nil config",
			cfg:    nil,
			ctx:    oasis.WithSession(context.Background(), member),
			expect: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, oasis.NewLogoutRedirector(tt.cfg).Target(tt.ctx))
		})
	}
}
