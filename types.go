package oasis

import (
	"context"
	"time"
)

// AccountStore is the user store the reconciler and decider work against.
// Lookups return (nil, nil) when no account matches.
type AccountStore interface {
	FindByMemberID(ctx context.Context, memberID string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	// Create builds a new, unsaved account from fields.
	Create(fields AccountFields) *Account
	// Save inserts or updates the account together with its roles.
	Save(ctx context.Context, account *Account) error
}

// SessionStore is the request scoped session of the current visitor.
type SessionStore interface {
	Get(key string) any
	Set(key string, value any)
	Has(key string) bool
}

// Messenger shows messages to the end user. It is decoupled from logging.
type Messenger interface {
	Success(message string)
	Warning(message string)
	Error(message string)
}

// PasswordVerifier checks a cleartext secret against a stored hash.
type PasswordVerifier interface {
	ComparePasswordAndHash(password, hash string) error
}

// Config holds the registry connection options
type Config interface {
	GetRegistryEndpoint() string
	GetAdminUser() string
	GetAdminPassword() string
	GetRequestTimeout() time.Duration
	GetConnectTimeout() time.Duration
	GetMemberLogoutURL() string
	GetDefaultLogoutURL() string
}

type noopMessenger struct{}

func (noopMessenger) Success(string) {}
func (noopMessenger) Warning(string) {}
func (noopMessenger) Error(string)   {}

func normalizeMessenger(m Messenger) Messenger {
	if m == nil {
		return noopMessenger{}
	}
	return m
}
