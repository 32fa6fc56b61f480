package oasis

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// User facing messages. They never tell which credential was wrong.
const (
	MessageUnrecognized       = "Unrecognized username or password."
	MessageServiceUnavailable = "Sorry, the membership service is not available right now. Please try again later."
	MessageContactSupport     = "Sorry, login is temporarily unavailable. Please contact support if the problem persists."
	MessageUnexpected         = "Sorry, an unexpected error occurred while logging you in."
	MessageAdminSession       = "You are signed in as an administrator. Log out before signing in with another account."
)

// MemberAuthenticator authenticates credentials against the registry.
// RegistryClient implements it.
type MemberAuthenticator interface {
	Authenticate(ctx context.Context, identifier, secret string) (*RegistryRecord, error)
}

// Reconciler brings a local account in line with a registry record.
type Reconciler interface {
	Reconcile(ctx context.Context, memberID, secret string, record *RegistryRecord) (*Account, error)
}

// Finalizer writes the session marker after an external login.
type Finalizer interface {
	Finalize(ctx context.Context, account *Account, record *RegistryRecord) bool
}

// DecisionOutcome is the result of a login decision. Member is set when
// the registry authenticated the login.
type DecisionOutcome struct {
	Success bool
	Path    LoginPath
	Account *Account
	UID     string
	Member  bool
	Kind    ErrorKind
	Message string
	Err     error
}

// AuthenticationDecider picks between local and registry authentication
// for a login attempt and runs the selected path.
type AuthenticationDecider struct {
	store      AccountStore
	registry   MemberAuthenticator
	reconciler Reconciler
	finalizer  Finalizer
	passwords  PasswordVerifier
	messenger  Messenger
	activity   ActivitySink
	logger     Logger
	provider   LoggerProvider
}

// DeciderOption customizes the decider.
type DeciderOption func(*AuthenticationDecider)

// WithPasswordVerifier replaces the bcrypt verifier used for local logins.
func WithPasswordVerifier(v PasswordVerifier) DeciderOption {
	return func(d *AuthenticationDecider) {
		if v != nil {
			d.passwords = v
		}
	}
}

// WithDeciderMessenger sets the fallback messenger. A messenger bound to the
// request context takes precedence.
func WithDeciderMessenger(m Messenger) DeciderOption {
	return func(d *AuthenticationDecider) {
		d.messenger = normalizeMessenger(m)
	}
}

// WithActivitySink records login events.
func WithActivitySink(sink ActivitySink) DeciderOption {
	return func(d *AuthenticationDecider) {
		d.activity = normalizeActivitySink(sink)
	}
}

// WithDeciderLogger sets the decider logger.
func WithDeciderLogger(logger Logger) DeciderOption {
	return func(d *AuthenticationDecider) {
		d.provider, d.logger = ResolveLogger("oasis.decider", d.provider, logger)
	}
}

// WithDeciderLoggerProvider sets the provider used to scope the decider logger.
func WithDeciderLoggerProvider(provider LoggerProvider) DeciderOption {
	return func(d *AuthenticationDecider) {
		d.provider, d.logger = ResolveLogger("oasis.decider", provider, nil)
	}
}

// NewAuthenticationDecider wires the decider collaborators.
func NewAuthenticationDecider(store AccountStore, registry MemberAuthenticator, reconciler Reconciler, finalizer Finalizer, opts ...DeciderOption) *AuthenticationDecider {
	provider, logger := ResolveLogger("oasis.decider", nil, nil)
	d := &AuthenticationDecider{
		store:      store,
		registry:   registry,
		reconciler: reconciler,
		finalizer:  finalizer,
		passwords:  bcryptVerifier{},
		messenger:  noopMessenger{},
		activity:   noopActivitySink{},
		logger:     logger,
		provider:   provider,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decide authenticates loginInput, an email or a username, with secret.
// Accounts known to be local non-members never reach the registry.
func (d *AuthenticationDecider) Decide(ctx context.Context, loginInput, secret string) DecisionOutcome {
	loginInput = strings.TrimSpace(loginInput)

	account, email, err := d.resolve(ctx, loginInput)
	if err != nil {
		d.logger.Error("local account lookup failed", "error", err)
		return d.fail(ctx, LoginPathNone, newKindError(KindStorageFailure, err, nil))
	}

	isMember := account == nil || account.IsMember()
	if isMember {
		return d.external(ctx, email, secret)
	}

	return d.local(ctx, account, secret)
}

func (d *AuthenticationDecider) resolve(ctx context.Context, loginInput string) (*Account, string, error) {
	if d.store == nil {
		return nil, loginInput, nil
	}

	if !strings.Contains(loginInput, "@") {
		account, err := d.store.FindByUsername(ctx, loginInput)
		if err != nil || account == nil {
			return nil, loginInput, err
		}
		return account, account.Email, nil
	}

	account, err := d.store.FindByEmail(ctx, loginInput)
	return account, loginInput, err
}

func (d *AuthenticationDecider) external(ctx context.Context, email, secret string) (outcome DecisionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic during member login", "panic", r)
			outcome = d.fail(ctx, LoginPathExternal, newKindError(KindUnknown, fmt.Errorf("panic: %v", r), nil))
		}
	}()

	if d.registry == nil || d.reconciler == nil {
		return d.fail(ctx, LoginPathExternal, newKindError(KindMisconfigured, errors.New("registry collaborators missing"), nil))
	}

	creds := Credentials{Identifier: strings.TrimSpace(email), Secret: secret}
	if err := creds.Validate(); err != nil {
		return d.fail(ctx, LoginPathExternal, newKindError(KindInvalidInput, err, map[string]any{
			"fields": FormatValidationErrorToMap(err),
		}))
	}

	record, err := d.registry.Authenticate(ctx, email, secret)
	if err != nil {
		return d.fail(ctx, LoginPathExternal, err)
	}
	if record == nil || strings.TrimSpace(record.MemberID) == "" {
		return d.fail(ctx, LoginPathExternal, newKindError(KindInvalidCredentials, errors.New("registry returned no member"), nil))
	}

	account, err := d.reconciler.Reconcile(ctx, record.MemberID, secret, record)
	if err != nil {
		return d.fail(ctx, LoginPathExternal, err)
	}

	if d.finalizer == nil || !d.finalizer.Finalize(ctx, account, record) {
		d.logger.Warn("member session marker not written, continuing login",
			"account_id", account.ID.String(),
			"member_id", record.MemberID,
		)
	}

	outcome = DecisionOutcome{
		Success: true,
		Path:    LoginPathExternal,
		Account: account,
		UID:     account.ID.String(),
		Member:  true,
	}
	d.succeed(ctx, outcome, record.MemberID)
	return outcome
}

func (d *AuthenticationDecider) local(ctx context.Context, account *Account, secret string) DecisionOutcome {
	if !account.IsActive() {
		d.logger.Info("blocked local account attempted login", "account_id", account.ID.String())
		return d.fail(ctx, LoginPathLocal, newKindError(KindInvalidCredentials, errors.New("account blocked"), nil))
	}

	if err := d.passwords.ComparePasswordAndHash(secret, account.PasswordHash); err != nil {
		return d.fail(ctx, LoginPathLocal, newKindError(KindInvalidCredentials, err, nil))
	}

	outcome := DecisionOutcome{
		Success: true,
		Path:    LoginPathLocal,
		Account: account,
		UID:     account.ID.String(),
	}
	d.succeed(ctx, outcome, account.MemberID)
	return outcome
}

func (d *AuthenticationDecider) succeed(ctx context.Context, outcome DecisionOutcome, memberID string) {
	d.logger.Info("login succeeded", "path", outcome.Path, "account_id", outcome.UID)
	recordActivity(ctx, d.activity, d.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: outcome.UID,
		MemberID:  memberID,
		Path:      outcome.Path,
	})
}

// fail logs err at the level its kind calls for, shows the matching
// message and builds the failed outcome.
func (d *AuthenticationDecider) fail(ctx context.Context, path LoginPath, err error) DecisionOutcome {
	kind := KindOf(err)
	message := MessageFor(kind)

	switch kind {
	case KindInvalidInput, KindInvalidCredentials:
		d.logger.Info("login rejected", "path", path, "kind", kind)
	case KindServiceUnavailable, KindInvalidResponse:
		d.logger.Warn("membership registry failure", "path", path, "kind", kind, "error", err)
	case KindMisconfigured:
		logCritical(d.logger, "membership registry is misconfigured", "path", path, "kind", kind, "error", err)
	case KindStorageFailure:
		d.logger.Error("member account storage failure", "path", path, "kind", kind, "error", err)
	default:
		d.logger.Error("unexpected login failure", "path", path, "kind", kind, "error", err)
	}

	d.messengerFor(ctx).Error(message)

	recordActivity(ctx, d.activity, d.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Path:      path,
		Kind:      kind,
	})

	return DecisionOutcome{
		Path:    path,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func (d *AuthenticationDecider) messengerFor(ctx context.Context) Messenger {
	if m, ok := MessengerFromContext(ctx); ok {
		return m
	}
	return normalizeMessenger(d.messenger)
}

// MessageFor returns the user facing message for kind.
func MessageFor(kind ErrorKind) string {
	switch kind {
	case KindInvalidInput, KindInvalidCredentials:
		return MessageUnrecognized
	case KindServiceUnavailable, KindInvalidResponse:
		return MessageServiceUnavailable
	case KindMisconfigured, KindStorageFailure:
		return MessageContactSupport
	case KindSessionConflict:
		return MessageAdminSession
	case KindNone:
		return ""
	default:
		return MessageUnexpected
	}
}
