package oasis

import "context"

// SessionFinalizer writes the member marker after an external login.
type SessionFinalizer struct {
	logger   Logger
	provider LoggerProvider
}

// FinalizerOption customizes the finalizer.
type FinalizerOption func(*SessionFinalizer)

// WithFinalizerLogger sets the finalizer logger.
func WithFinalizerLogger(logger Logger) FinalizerOption {
	return func(f *SessionFinalizer) {
		f.provider, f.logger = ResolveLogger("oasis.session", f.provider, logger)
	}
}

// WithFinalizerLoggerProvider sets the provider used to scope the finalizer logger.
func WithFinalizerLoggerProvider(provider LoggerProvider) FinalizerOption {
	return func(f *SessionFinalizer) {
		f.provider, f.logger = ResolveLogger("oasis.session", provider, nil)
	}
}

func NewSessionFinalizer(opts ...FinalizerOption) *SessionFinalizer {
	provider, logger := ResolveLogger("oasis.session", nil, nil)
	f := &SessionFinalizer{logger: logger, provider: provider}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Finalize stores the member marker in the request session. It refuses to
// touch the session of an authenticated administrator and fails when ctx
// carries no session. It does not log the account in.
func (f *SessionFinalizer) Finalize(ctx context.Context, account *Account, record *RegistryRecord) bool {
	if caller, ok := AccountFromContext(ctx); ok && caller.IsAdmin() {
		f.logger.Warn("refusing to overwrite administrator session",
			"caller_id", caller.ID.String(),
			"member_id", memberIDOf(record),
		)
		return false
	}

	session, ok := SessionFromContext(ctx)
	if !ok {
		f.logger.Error("no request session available to finalize member login",
			"member_id", memberIDOf(record),
		)
		return false
	}

	if record == nil {
		f.logger.Error("cannot finalize member login without a registry record")
		return false
	}

	marker := MarkerFromRecord(record)
	session.Set(SessionKeyMemberID, marker.MemberID)
	session.Set(SessionKeyAPIToken, marker.APIToken)
	session.Set(SessionKeyRegCategory, marker.RegCategory)
	if len(marker.OrchardRoles) > 0 {
		session.Set(SessionKeyOrchardRoles, marker.OrchardRoles)
	}

	if account != nil {
		f.logger.Debug("member session finalized", "account_id", account.ID.String(), "member_id", marker.MemberID)
	}

	return true
}

func memberIDOf(record *RegistryRecord) string {
	if record == nil {
		return ""
	}
	return record.MemberID
}
