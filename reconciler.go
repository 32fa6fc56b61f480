package oasis

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/hashid/pkg/hashid"
)

// AccountReconciler maps registry records onto local accounts.
type AccountReconciler struct {
	store    AccountStore
	activity ActivitySink
	logger   Logger
	provider LoggerProvider
}

// ReconcilerOption customizes the reconciler.
type ReconcilerOption func(*AccountReconciler)

// WithReconcilerLogger sets the reconciler logger.
func WithReconcilerLogger(logger Logger) ReconcilerOption {
	return func(r *AccountReconciler) {
		r.provider, r.logger = ResolveLogger("oasis.reconciler", r.provider, logger)
	}
}

// WithReconcilerLoggerProvider sets the provider used to scope the reconciler logger.
func WithReconcilerLoggerProvider(provider LoggerProvider) ReconcilerOption {
	return func(r *AccountReconciler) {
		r.provider, r.logger = ResolveLogger("oasis.reconciler", provider, nil)
	}
}

// WithReconcilerActivitySink records account creation events.
func WithReconcilerActivitySink(sink ActivitySink) ReconcilerOption {
	return func(r *AccountReconciler) {
		r.activity = normalizeActivitySink(sink)
	}
}

// NewAccountReconciler returns a reconciler working against store.
func NewAccountReconciler(store AccountStore, opts ...ReconcilerOption) *AccountReconciler {
	provider, logger := ResolveLogger("oasis.reconciler", nil, nil)
	r := &AccountReconciler{
		store:    store,
		activity: noopActivitySink{},
		logger:   logger,
		provider: provider,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Reconcile finds or creates the account for memberID and brings it in
// line with record. The account is saved exactly once. Roles are only
// ever added, a role the registry stops reporting is kept.
func (r *AccountReconciler) Reconcile(ctx context.Context, memberID, secret string, record *RegistryRecord) (*Account, error) {
	memberID = strings.TrimSpace(memberID)
	if record == nil || memberID == "" {
		return nil, newKindError(KindInvalidCredentials, errors.New("reconcile requires a member record"), nil)
	}
	if r.store == nil {
		return nil, newKindError(KindMisconfigured, errors.New("account store is nil"), nil)
	}

	account, err := r.store.FindByMemberID(ctx, memberID)
	if err != nil {
		r.logger.Error("member lookup failed", "member_id", memberID, "error", err)
		return nil, newKindError(KindStorageFailure, err, map[string]any{"member_id": memberID})
	}

	created := account == nil
	if created {
		account, err = r.newAccount(memberID, record)
		if err != nil {
			return nil, err
		}
	}

	if err := account.SetPassword(secret); err != nil {
		return nil, newKindError(KindStorageFailure, err, map[string]any{"member_id": memberID})
	}

	account.FirstName = record.FirstName
	account.LastName = record.LastName
	account.MemberID = memberID

	r.syncEmail(ctx, account, record.LoginEmail)

	account.SetStatus(record.IsActive())

	for _, role := range memberRolesFor(record) {
		account.AddRole(role)
	}

	if err := r.store.Save(ctx, account); err != nil {
		r.logger.Error("failed to save member account", "member_id", memberID, "error", err)
		return nil, newKindError(KindStorageFailure, err, map[string]any{"member_id": memberID})
	}

	if created {
		recordActivity(ctx, r.activity, r.logger, ActivityEvent{
			EventType: ActivityEventAccountCreated,
			AccountID: account.ID.String(),
			MemberID:  memberID,
			Path:      LoginPathExternal,
		})
	}

	return account, nil
}

func (r *AccountReconciler) newAccount(memberID string, record *RegistryRecord) (*Account, error) {
	id, err := hashid.NewUUID("oasis:" + memberID)
	if err != nil {
		return nil, newKindError(KindStorageFailure, err, map[string]any{"member_id": memberID})
	}

	account := r.store.Create(AccountFields{
		ID:        id,
		Username:  DisplayName(record.FirstName, record.LastName, memberID),
		FirstName: record.FirstName,
		LastName:  record.LastName,
		MemberID:  memberID,
		Status:    AccountBlocked,
		Roles:     []Role{RoleAuthenticated},
	})
	if account == nil {
		return nil, newKindError(KindStorageFailure, errors.New("account store returned nil account"), nil)
	}

	logNotice(r.logger, "creating account for member", "account_id", account.ID.String(), "member_id", memberID)
	return account, nil
}

// syncEmail assigns email unless another account already owns it.
func (r *AccountReconciler) syncEmail(ctx context.Context, account *Account, email string) {
	email = strings.TrimSpace(email)
	if email == "" || strings.EqualFold(email, account.Email) {
		return
	}

	owner, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		r.logger.Warn("email ownership lookup failed, keeping current email",
			"member_id", account.MemberID,
			"error", err,
		)
		return
	}

	if owner != nil && owner.ID != account.ID {
		r.logger.Warn("registry email belongs to another account, keeping current email",
			"member_id", account.MemberID,
			"account_id", account.ID.String(),
			"owner_id", owner.ID.String(),
		)
		return
	}

	account.Email = email
}

// memberRolesFor returns the roles granted by the registry category and
// orchard roles. An unknown category grants no base role.
func memberRolesFor(record *RegistryRecord) []Role {
	var roles []Role
	if role, ok := CategoryRole(record.RegCategory); ok {
		roles = append(roles, role)
	}
	return append(roles, OrchardGrants(record.OrchardRoles)...)
}

// DisplayName joins the name parts, the member id keeps it unique.
func DisplayName(firstName, lastName, memberID string) string {
	return strings.Join(strings.Fields(strings.Join([]string{firstName, lastName, memberID}, " ")), " ")
}
