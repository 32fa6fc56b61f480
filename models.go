package oasis

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the local account status
type AccountStatus = string

const (
	// AccountActive can sign in
	AccountActive AccountStatus = "active"
	// AccountBlocked cannot sign in
	AccountBlocked AccountStatus = "blocked"
)

// RegStatusActive is the registry status of a member in good standing.
const RegStatusActive = "ACTIVE"

// Account is the local user record. MemberID links it to a registry member.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string        `bun:"username,notnull,unique" json:"username,omitempty"`
	FirstName     string        `bun:"first_name" json:"first_name,omitempty"`
	LastName      string        `bun:"last_name" json:"last_name,omitempty"`
	Email         string        `bun:"email,nullzero,unique" json:"email,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"-"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	MemberID      string        `bun:"member_id,nullzero,unique" json:"member_id,omitempty"`
	Roles         []Role        `bun:"-" json:"roles,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AccountRole is a role granted to an account
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:accr"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid"`
	Role          Role      `bun:"role,pk"`
}

// AccountFields are the values used to build a new account
type AccountFields struct {
	ID        uuid.UUID
	Username  string
	FirstName string
	LastName  string
	Email     string
	MemberID  string
	Status    AccountStatus
	Roles     []Role
}

// IsNew reports whether the account was never saved.
func (a *Account) IsNew() bool {
	return a.CreatedAt == nil
}

// HasRole reports whether the account holds role.
func (a *Account) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the account holds any of roles.
func (a *Account) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// AddRole grants role, it is a no-op when already granted.
func (a *Account) AddRole(role Role) *Account {
	if role == "" || a.HasRole(role) {
		return a
	}
	a.Roles = append(a.Roles, role)
	return a
}

// IsMember reports whether the account holds a registry member role.
func (a *Account) IsMember() bool {
	return a.HasAnyRole(MemberRoles...)
}

// IsAdmin reports whether the account holds administrative privilege.
func (a *Account) IsAdmin() bool {
	return a.HasAnyRole(AdminRoles...)
}

// IsActive reports whether the account may sign in.
func (a *Account) IsActive() bool {
	return a != nil && a.Status == AccountActive
}

// SetStatus sets active or blocked.
func (a *Account) SetStatus(active bool) *Account {
	if active {
		a.Status = AccountActive
	} else {
		a.Status = AccountBlocked
	}
	return a
}

// SetPassword stores the hash of the trimmed password.
func (a *Account) SetPassword(password string) error {
	hash, err := HashPassword(strings.TrimSpace(password))
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// RegistryRecord is the sanitized member record returned by the registry.
type RegistryRecord struct {
	MemberID     string   `json:"member_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	LoginEmail   string   `json:"login_email"`
	RegStatus    string   `json:"reg_status"`
	RegCategory  string   `json:"reg_category"`
	OrchardRoles []string `json:"orchard_roles,omitempty"`
	APIToken     string   `json:"-"`
}

// IsActive reports whether the registry lists the member as active.
func (r *RegistryRecord) IsActive() bool {
	return r != nil && strings.ToUpper(strings.TrimSpace(r.RegStatus)) == RegStatusActive
}

// Session keys holding the member marker.
const (
	SessionKeyMemberID     = "member"
	SessionKeyAPIToken     = "api_token"
	SessionKeyRegCategory  = "reg_category"
	SessionKeyOrchardRoles = "orchard_roles"
)

// SessionMarker is the registry data kept in the session after an
// external login. It is not refreshed until the next login.
type SessionMarker struct {
	MemberID     string
	APIToken     string
	RegCategory  string
	OrchardRoles []string
}

// MarkerFromRecord projects a registry record onto a session marker.
func MarkerFromRecord(record *RegistryRecord) SessionMarker {
	if record == nil {
		return SessionMarker{}
	}
	return SessionMarker{
		MemberID:     record.MemberID,
		APIToken:     record.APIToken,
		RegCategory:  record.RegCategory,
		OrchardRoles: record.OrchardRoles,
	}
}

// HasMarker reports whether the session carries a member marker.
func HasMarker(session SessionStore) bool {
	return session != nil &&
		session.Has(SessionKeyMemberID) &&
		session.Has(SessionKeyAPIToken)
}

// ReadMarker reads the member marker from the session.
func ReadMarker(session SessionStore) (SessionMarker, bool) {
	if !HasMarker(session) {
		return SessionMarker{}, false
	}

	marker := SessionMarker{
		MemberID:    sessionString(session, SessionKeyMemberID),
		APIToken:    sessionString(session, SessionKeyAPIToken),
		RegCategory: sessionString(session, SessionKeyRegCategory),
	}

	switch roles := session.Get(SessionKeyOrchardRoles).(type) {
	case []string:
		marker.OrchardRoles = roles
	case string:
		marker.OrchardRoles = SplitOrchardRoles(roles)
	}

	return marker, true
}

func sessionString(session SessionStore, key string) string {
	if session == nil {
		return ""
	}
	switch v := session.Get(key).(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
