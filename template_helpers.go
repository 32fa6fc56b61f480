package oasis

import (
	"context"
)

var TemplateAccountKey = "current_account"

// TemplateMemberKey holds the member marker in template data.
var TemplateMemberKey = "current_member"

// TemplateHelpers returns helper functions for the views that render
// member pages.
//
// In templates:
//
//	{% if current_account|is_member %}
//	{% if current_account|has_role:"governing_council" %}
//	{% if current_member|has_orchard_role:"Executive Committee" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"is_member":        isMember,
		"is_admin":         isAdmin,
		"has_role":         hasRole,
		"has_orchard_role": hasOrchardRole,

		"roles": map[string]string{
			"authenticated":       string(RoleAuthenticated),
			"regular_member":      string(RoleRegularMember),
			"associate_member":    string(RoleAssociateMember),
			"governing_council":   string(RoleGoverningCouncil),
			"executive_committee": string(RoleExecutiveCommittee),
			"administrator":       string(RoleAdministrator),
		},
	}
}

// TemplateHelpersWithContext adds the account and member marker bound to
// ctx. The registry token is never exposed to templates.
func TemplateHelpersWithContext(ctx context.Context) map[string]any {
	helpers := TemplateHelpers()

	if account, ok := AccountFromContext(ctx); ok {
		helpers[TemplateAccountKey] = account
	}

	if session, ok := SessionFromContext(ctx); ok {
		if marker, ok := ReadMarker(session); ok {
			marker.APIToken = ""
			helpers[TemplateMemberKey] = marker
		}
	}

	return helpers
}

func isAuthenticated(account any) bool {
	switch a := account.(type) {
	case *Account:
		return a != nil
	case map[string]any:
		return len(a) > 0
	default:
		return false
	}
}

func isMember(account any) bool {
	a, ok := account.(*Account)
	return ok && a.IsMember()
}

func isAdmin(account any) bool {
	a, ok := account.(*Account)
	return ok && a.IsAdmin()
}

func hasRole(account any, role string) bool {
	switch a := account.(type) {
	case *Account:
		return a.HasRole(Role(role))
	case map[string]any:
		roles, _ := a["roles"].([]any)
		for _, r := range roles {
			if s, ok := r.(string); ok && s == role {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func hasOrchardRole(member any, role string) bool {
	switch m := member.(type) {
	case SessionMarker:
		return containsTrimmed(m.OrchardRoles, role)
	case *SessionMarker:
		return m != nil && containsTrimmed(m.OrchardRoles, role)
	default:
		return false
	}
}
