package oasis

import "strings"

// Role is a local role granted to an account
type Role string

const (
	// RoleAuthenticated is granted to every account
	RoleAuthenticated Role = "authenticated"
	// RoleRegularMember is a registry member in the regular category
	RoleRegularMember Role = "regular_member"
	// RoleAssociateMember is a registry member in the associate category
	RoleAssociateMember Role = "associate_member"
	// RoleGoverningCouncil is granted from the registry orchard roles
	RoleGoverningCouncil Role = "governing_council"
	// RoleExecutiveCommittee is granted from the registry orchard roles
	RoleExecutiveCommittee Role = "executive_committee"
	// RoleAdministrator holds administrative privilege
	RoleAdministrator Role = "administrator"
)

const (
	categoryRegularMembers   = "Regular Members"
	categoryAssociateMembers = "Associate Members"

	orchardGoverningCouncil   = "Governing Council"
	orchardExecutiveCommittee = "Executive Committee"
)

// MemberRoles are the roles that mark an account as registry managed.
var MemberRoles = []Role{RoleRegularMember, RoleAssociateMember}

// AdminRoles are the roles that make a session administrative.
var AdminRoles = []Role{RoleAdministrator}

// CategoryRole maps a registry category to its base role.
func CategoryRole(category string) (Role, bool) {
	switch strings.TrimSpace(category) {
	case categoryRegularMembers:
		return RoleRegularMember, true
	case categoryAssociateMembers:
		return RoleAssociateMember, true
	default:
		return "", false
	}
}

// OrchardGrants returns the extra roles granted by the registry role names.
func OrchardGrants(orchardRoles []string) []Role {
	var out []Role
	if containsTrimmed(orchardRoles, orchardGoverningCouncil) {
		out = append(out, RoleGoverningCouncil)
	}
	if containsTrimmed(orchardRoles, orchardExecutiveCommittee) {
		out = append(out, RoleExecutiveCommittee)
	}
	return out
}

// SplitOrchardRoles splits the comma separated registry role list.
func SplitOrchardRoles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsTrimmed(values []string, target string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == target {
			return true
		}
	}
	return false
}
