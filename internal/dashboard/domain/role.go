package domain

import "errors"

// Role is a member's privilege level within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ErrUnknownRole reports a role value outside the closed set.
var ErrUnknownRole = errors.New("domain: unknown role")

// ParseRole validates a raw role string against the closed role set.
// Unknown values are rejected, never coerced.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// String returns the canonical string form.
func (r Role) String() string { return string(r) }

// AtLeastAdmin reports whether the role carries admin-or-above privilege.
func (r Role) AtLeastAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}
