package domain

import "time"

// UserStatus tracks whether a member currently occupies a seat. Removed
// members are retained for audit and display, they never count as seats.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserRemoved UserStatus = "removed"
)

type User struct {
	ID        string
	OrgID     string
	Email     string // unique within the organization
	FirstName string
	LastName  string
	Role      Role
	Status    UserStatus
	InvitedBy *string // display attribution only, never consulted for authorization
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the human-readable form used for inviter attribution.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
