package domain

import (
	"errors"
	"time"
)

// InvitationTTL is the wall-clock validity of an invitation from creation.
const InvitationTTL = 24 * time.Hour

// InvitationStatus is a closed set. pending is the only non-terminal
// state; every edge out of it is one-way.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

// ErrInvalidTransition reports an invitation status edge outside the
// allowed graph (pending -> accepted|revoked|expired).
var ErrInvalidTransition = errors.New("domain: invalid invitation transition")

var invitationEdges = map[InvitationStatus][]InvitationStatus{
	InvitationPending: {InvitationAccepted, InvitationRevoked, InvitationExpired},
}

// ValidateTransition rejects any status edge not in the allowed set.
// Terminal states have no outgoing edges.
func ValidateTransition(from, to InvitationStatus) error {
	for _, next := range invitationEdges[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

type Invitation struct {
	ID    string
	OrgID string
	Email string

	// FirstName and LastName are supplied by the inviter and serve as
	// defaults when the invitee accepts without providing their own.
	FirstName string
	LastName  string

	Role       Role
	TokenHash  string // sha256 fingerprint of the accept-link token
	Status     InvitationStatus
	InvitedBy  string
	RevokedBy  *string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExpiredAt reports whether the invitation's validity window has elapsed
// at the given instant. The wall clock is authoritative: a stored status
// of pending does not keep an overdue invitation alive.
func (i Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
