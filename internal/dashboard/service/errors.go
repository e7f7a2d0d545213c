package service

import "errors"

var (
	// Membership / invitation conflicts. All of these map to stable
	// reason codes at the HTTP boundary.
	ErrSeatLimitExceeded    = errors.New("seat limit exceeded")
	ErrAlreadyMember        = errors.New("email already belongs to an active member")
	ErrAlreadyInvited       = errors.New("email already has a pending invitation")
	ErrLastOwner            = errors.New("organization must retain at least one owner")
	ErrInvitationNotFound   = errors.New("invitation not found or expired")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrInvitationAccepted   = errors.New("invitation has already been accepted")
	ErrMemberNotFound       = errors.New("member not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)
