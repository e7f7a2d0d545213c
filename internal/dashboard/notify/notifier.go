// Package notify delivers invitation emails. Delivery is best-effort
// from the lifecycle manager's point of view: a failed send never rolls
// back the invitation row, it is reported back as a warning instead.
package notify

import (
	"context"
	"time"
)

// Invitation is the template context for an invitation email.
type Invitation struct {
	Email string

	// InviteeName greets the recipient; empty when the inviter gave no
	// name, in which case templates fall back to the email address.
	InviteeName string

	OrgName     string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   time.Time
}

type Notifier interface {
	// SendInvitation delivers the invitation email. Implementations
	// should respect ctx deadlines; the caller bounds the call.
	SendInvitation(ctx context.Context, inv Invitation) error
}
