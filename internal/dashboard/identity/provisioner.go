// Package identity integrates with the external auth provider that
// pre-provisions accounts for invited emails. Both operations are
// best-effort: failures are logged and surfaced as warnings, never as
// the primary operation's failure.
package identity

import "context"

type Provisioner interface {
	// Provision creates a pre-authenticated identity for an invited
	// email, keyed by the invitation that minted it.
	Provision(ctx context.Context, email, invitationID string) error

	// Remove deletes the pre-provisioned identity so a revoked accept
	// link can no longer be used.
	Remove(ctx context.Context, email string) error
}
