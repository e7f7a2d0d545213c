package store

import (
	"context"
	"errors"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and a WithTx helper for multi-step operations that
// must be atomic (invitation accept, guarded owner demotion).
type Store interface {
	Organizations() Organizations
	Users() Users
	Invitations() Invitations
	APIKeys() APIKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Organizations interface {
	// GetOrganizationByID returns an organization by id.
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)

	// CreateOrganization inserts a new organization (id is ULID).
	CreateOrganization(ctx context.Context, org domain.Organization) error

	// UpdatePlan sets the subscription tier. Called from billing webhooks only.
	UpdatePlan(ctx context.Context, orgID string, plan domain.Plan) error

	// IsEmpty reports whether no organizations exist yet (bootstrap gate).
	IsEmpty(ctx context.Context) (bool, error)
}

type Users interface {
	// GetUserByID returns a user by id regardless of status.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetActiveUserByEmail returns the active member with the given email
	// within an organization, if any.
	GetActiveUserByEmail(ctx context.Context, orgID, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserRole sets the role and bumps updated_at.
	UpdateUserRole(ctx context.Context, userID string, role domain.Role) error

	// DemoteOwnerIfNotLast conditionally changes an owner's role. The
	// update only applies while at least one other active owner exists in
	// the organization, so two racing demotions cannot both succeed.
	// Returns false when the guard rejected the update.
	DemoteOwnerIfNotLast(ctx context.Context, orgID, userID string, newRole domain.Role) (bool, error)

	// ListActiveUsersByOrg returns active members oldest-first.
	ListActiveUsersByOrg(ctx context.Context, orgID string) ([]domain.User, error)

	// ListRemovedUsersByOrg returns removed members most-recently-updated-first.
	ListRemovedUsersByOrg(ctx context.Context, orgID string) ([]domain.User, error)

	// GetUsersByIDs batch-resolves users by id in a single IN lookup.
	// Missing ids are silently absent from the result.
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// CountActiveUsersByOrg counts seats held by active members.
	CountActiveUsersByOrg(ctx context.Context, orgID string) (int, error)

	// CountActiveOwners counts active members with the owner role.
	CountActiveOwners(ctx context.Context, orgID string) (int, error)
}

type Invitations interface {
	// CreateInvitation writes a new pending invitation (token_hash is the
	// sha256 fingerprint of the opaque accept-link token).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByID returns an invitation by id.
	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// GetPendingInvitationByEmail returns the live pending invitation for
	// an email within an organization. Rows whose validity window has
	// elapsed by now are not returned even if their stored status still
	// reads pending.
	GetPendingInvitationByEmail(ctx context.Context, orgID, email string, now time.Time) (domain.Invitation, error)

	// GetInvitationByTokenHash returns an invitation by accept-token fingerprint.
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// ListPendingInvitationsByOrg returns live pending invitations
	// most-recently-created-first.
	ListPendingInvitationsByOrg(ctx context.Context, orgID string, now time.Time) ([]domain.Invitation, error)

	// CountPendingInvitationsByOrg counts seats held by live pending invitations.
	CountPendingInvitationsByOrg(ctx context.Context, orgID string, now time.Time) (int, error)

	// MarkAccepted transitions pending -> accepted. The update is
	// conditional on the stored status still being pending; returns false
	// if another caller won the race.
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)

	// MarkRevoked transitions pending -> revoked and records the revoker.
	// Conditional on status = pending; returns false otherwise.
	MarkRevoked(ctx context.Context, id, revokedBy string, at time.Time) (bool, error)

	// MarkExpiredBefore persists the expired status for overdue pending
	// rows. Housekeeping only; the wall clock is authoritative regardless.
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}

type APIKeys interface {
	// GetAPIKeyByKey fetches a widget credential by its key value.
	GetAPIKeyByKey(ctx context.Context, key string) (domain.APIKey, error)

	// CreateAPIKey inserts a new widget credential.
	CreateAPIKey(ctx context.Context, k domain.APIKey) error

	// UpdateAllowedOrigins replaces the allowed-origin set. Used by the
	// gate's best-effort origin auto-registration.
	UpdateAllowedOrigins(ctx context.Context, keyID string, origins []string) error

	// SetAPIKeyActive toggles a credential. A deactivated key keeps
	// working for at most the gate's cache TTL.
	SetAPIKeyActive(ctx context.Context, keyID string, active bool) error
}
