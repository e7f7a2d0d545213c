package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/idx"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func insertOrg(t *testing.T, st *Store) domain.Organization {
	t.Helper()

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      "Test Org",
		Plan:      domain.PlanBasic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Organizations().CreateOrganization(context.Background(), org))
	return org
}

func insertUser(t *testing.T, st *Store, orgID, email string, role domain.Role, status domain.UserStatus) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func insertInvitation(t *testing.T, st *Store, orgID, email, invitedBy string, expiresAt time.Time) domain.Invitation {
	t.Helper()

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Email:     email,
		Role:      domain.RoleMember,
		TokenHash: "hash-" + idx.New().String(),
		Status:    domain.InvitationPending,
		InvitedBy: invitedBy,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Invitations().CreateInvitation(context.Background(), inv))
	return inv
}

func TestUniqueActiveEmailPerOrg(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)

	insertUser(t, st, org.ID, "dup@acme.test", domain.RoleMember, domain.UserActive)

	// A second active row for the same email violates the partial index.
	now := time.Now().UTC()
	err := st.Users().CreateUser(ctx, domain.User{
		ID:        idx.New().String(),
		OrgID:     org.ID,
		Email:     "dup@acme.test",
		Role:      domain.RoleMember,
		Status:    domain.UserActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// A removed row with the same email is fine, and the same email may
	// exist in another organization.
	insertUser(t, st, org.ID, "dup2@acme.test", domain.RoleMember, domain.UserRemoved)
	insertUser(t, st, org.ID, "dup2@acme.test", domain.RoleMember, domain.UserActive)

	other := insertOrg(t, st)
	insertUser(t, st, other.ID, "dup@acme.test", domain.RoleMember, domain.UserActive)
}

func TestGetActiveUserByEmailIgnoresRemoved(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)

	insertUser(t, st, org.ID, "gone@acme.test", domain.RoleMember, domain.UserRemoved)

	_, err := st.Users().GetActiveUserByEmail(ctx, org.ID, "gone@acme.test")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDemoteOwnerIfNotLast(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)

	a := insertUser(t, st, org.ID, "a@acme.test", domain.RoleOwner, domain.UserActive)
	b := insertUser(t, st, org.ID, "b@acme.test", domain.RoleOwner, domain.UserActive)

	ok, err := st.Users().DemoteOwnerIfNotLast(ctx, org.ID, a.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.Users().DemoteOwnerIfNotLast(ctx, org.ID, b.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.False(t, ok)

	// A removed owner does not count toward the guard.
	insertUser(t, st, org.ID, "c@acme.test", domain.RoleOwner, domain.UserRemoved)
	ok, err = st.Users().DemoteOwnerIfNotLast(ctx, org.ID, b.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.False(t, ok)

	owners, err := st.Users().CountActiveOwners(ctx, org.ID)
	require.NoError(t, err)
	require.Equal(t, 1, owners)
}

func TestMarkAcceptedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)
	owner := insertUser(t, st, org.ID, "o@acme.test", domain.RoleOwner, domain.UserActive)

	inv := insertInvitation(t, st, org.ID, "n@acme.test", owner.ID, time.Now().UTC().Add(time.Hour))

	at := time.Now().UTC()
	ok, err := st.Invitations().MarkAccepted(ctx, inv.ID, at)
	require.NoError(t, err)
	require.True(t, ok)

	// The second transition observes zero affected rows.
	ok, err = st.Invitations().MarkAccepted(ctx, inv.ID, at)
	require.NoError(t, err)
	require.False(t, ok)

	// Neither can a terminal row be revoked.
	ok, err = st.Invitations().MarkRevoked(ctx, inv.ID, owner.ID, at)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPendingQueriesExcludeOverdueRows(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)
	owner := insertUser(t, st, org.ID, "o@acme.test", domain.RoleOwner, domain.UserActive)

	now := time.Now().UTC()
	live := insertInvitation(t, st, org.ID, "live@acme.test", owner.ID, now.Add(time.Hour))
	insertInvitation(t, st, org.ID, "old@acme.test", owner.ID, now.Add(-time.Hour))

	// Overdue rows still read pending in storage but are filtered out of
	// every live-pending query.
	list, err := st.Invitations().ListPendingInvitationsByOrg(ctx, org.ID, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, live.ID, list[0].ID)

	n, err := st.Invitations().CountPendingInvitationsByOrg(ctx, org.ID, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = st.Invitations().GetPendingInvitationByEmail(ctx, org.ID, "old@acme.test", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Invitations().GetPendingInvitationByEmail(ctx, org.ID, "live@acme.test", now)
	require.NoError(t, err)
}

func TestGetUsersByIDs(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)

	a := insertUser(t, st, org.ID, "a@acme.test", domain.RoleMember, domain.UserActive)
	b := insertUser(t, st, org.ID, "b@acme.test", domain.RoleMember, domain.UserActive)

	users, err := st.Users().GetUsersByIDs(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = st.Users().GetUsersByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)
	owner := insertUser(t, st, org.ID, "o@acme.test", domain.RoleOwner, domain.UserActive)

	inv := insertInvitation(t, st, org.ID, "n@acme.test", owner.ID, time.Now().UTC().Add(time.Hour))

	now := time.Now().UTC()
	err := st.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.Invitations().MarkAccepted(ctx, inv.ID, now)
		require.NoError(t, err)
		require.True(t, ok)

		// Duplicate active email forces the tx to abort.
		return tx.Users().CreateUser(ctx, domain.User{
			ID:        idx.New().String(),
			OrgID:     org.ID,
			Email:     "o@acme.test",
			Role:      domain.RoleMember,
			Status:    domain.UserActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// The accepted transition was rolled back with the user insert.
	stored, err := st.Invitations().GetInvitationByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationPending, stored.Status)
}

func TestListOrderings(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	org := insertOrg(t, st)

	// Explicit created_at values so the ordering is unambiguous.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"first@acme.test", "second@acme.test", "third@acme.test"} {
		u := domain.User{
			ID:        idx.New().String(),
			OrgID:     org.ID,
			Email:     email,
			Role:      domain.RoleMember,
			Status:    domain.UserActive,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UpdatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, st.Users().CreateUser(ctx, u))
	}

	active, err := st.Users().ListActiveUsersByOrg(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, active, 3)
	require.Equal(t, "first@acme.test", active[0].Email)
	require.Equal(t, "third@acme.test", active[2].Email)
}
