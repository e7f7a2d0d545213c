package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

func TestCreateInvitation(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)

	svc, notifier, provisioner := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{
		Email:     "new@acme.test",
		FirstName: "Nina",
		LastName:  "Reyes",
		Role:      domain.RoleMember,
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.NotEmpty(t, result.Token)
	require.Equal(t, domain.InvitationPending, result.Invitation.Status)
	require.Equal(t, owner.ID, result.Invitation.InvitedBy)

	// The opaque token never lands in storage, only its fingerprint. The
	// invitee names do, so accept can fall back to them.
	stored, err := st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, result.Token, stored.TokenHash)
	require.Equal(t, result.Invitation.TokenHash, stored.TokenHash)
	require.Equal(t, "Nina", stored.FirstName)
	require.Equal(t, "Reyes", stored.LastName)

	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0].AcceptURL, result.Token)
	require.Equal(t, "Nina Reyes", notifier.sent[0].InviteeName)
	require.Equal(t, []string{"new@acme.test"}, provisioner.provisioned)
}

func TestCreateInvitationConflicts(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	t.Run("active member email is rejected", func(t *testing.T) {
		seedUser(t, st, org.ID, "taken@acme.test", domain.RoleMember, domain.UserActive)

		_, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "taken@acme.test", Role: domain.RoleMember})
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("second pending invitation for the same email is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "dup@acme.test", Role: domain.RoleMember})
		require.NoError(t, err)

		_, err = svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "dup@acme.test", Role: domain.RoleMember})
		require.ErrorIs(t, err, ErrAlreadyInvited)
	})

	t.Run("removed member email may be re-invited", func(t *testing.T) {
		seedUser(t, st, org.ID, "gone@acme.test", domain.RoleMember, domain.UserRemoved)

		_, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "gone@acme.test", Role: domain.RoleMember})
		require.NoError(t, err)
	})
}

func TestCreateInvitationPrivilege(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	admin := seedUser(t, st, org.ID, "admin@acme.test", domain.RoleAdmin, domain.UserActive)
	member := seedUser(t, st, org.ID, "member@acme.test", domain.RoleMember, domain.UserActive)
	svc, _, _ := newInviteService(st)

	t.Run("members cannot invite", func(t *testing.T) {
		_, err := svc.Create(ctx, member.ID, CreateInvitationRequest{Email: "x@acme.test", Role: domain.RoleMember})
		var denied *DeniedError
		require.True(t, errors.As(err, &denied))
		require.Equal(t, DenyInsufficientPrivilege, denied.Reason)
	})

	t.Run("admins invite members only", func(t *testing.T) {
		_, err := svc.Create(ctx, admin.ID, CreateInvitationRequest{Email: "x@acme.test", Role: domain.RoleAdmin})
		var denied *DeniedError
		require.True(t, errors.As(err, &denied))
		require.Equal(t, DenyInsufficientPrivilege, denied.Reason)

		_, err = svc.Create(ctx, admin.ID, CreateInvitationRequest{Email: "x@acme.test", Role: domain.RoleMember})
		require.NoError(t, err)
	})
}

func TestCreateInvitationSeatLimit(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanNone) // capacity 1
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	_, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "second@acme.test", Role: domain.RoleMember})
	require.ErrorIs(t, err, ErrSeatLimitExceeded)
}

func TestCreateInvitationSideEffectFailureIsWarning(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)

	svc, notifier, _ := newInviteService(st)
	notifier.err = errors.New("smtp down")

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)
	require.Contains(t, result.Warnings, "invitation email could not be sent")

	// The invitation exists despite the failed send.
	_, err = st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	user, err := svc.Accept(ctx, result.Token, "Nina", "Reyes")
	require.NoError(t, err)
	require.Equal(t, org.ID, user.OrgID)
	require.Equal(t, domain.RoleMember, user.Role)
	require.Equal(t, domain.UserActive, user.Status)
	require.NotNil(t, user.InvitedBy)
	require.Equal(t, owner.ID, *user.InvitedBy)

	stored, err := st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)

	// A second redemption of the same token conflicts.
	_, err = svc.Accept(ctx, result.Token, "Nina", "Reyes")
	require.ErrorIs(t, err, ErrInvitationAccepted)
}

func TestAcceptDefaultsNamesFromInvite(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{
		Email:     "new@acme.test",
		FirstName: "Nina",
		LastName:  "Reyes",
		Role:      domain.RoleMember,
	})
	require.NoError(t, err)

	// Blank names at accept fall back to the ones the inviter supplied.
	user, err := svc.Accept(ctx, result.Token, "", "")
	require.NoError(t, err)
	require.Equal(t, "Nina", user.FirstName)
	require.Equal(t, "Reyes", user.LastName)

	// Names given at accept win.
	result, err = svc.Create(ctx, owner.ID, CreateInvitationRequest{
		Email:     "other@acme.test",
		FirstName: "Nina",
		Role:      domain.RoleMember,
	})
	require.NoError(t, err)

	user, err = svc.Accept(ctx, result.Token, "Antonina", "Reyes")
	require.NoError(t, err)
	require.Equal(t, "Antonina", user.FirstName)
	require.Equal(t, "Reyes", user.LastName)
}

func TestAcceptUnknownToken(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	svc, _, _ := newInviteService(st)

	_, err := svc.Accept(ctx, "never-issued", "A", "B")
	require.ErrorIs(t, err, ErrInvitationNotFound)

	_, err = svc.Accept(ctx, "", "A", "B")
	require.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestAcceptExpiredInvitation(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)

	svc, _, _ := newInviteService(st)

	// Create at T, accept at T+25h. The stored status still reads
	// pending; the wall clock alone decides.
	created := time.Now().UTC()
	svc.Now = func() time.Time { return created }

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "slow@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	svc.Now = func() time.Time { return created.Add(25 * time.Hour) }

	_, err = svc.Accept(ctx, result.Token, "A", "B")
	require.ErrorIs(t, err, ErrInvitationExpired)
}

func TestAcceptConcurrentDoubleSubmit(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "race@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, result.Token, "R", "C")
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t,
			errors.Is(err, ErrInvitationAccepted) || errors.Is(err, ErrAlreadyMember),
			"unexpected error: %v", err)
	}
	require.Equal(t, 1, succeeded)

	// Exactly one member row exists for the email.
	_, err = st.Users().GetActiveUserByEmail(ctx, org.ID, "race@acme.test")
	require.NoError(t, err)
}

func TestRevokeInvitation(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, provisioner := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	warnings, err := svc.Revoke(ctx, owner.ID, result.Invitation.ID)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, []string{"new@acme.test"}, provisioner.removed)

	stored, err := st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationRevoked, stored.Status)
	require.NotNil(t, stored.RevokedBy)
	require.Equal(t, owner.ID, *stored.RevokedBy)

	// Revoking twice is a conflict, not a second revocation.
	_, err = svc.Revoke(ctx, owner.ID, result.Invitation.ID)
	require.ErrorIs(t, err, ErrInvitationNotPending)

	// The revoked token can no longer be redeemed.
	_, err = svc.Accept(ctx, result.Token, "A", "B")
	require.ErrorIs(t, err, ErrInvitationNotPending)

	// Accepted invitations have no edge to revoked either.
	result, err = svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "done@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, result.Token, "A", "B")
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, owner.ID, result.Invitation.ID)
	require.ErrorIs(t, err, ErrInvitationNotPending)
}

func TestRevokeIdentityCleanupFailureIsWarning(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, provisioner := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	provisioner.removeErr = errors.New("provider unavailable")

	warnings, err := svc.Revoke(ctx, owner.ID, result.Invitation.ID)
	require.NoError(t, err)
	require.Contains(t, warnings, "identity cleanup failed")

	// The revocation itself stuck.
	stored, err := st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationRevoked, stored.Status)
}

func TestResendInvitation(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	original, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	fresh, err := svc.Resend(ctx, owner.ID, original.Invitation.ID)
	require.NoError(t, err)
	require.NotEqual(t, original.Invitation.ID, fresh.Invitation.ID)
	require.NotEqual(t, original.Token, fresh.Token)
	require.Equal(t, original.Invitation.Email, fresh.Invitation.Email)

	// The superseded row is revoked and its token dead.
	old, err := st.Invitations().GetInvitationByID(ctx, original.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationRevoked, old.Status)

	_, err = svc.Accept(ctx, original.Token, "A", "B")
	require.ErrorIs(t, err, ErrInvitationNotPending)

	// The fresh token works.
	_, err = svc.Accept(ctx, fresh.Token, "A", "B")
	require.NoError(t, err)
}

func TestResendExpiredInvitationNeedsSeat(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanNone) // capacity 1
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	created := time.Now().UTC().Add(-48 * time.Hour)
	svc.Now = func() time.Time { return created }

	// The owner holds the only free-tier seat, so minting fails outright.
	_, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "late@acme.test", Role: domain.RoleMember})
	require.ErrorIs(t, err, ErrSeatLimitExceeded)

	require.NoError(t, st.Organizations().UpdatePlan(ctx, org.ID, domain.PlanBasic))

	original, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "late@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	// Advance past expiry; the resend must succeed and issue a live window.
	svc.Now = func() time.Time { return created.Add(48 * time.Hour) }

	fresh, err := svc.Resend(ctx, owner.ID, original.Invitation.ID)
	require.NoError(t, err)
	require.True(t, fresh.Invitation.ExpiresAt.After(svc.Now()))

	_, err = svc.Accept(ctx, fresh.Token, "A", "B")
	require.NoError(t, err)
}

func TestResendAcceptedInvitationConflicts(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, result.Token, "A", "B")
	require.NoError(t, err)

	_, err = svc.Resend(ctx, owner.ID, result.Invitation.ID)
	require.ErrorIs(t, err, ErrInvitationNotPending)
}

func TestInvitationActionsCrossTenant(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	orgA := seedOrg(t, st, domain.PlanBasic)
	orgB := seedOrg(t, st, domain.PlanBasic)
	ownerA := seedUser(t, st, orgA.ID, "a@acme.test", domain.RoleOwner, domain.UserActive)
	ownerB := seedUser(t, st, orgB.ID, "b@other.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	result, err := svc.Create(ctx, ownerA.ID, CreateInvitationRequest{Email: "new@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	// An owner of another organization gets a cross-tenant denial, which
	// the HTTP boundary renders as not-found.
	_, err = svc.Revoke(ctx, ownerB.ID, result.Invitation.ID)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	require.Equal(t, DenyCrossTenant, denied.Reason)

	_, err = svc.Resend(ctx, ownerB.ID, result.Invitation.ID)
	require.True(t, errors.As(err, &denied))
	require.Equal(t, DenyCrossTenant, denied.Reason)
}

func TestHousekeepingSweepPersistsExpiry(t *testing.T) {
	ctx := context.Background()

	st := newTestStore(t)
	org := seedOrg(t, st, domain.PlanBasic)
	owner := seedUser(t, st, org.ID, "owner@acme.test", domain.RoleOwner, domain.UserActive)
	svc, _, _ := newInviteService(st)

	created := time.Now().UTC().Add(-48 * time.Hour)
	svc.Now = func() time.Time { return created }

	result, err := svc.Create(ctx, owner.ID, CreateInvitationRequest{Email: "old@acme.test", Role: domain.RoleMember})
	require.NoError(t, err)

	n, err := st.Invitations().MarkExpiredBefore(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stored, err := st.Invitations().GetInvitationByID(ctx, result.Invitation.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationExpired, stored.Status)

	// Terminal rows are untouched by later sweeps.
	n, err = st.Invitations().MarkExpiredBefore(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Zero(t, n)
}
