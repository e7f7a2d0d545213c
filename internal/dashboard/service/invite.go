package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/identity"
	"github.com/chatforge/chatforge/internal/dashboard/notify"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/cryptox"
	"github.com/chatforge/chatforge/pkg/idx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// sideEffectTimeout bounds the best-effort notifier and identity calls
// so a slow upstream cannot hold the request.
const sideEffectTimeout = 5 * time.Second

// InviteService owns the invitation state machine: create, resend,
// revoke, accept, and lazy expiry. Every transition is atomic from the
// caller's point of view; notifier and identity-provisioner calls are
// best-effort and reported as warnings.
type InviteService struct {
	Store    store.Store
	Notifier notify.Notifier
	Identity identity.Provisioner

	// AcceptBaseURL prefixes the opaque token in the emailed link.
	AcceptBaseURL string

	// Now is injectable for tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (s *InviteService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// InvitationResult is the outcome of Create and Resend. Warnings carry
// best-effort side steps that failed (email send, identity provisioning)
// so the caller can retry them without re-creating the invitation.
type InvitationResult struct {
	Invitation domain.Invitation
	Token      string
	Warnings   []string
}

// CreateInvitationRequest is the validated input for Create.
type CreateInvitationRequest struct {
	Email     string
	FirstName string
	LastName  string
	Role      domain.Role
}

// Create mints a new pending invitation for an email. Preconditions: the
// actor is an active owner/admin of the organization, the email holds
// neither an active membership nor a live pending invitation, and a seat
// is available.
func (s *InviteService) Create(ctx context.Context, actorID string, req CreateInvitationRequest) (InvitationResult, error) {
	log := slogx.FromContext(ctx)
	now := s.clock()

	// 1. Resolve the actor; the caller's own record must exist.
	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return InvitationResult{}, ErrMemberNotFound
		}
		log.Error("failed to fetch actor", slog.Any("error", err))
		return InvitationResult{}, err
	}

	// 2. Only active owners and admins may invite, and only owners may
	// propose the admin or owner role.
	if actor.Status != domain.UserActive {
		return InvitationResult{}, (&DeniedError{Reason: DenyInactiveActor})
	}
	if !actor.Role.AtLeastAdmin() {
		log.Warn("invitation attempted without privilege",
			slog.String("actor_id", actorID),
			slog.String("actor_role", actor.Role.String()),
		)
		return InvitationResult{}, (&DeniedError{Reason: DenyInsufficientPrivilege})
	}
	if actor.Role != domain.RoleOwner && req.Role != domain.RoleMember {
		log.Warn("admin attempted to invite at elevated role",
			slog.String("actor_id", actorID),
			slog.String("requested_role", req.Role.String()),
		)
		return InvitationResult{}, (&DeniedError{Reason: DenyInsufficientPrivilege})
	}

	// 3. The email must not already hold an active membership.
	if _, err := s.Store.Users().GetActiveUserByEmail(ctx, actor.OrgID, req.Email); err == nil {
		return InvitationResult{}, ErrAlreadyMember
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check existing membership", slog.Any("error", err))
		return InvitationResult{}, err
	}

	// 4. At most one live pending invitation per (organization, email).
	if _, err := s.Store.Invitations().GetPendingInvitationByEmail(ctx, actor.OrgID, req.Email, now); err == nil {
		return InvitationResult{}, ErrAlreadyInvited
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check pending invitation", slog.Any("error", err))
		return InvitationResult{}, err
	}

	// 5. Seat check: the new invitation itself takes a seat.
	org, err := s.Store.Organizations().GetOrganizationByID(ctx, actor.OrgID)
	if err != nil {
		log.Error("failed to fetch organization", slog.Any("error", err))
		return InvitationResult{}, err
	}
	if err := s.checkSeat(ctx, org, now); err != nil {
		return InvitationResult{}, err
	}

	// 6. Mint the accept-link token and write the pending row.
	inv, token, err := s.insertInvitation(ctx, org.ID, actorID, req, now)
	if err != nil {
		return InvitationResult{}, err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("org_id", org.ID),
		slog.String("role", req.Role.String()),
		slog.Time("expires_at", inv.ExpiresAt),
	)

	// 7. Best-effort side steps, reported as warnings on failure.
	warnings := s.runSideEffects(ctx, org, actor, inv, token)

	return InvitationResult{Invitation: inv, Token: token, Warnings: warnings}, nil
}

// Resend supersedes an invitation that is still pending or has expired:
// the old row is revoked (audit trail stays immutable) and a fresh
// pending row with a new token and 24h window is created atomically.
func (s *InviteService) Resend(ctx context.Context, actorID, invitationID string) (InvitationResult, error) {
	log := slogx.FromContext(ctx)
	now := s.clock()

	actor, old, err := s.loadActorAndInvitation(ctx, actorID, invitationID, ActionResendInvitation)
	if err != nil {
		return InvitationResult{}, err
	}

	// Accepted and revoked rows are terminal; pending and (lazily)
	// expired rows may be resent.
	switch old.Status {
	case domain.InvitationPending, domain.InvitationExpired:
	default:
		return InvitationResult{}, ErrInvitationNotPending
	}

	// The invitee must still not be a member.
	if _, err := s.Store.Users().GetActiveUserByEmail(ctx, old.OrgID, old.Email); err == nil {
		return InvitationResult{}, ErrAlreadyMember
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check existing membership", slog.Any("error", err))
		return InvitationResult{}, err
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, old.OrgID)
	if err != nil {
		log.Error("failed to fetch organization", slog.Any("error", err))
		return InvitationResult{}, err
	}

	// An expired invitation stopped counting as a seat; resending it
	// needs one back.
	if old.Status == domain.InvitationExpired || old.ExpiredAt(now) {
		if err := s.checkSeat(ctx, org, now); err != nil {
			return InvitationResult{}, err
		}
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return InvitationResult{}, err
	}

	fresh := domain.Invitation{
		ID:        idx.New().String(),
		OrgID:     old.OrgID,
		Email:     old.Email,
		FirstName: old.FirstName,
		LastName:  old.LastName,
		Role:      old.Role,
		TokenHash: cryptox.FingerprintToken(token),
		Status:    domain.InvitationPending,
		InvitedBy: old.InvitedBy,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Revoke the superseded row if it is still pending in storage.
		// A row already swept to expired has no edge to revoked, so a
		// false here is expected and fine.
		if _, err := tx.Invitations().MarkRevoked(ctx, old.ID, actorID, now); err != nil {
			return err
		}
		return tx.Invitations().CreateInvitation(ctx, fresh)
	})
	if err != nil {
		log.Error("failed to resend invitation",
			slog.String("invitation_id", old.ID),
			slog.Any("error", err),
		)
		return InvitationResult{}, err
	}

	log.Info("invitation resent",
		slog.String("superseded_id", old.ID),
		slog.String("invitation_id", fresh.ID),
		slog.String("org_id", org.ID),
	)

	warnings := s.runSideEffects(ctx, org, actor, fresh, token)

	return InvitationResult{Invitation: fresh, Token: token, Warnings: warnings}, nil
}

// Revoke cancels a pending invitation. Terminal rows yield a conflict;
// revoking twice is a no-op conflict, never a second revocation event.
func (s *InviteService) Revoke(ctx context.Context, actorID, invitationID string) ([]string, error) {
	log := slogx.FromContext(ctx)
	now := s.clock()

	_, inv, err := s.loadActorAndInvitation(ctx, actorID, invitationID, ActionRevokeInvitation)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTransition(inv.Status, domain.InvitationRevoked); err != nil {
		return nil, ErrInvitationNotPending
	}
	if inv.ExpiredAt(now) {
		// Already dead by wall clock; treated as expired even if no
		// sweep has persisted it yet.
		return nil, ErrInvitationExpired
	}

	ok, err := s.Store.Invitations().MarkRevoked(ctx, inv.ID, actorID, now)
	if err != nil {
		log.Error("failed to revoke invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return nil, err
	}
	if !ok {
		// Lost a race against another transition.
		return nil, ErrInvitationNotPending
	}

	log.Info("invitation revoked",
		slog.String("invitation_id", inv.ID),
		slog.String("revoked_by", actorID),
	)

	// Invalidate the pre-provisioned identity so the dead link cannot be
	// used. Cleanup failure is non-fatal.
	var warnings []string
	sctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.Identity.Remove(sctx, inv.Email); err != nil {
		log.Warn("identity cleanup failed", slog.String("email", inv.Email), slog.Any("error", err))
		warnings = append(warnings, "identity cleanup failed")
	}

	return warnings, nil
}

// Accept redeems an invitation token, creating the member record and
// marking the invitation accepted as one atomic unit. Safe under
// concurrent double-submission: the compare-and-set on status = pending
// admits exactly one caller.
func (s *InviteService) Accept(ctx context.Context, token, firstName, lastName string) (domain.User, error) {
	log := slogx.FromContext(ctx)
	now := s.clock()

	if token == "" {
		return domain.User{}, ErrInvitationNotFound
	}

	// 1. Look up by token fingerprint.
	inv, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("acceptance attempted with unknown token")
			return domain.User{}, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return domain.User{}, err
	}

	// 2. Status gates. The 24h wall clock is authoritative even when the
	// stored status still reads pending.
	switch inv.Status {
	case domain.InvitationAccepted:
		return domain.User{}, ErrInvitationAccepted
	case domain.InvitationRevoked:
		return domain.User{}, ErrInvitationNotPending
	case domain.InvitationExpired:
		return domain.User{}, ErrInvitationExpired
	}
	if inv.ExpiredAt(now) {
		log.Warn("acceptance attempted after expiry",
			slog.String("invitation_id", inv.ID),
			slog.Time("expires_at", inv.ExpiresAt),
		)
		return domain.User{}, ErrInvitationExpired
	}

	// 3. The email must not have become a member since the invite.
	if _, err := s.Store.Users().GetActiveUserByEmail(ctx, inv.OrgID, inv.Email); err == nil {
		return domain.User{}, ErrAlreadyMember
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check existing membership", slog.Any("error", err))
		return domain.User{}, err
	}

	// 4. Names supplied at accept win over the ones the inviter gave.
	if firstName == "" {
		firstName = inv.FirstName
	}
	if lastName == "" {
		lastName = inv.LastName
	}

	// 5. Transition and member creation commit or roll back together. If
	// the CAS loses a race the transaction aborts without a second User.
	invitedBy := inv.InvitedBy
	newUser := domain.User{
		ID:        idx.New().String(),
		OrgID:     inv.OrgID,
		Email:     inv.Email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      inv.Role,
		Status:    domain.UserActive,
		InvitedBy: &invitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.Invitations().MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvitationAccepted
		}
		return tx.Users().CreateUser(ctx, newUser)
	})
	if err != nil {
		if errors.Is(err, ErrInvitationAccepted) {
			return domain.User{}, ErrInvitationAccepted
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrAlreadyMember
		}
		log.Error("failed to accept invitation",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	log.Info("invitation accepted",
		slog.String("invitation_id", inv.ID),
		slog.String("user_id", newUser.ID),
		slog.String("org_id", inv.OrgID),
		slog.String("role", inv.Role.String()),
	)

	return newUser, nil
}

// checkSeat verifies one more seat is available on the organization's plan.
func (s *InviteService) checkSeat(ctx context.Context, org domain.Organization, now time.Time) error {
	active, err := s.Store.Users().CountActiveUsersByOrg(ctx, org.ID)
	if err != nil {
		return err
	}
	pending, err := s.Store.Invitations().CountPendingInvitationsByOrg(ctx, org.ID, now)
	if err != nil {
		return err
	}
	if !HasAvailableSeats(org.Plan, active, pending) {
		slogx.FromContext(ctx).Warn("seat limit reached",
			slog.String("org_id", org.ID),
			slog.String("plan", string(org.Plan)),
			slog.Int("active", active),
			slog.Int("pending", pending),
		)
		return ErrSeatLimitExceeded
	}
	return nil
}

func (s *InviteService) insertInvitation(ctx context.Context, orgID, actorID string, req CreateInvitationRequest, now time.Time) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx)

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	inv := domain.Invitation{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		TokenHash: cryptox.FingerprintToken(token),
		Status:    domain.InvitationPending,
		InvitedBy: actorID,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Invitations().CreateInvitation(ctx, inv)
	})
	if err != nil {
		log.Error("failed to create invitation", slog.String("invitation_id", inv.ID), slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	return inv, token, nil
}

// runSideEffects provisions the external identity and sends the email.
// Both are bounded and best-effort; failures come back as warnings so the
// caller can retry the send without minting a second invitation.
func (s *InviteService) runSideEffects(ctx context.Context, org domain.Organization, actor domain.User, inv domain.Invitation, token string) []string {
	log := slogx.FromContext(ctx)

	var warnings []string

	sctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	if err := s.Identity.Provision(sctx, inv.Email, inv.ID); err != nil {
		log.Warn("identity provisioning failed",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		warnings = append(warnings, "identity provisioning failed")
	}

	if err := s.Notifier.SendInvitation(sctx, notify.Invitation{
		Email:       inv.Email,
		InviteeName: strings.TrimSpace(inv.FirstName + " " + inv.LastName),
		OrgName:     org.Name,
		InviterName: actor.DisplayName(),
		Role:        inv.Role.String(),
		AcceptURL:   s.AcceptBaseURL + "?token=" + token,
		ExpiresAt:   inv.ExpiresAt,
	}); err != nil {
		log.Warn("invitation email failed",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
		warnings = append(warnings, "invitation email could not be sent")
	}

	return warnings
}

// loadActorAndInvitation resolves both records and runs the engine for
// the invitation-scoped actions. Cross-tenant references surface as
// not-found at the boundary to avoid tenant enumeration.
func (s *InviteService) loadActorAndInvitation(ctx context.Context, actorID, invitationID string, action Action) (domain.User, domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Invitation{}, ErrMemberNotFound
		}
		log.Error("failed to fetch actor", slog.Any("error", err))
		return domain.User{}, domain.Invitation{}, err
	}

	inv, err := s.Store.Invitations().GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Invitation{}, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return domain.User{}, domain.Invitation{}, err
	}

	decision := Authorize(AuthzRequest{
		ActorID:       actor.ID,
		ActorOrgID:    actor.OrgID,
		ActorRole:     actor.Role,
		ActorStatus:   actor.Status,
		ResourceOrgID: inv.OrgID,
		Action:        action,
	})
	if err := decision.Err(); err != nil {
		log.Warn("invitation action denied",
			slog.String("actor_id", actorID),
			slog.String("invitation_id", invitationID),
			slog.String("action", string(action)),
			slog.String("reason", string(decision.Reason)),
		)
		return domain.User{}, domain.Invitation{}, err
	}

	return actor, inv, nil
}
