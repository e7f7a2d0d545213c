package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// MemberService serves the membership directory and role changes.
type MemberService struct {
	Store store.Store

	// Now is injectable for tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (s *MemberService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// InviterInfo is display attribution for the user who sent an invite.
type InviterInfo struct {
	ID    string
	Name  string
	Email string
}

// MemberEntry is a member annotated with inviter attribution. Inviter is
// nil when the inviting user cannot be resolved; attribution is display
// data and its absence never fails the directory.
type MemberEntry struct {
	User    domain.User
	Inviter *InviterInfo
}

// PendingEntry is a live pending invitation in the directory.
type PendingEntry struct {
	Invitation domain.Invitation
	Inviter    *InviterInfo
}

// SeatSummary reports plan capacity against live usage.
type SeatSummary struct {
	Plan      domain.Plan
	Capacity  int // UnlimitedSeats for uncapped plans
	Used      int
	Remaining int // UnlimitedSeats for uncapped plans
}

// Directory is the aggregated membership view.
type Directory struct {
	Active  []MemberEntry  // oldest first
	Removed []MemberEntry  // most recently updated first
	Pending []PendingEntry // most recently created first
	Seats   SeatSummary
}

// GetDirectory aggregates active members, removed members, and live
// pending invitations for the actor's organization, with inviter
// attribution resolved in a single batch lookup.
func (s *MemberService) GetDirectory(ctx context.Context, actorID string) (Directory, error) {
	log := slogx.FromContext(ctx)
	now := s.clock()

	// The caller's own record is the one lookup that must succeed.
	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Directory{}, ErrMemberNotFound
		}
		log.Error("failed to fetch actor", slog.Any("error", err))
		return Directory{}, err
	}

	if err := Authorize(AuthzRequest{
		ActorID:     actor.ID,
		ActorOrgID:  actor.OrgID,
		ActorRole:   actor.Role,
		ActorStatus: actor.Status,
		Action:      ActionViewMembers,
	}).Err(); err != nil {
		return Directory{}, err
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, actor.OrgID)
	if err != nil {
		log.Error("failed to fetch organization", slog.Any("error", err))
		return Directory{}, err
	}

	active, err := s.Store.Users().ListActiveUsersByOrg(ctx, org.ID)
	if err != nil {
		log.Error("failed to list active members", slog.Any("error", err))
		return Directory{}, err
	}
	removed, err := s.Store.Users().ListRemovedUsersByOrg(ctx, org.ID)
	if err != nil {
		log.Error("failed to list removed members", slog.Any("error", err))
		return Directory{}, err
	}
	pending, err := s.Store.Invitations().ListPendingInvitationsByOrg(ctx, org.ID, now)
	if err != nil {
		log.Error("failed to list pending invitations", slog.Any("error", err))
		return Directory{}, err
	}

	inviters := s.resolveInviters(ctx, active, removed, pending)

	dir := Directory{
		Active:  annotateMembers(active, inviters),
		Removed: annotateMembers(removed, inviters),
		Pending: annotatePending(pending, inviters),
		Seats: SeatSummary{
			Plan:      org.Plan,
			Capacity:  SeatCapacity(org.Plan),
			Used:      SeatUsage(len(active), len(pending)),
			Remaining: RemainingSeats(org.Plan, len(active), len(pending)),
		},
	}

	return dir, nil
}

// ChangeRole applies {targetUserID, requestedRole} on behalf of actorID.
// The pure decision table runs first; owner demotions then go through a
// guarded update so two racing demotions cannot empty the owner set.
func (s *MemberService) ChangeRole(ctx context.Context, actorID, targetID string, requested domain.Role) error {
	log := slogx.FromContext(ctx)

	actor, err := s.Store.Users().GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to fetch actor", slog.Any("error", err))
		return err
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to fetch target", slog.Any("error", err))
		return err
	}

	// Cross-tenant targets are indistinguishable from absent ones.
	if target.OrgID != actor.OrgID || target.Status != domain.UserActive {
		return ErrMemberNotFound
	}

	decision := Authorize(AuthzRequest{
		ActorID:       actor.ID,
		ActorOrgID:    actor.OrgID,
		ActorRole:     actor.Role,
		ActorStatus:   actor.Status,
		TargetID:      target.ID,
		TargetRole:    target.Role,
		RequestedRole: requested,
		Action:        ActionChangeRole,
	})
	if err := decision.Err(); err != nil {
		log.Warn("role change denied",
			slog.String("actor_id", actorID),
			slog.String("target_id", targetID),
			slog.String("requested_role", requested.String()),
			slog.String("reason", string(decision.Reason)),
		)
		return err
	}

	// Demoting an owner must not leave the organization ownerless. The
	// owner count is evaluated inside the update itself, so concurrent
	// demotions serialize at the store.
	if target.Role == domain.RoleOwner && requested != domain.RoleOwner {
		ok, err := s.Store.Users().DemoteOwnerIfNotLast(ctx, actor.OrgID, target.ID, requested)
		if err != nil {
			log.Error("failed to demote owner", slog.Any("error", err))
			return err
		}
		if !ok {
			log.Warn("last-owner demotion rejected",
				slog.String("target_id", targetID),
				slog.String("org_id", actor.OrgID),
			)
			return ErrLastOwner
		}
	} else {
		if err := s.Store.Users().UpdateUserRole(ctx, target.ID, requested); err != nil {
			log.Error("failed to update role", slog.Any("error", err))
			return err
		}
	}

	log.Info("role changed",
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
		slog.String("from", target.Role.String()),
		slog.String("to", requested.String()),
	)

	return nil
}

// resolveInviters batch-loads the union of inviter ids with one IN
// lookup. A failed lookup degrades to absent attribution.
func (s *MemberService) resolveInviters(ctx context.Context, active, removed []domain.User, pending []domain.Invitation) map[string]InviterInfo {
	seen := make(map[string]struct{})
	var ids []string

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, u := range active {
		if u.InvitedBy != nil {
			add(*u.InvitedBy)
		}
	}
	for _, u := range removed {
		if u.InvitedBy != nil {
			add(*u.InvitedBy)
		}
	}
	for _, inv := range pending {
		add(inv.InvitedBy)
	}

	if len(ids) == 0 {
		return nil
	}

	users, err := s.Store.Users().GetUsersByIDs(ctx, ids)
	if err != nil {
		slogx.FromContext(ctx).Warn("inviter resolution failed", slog.Any("error", err))
		return nil
	}

	inviters := make(map[string]InviterInfo, len(users))
	for _, u := range users {
		inviters[u.ID] = InviterInfo{ID: u.ID, Name: u.DisplayName(), Email: u.Email}
	}
	return inviters
}

func annotateMembers(users []domain.User, inviters map[string]InviterInfo) []MemberEntry {
	entries := make([]MemberEntry, len(users))
	for i, u := range users {
		entries[i] = MemberEntry{User: u}
		if u.InvitedBy != nil {
			if info, ok := inviters[*u.InvitedBy]; ok {
				entries[i].Inviter = &info
			}
		}
	}
	return entries
}

func annotatePending(invs []domain.Invitation, inviters map[string]InviterInfo) []PendingEntry {
	entries := make([]PendingEntry, len(invs))
	for i, inv := range invs {
		entries[i] = PendingEntry{Invitation: inv}
		if info, ok := inviters[inv.InvitedBy]; ok {
			entries[i].Inviter = &info
		}
	}
	return entries
}
