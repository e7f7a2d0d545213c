package service

import (
	"fmt"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
)

// Action is a membership operation gated by the authorization engine.
type Action string

const (
	ActionChangeRole       Action = "change_role"
	ActionViewMembers      Action = "view_members"
	ActionResendInvitation Action = "resend_invitation"
	ActionRevokeInvitation Action = "revoke_invitation"
)

// DenyReason is a stable code attached to every authorization denial so
// the caller can render messaging without guessing.
type DenyReason string

const (
	DenySelfModification      DenyReason = "self_modification"
	DenyLastOwner             DenyReason = "last_owner"
	DenyOwnersProtected       DenyReason = "owners_protected"
	DenyAdminsProtected       DenyReason = "admins_protected"
	DenyInsufficientPrivilege DenyReason = "insufficient_privilege"
	DenyCrossTenant           DenyReason = "cross_tenant"
	DenyInactiveActor         DenyReason = "inactive_actor"
)

// DeniedError surfaces an engine denial as a typed error.
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authorization denied: %s", e.Reason)
}

// Decision is the engine's verdict. Reason is only set on denials.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Err converts a denial into a DeniedError, nil for an allow.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// AuthzRequest carries everything the decision table needs. Target and
// requested-role fields only apply to ActionChangeRole; ResourceOrgID is
// the organization owning the invitation for the invitation actions.
type AuthzRequest struct {
	ActorID     string
	ActorOrgID  string
	ActorRole   domain.Role
	ActorStatus domain.UserStatus

	TargetID      string
	TargetRole    domain.Role
	RequestedRole domain.Role

	ResourceOrgID string

	Action Action
}

// Authorize evaluates the pure role/action decision table. It is
// deterministic in its inputs: the one store-dependent rule, last-owner
// protection, is enforced by the member service with a guarded update on
// top of an Allow from this table.
func Authorize(req AuthzRequest) Decision {
	if req.ActorStatus != domain.UserActive {
		return deny(DenyInactiveActor)
	}

	switch req.Action {
	case ActionViewMembers:
		return allow()

	case ActionResendInvitation, ActionRevokeInvitation:
		if req.ResourceOrgID != "" && req.ResourceOrgID != req.ActorOrgID {
			return deny(DenyCrossTenant)
		}
		if !req.ActorRole.AtLeastAdmin() {
			return deny(DenyInsufficientPrivilege)
		}
		return allow()

	case ActionChangeRole:
		return authorizeChangeRole(req)

	default:
		return deny(DenyInsufficientPrivilege)
	}
}

func authorizeChangeRole(req AuthzRequest) Decision {
	// Nobody edits their own role, owners included.
	if req.ActorID == req.TargetID {
		return deny(DenySelfModification)
	}

	switch req.ActorRole {
	case domain.RoleOwner:
		// Owners may set any role on anyone. Demoting the last owner is
		// rejected later by the guarded update, not here.
		return allow()

	case domain.RoleAdmin:
		if req.TargetRole == domain.RoleOwner {
			return deny(DenyOwnersProtected)
		}
		if req.TargetRole == domain.RoleAdmin {
			return deny(DenyAdminsProtected)
		}
		// Only owners grant admin or owner.
		if req.RequestedRole == domain.RoleOwner || req.RequestedRole == domain.RoleAdmin {
			return deny(DenyInsufficientPrivilege)
		}
		return allow()

	default:
		return deny(DenyInsufficientPrivilege)
	}
}
