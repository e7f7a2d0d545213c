package http

import (
	"encoding/json"
	"net/http"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
)

type MembersHandler struct {
	MemberService *service.MemberService
}

// HandleList serves the membership directory for the caller's
// organization: active members, removed members, live pending
// invitations, and the seat summary.
func (h *MembersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := httpx.UserIDFromCtx(ctx)
	if actorID == "" {
		writeUnauthorized(w, "Authentication required")
		return
	}

	dir, err := h.MemberService.GetDirectory(ctx, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toDirectoryResponse(dir))
}

// HandleChangeRole applies a role change to the member in the path.
func (h *MembersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := httpx.UserIDFromCtx(ctx)
	if actorID == "" {
		writeUnauthorized(w, "Authentication required")
		return
	}

	targetID := r.PathValue("id")
	if targetID == "" {
		writeBadRequest(w, "member id is required")
		return
	}

	var req dashsdk.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, "role must be one of owner, admin, member")
		return
	}

	if err := h.MemberService.ChangeRole(ctx, actorID, targetID, role); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toDirectoryResponse(dir service.Directory) dashsdk.DirectoryResponse {
	resp := dashsdk.DirectoryResponse{
		Active:  make([]dashsdk.MemberInfo, 0, len(dir.Active)),
		Removed: make([]dashsdk.MemberInfo, 0, len(dir.Removed)),
		Pending: make([]dashsdk.PendingInvitationInfo, 0, len(dir.Pending)),
		Seats: dashsdk.SeatInfo{
			Plan:      string(dir.Seats.Plan),
			Capacity:  dir.Seats.Capacity,
			Used:      dir.Seats.Used,
			Remaining: dir.Seats.Remaining,
		},
	}

	for _, e := range dir.Active {
		resp.Active = append(resp.Active, toMemberInfo(e))
	}
	for _, e := range dir.Removed {
		resp.Removed = append(resp.Removed, toMemberInfo(e))
	}
	for _, p := range dir.Pending {
		resp.Pending = append(resp.Pending, dashsdk.PendingInvitationInfo{
			ID:        p.Invitation.ID,
			Email:     p.Invitation.Email,
			Role:      p.Invitation.Role.String(),
			CreatedAt: p.Invitation.CreatedAt,
			ExpiresAt: p.Invitation.ExpiresAt,
			Inviter:   toInviterInfo(p.Inviter),
		})
	}

	return resp
}

func toMemberInfo(e service.MemberEntry) dashsdk.MemberInfo {
	return dashsdk.MemberInfo{
		ID:        e.User.ID,
		Email:     e.User.Email,
		FirstName: e.User.FirstName,
		LastName:  e.User.LastName,
		Role:      e.User.Role.String(),
		Status:    string(e.User.Status),
		JoinedAt:  e.User.CreatedAt,
		Inviter:   toInviterInfo(e.Inviter),
	}
}

func toInviterInfo(info *service.InviterInfo) *dashsdk.InviterInfo {
	if info == nil {
		return nil
	}
	return &dashsdk.InviterInfo{ID: info.ID, Name: info.Name, Email: info.Email}
}
