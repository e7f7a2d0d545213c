package http

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/chatforge/chatforge/internal/dashboard/domain"
	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
)

type InvitationsHandler struct {
	InviteService *service.InviteService
}

// HandleCreate mints a pending invitation for an email address.
func (h *InvitationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := httpx.UserIDFromCtx(ctx)
	if actorID == "" {
		writeUnauthorized(w, "Authentication required")
		return
	}

	var req dashsdk.CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeBadRequest(w, "email is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		writeBadRequest(w, "email is not a valid address")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeBadRequest(w, "role must be one of owner, admin, member")
		return
	}

	result, err := h.InviteService.Create(ctx, actorID, service.CreateInvitationRequest{
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInvitationResponse(result))
}

// HandleResend supersedes a pending or expired invitation with a fresh
// one carrying a new token and expiry window.
func (h *InvitationsHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := httpx.UserIDFromCtx(ctx)
	if actorID == "" {
		writeUnauthorized(w, "Authentication required")
		return
	}

	invitationID := r.PathValue("id")
	if invitationID == "" {
		writeBadRequest(w, "invitation id is required")
		return
	}

	result, err := h.InviteService.Resend(ctx, actorID, invitationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInvitationResponse(result))
}

// HandleRevoke cancels a pending invitation.
func (h *InvitationsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actorID := httpx.UserIDFromCtx(ctx)
	if actorID == "" {
		writeUnauthorized(w, "Authentication required")
		return
	}

	invitationID := r.PathValue("id")
	if invitationID == "" {
		writeBadRequest(w, "invitation id is required")
		return
	}

	warnings, err := h.InviteService.Revoke(ctx, actorID, invitationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if len(warnings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dashsdk.RevokeInvitationResponse{Warnings: warnings})
}

func toInvitationResponse(result service.InvitationResult) dashsdk.InvitationResponse {
	return dashsdk.InvitationResponse{
		ID:        result.Invitation.ID,
		Email:     result.Invitation.Email,
		Role:      result.Invitation.Role.String(),
		Status:    string(result.Invitation.Status),
		ExpiresAt: result.Invitation.ExpiresAt,
		Warnings:  result.Warnings,
	}
}
