package http

import (
	"errors"
	"net/http"

	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// writeServiceError maps service-layer errors onto the wire contract.
// Cross-tenant denials come back as not-found so callers cannot probe
// whether a resource exists in another organization.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *service.DeniedError
	if errors.As(err, &denied) {
		if denied.Reason == service.DenyCrossTenant {
			writeNotFound(w)
			return
		}
		httpx.WriteJSON(w, http.StatusForbidden, dashsdk.ErrorResponse{
			Error:            string(denied.Reason),
			ErrorDescription: "You do not have permission to perform this action",
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrSeatLimitExceeded):
		writeConflict(w, "seat_limit_exceeded", "All seats on the current plan are in use")
	case errors.Is(err, service.ErrAlreadyMember):
		writeConflict(w, "already_member", "This email already belongs to an active member")
	case errors.Is(err, service.ErrAlreadyInvited):
		writeConflict(w, "already_invited", "This email already has a pending invitation")
	case errors.Is(err, service.ErrLastOwner):
		writeConflict(w, "last_owner", "An organization must retain at least one owner")
	case errors.Is(err, service.ErrInvitationAccepted):
		writeConflict(w, "already_accepted", "This invitation has already been accepted")
	case errors.Is(err, service.ErrInvitationNotPending):
		writeConflict(w, "invalid_state", "This invitation is no longer pending")
	case errors.Is(err, service.ErrInvitationExpired):
		writeConflict(w, "invitation_expired", "This invitation has expired")
	case errors.Is(err, service.ErrInvitationNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrOrganizationNotFound),
		errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, service.ErrAlreadyBootstrapped):
		writeConflict(w, "already_bootstrapped", "The service has already been set up")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, dashsdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "An internal error occurred",
		})
	}
}

func writeNotFound(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusNotFound, dashsdk.ErrorResponse{
		Error:            "not_found",
		ErrorDescription: "The requested resource does not exist",
	})
}

func writeConflict(w http.ResponseWriter, code, desc string) {
	httpx.WriteJSON(w, http.StatusConflict, dashsdk.ErrorResponse{
		Error:            code,
		ErrorDescription: desc,
	})
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteJSON(w, http.StatusBadRequest, dashsdk.ErrorResponse{
		Error:            "invalid_request",
		ErrorDescription: desc,
	})
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	httpx.WriteJSON(w, http.StatusUnauthorized, dashsdk.ErrorResponse{
		Error:            "unauthorized",
		ErrorDescription: desc,
	})
}
