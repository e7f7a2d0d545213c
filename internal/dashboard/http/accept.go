package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
)

// AcceptHandler redeems invitation tokens. It is the one unauthenticated
// membership endpoint; the opaque token is the credential.
type AcceptHandler struct {
	InviteService *service.InviteService
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dashsdk.AcceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	user, err := h.InviteService.Accept(ctx, token,
		strings.TrimSpace(req.FirstName),
		strings.TrimSpace(req.LastName),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, dashsdk.AcceptInvitationResponse{
		UserID: user.ID,
		OrgID:  user.OrgID,
		Email:  user.Email,
		Role:   user.Role.String(),
	})
}
