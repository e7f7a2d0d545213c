package http

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
	"github.com/chatforge/chatforge/pkg/jwtx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// BootstrapHandler provisions the first organization and owner. Only
// usable while the store is empty; afterwards it answers with a
// conflict.
type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
	Signer           *jwtx.Signer
}

func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req dashsdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON body")
		return
	}

	orgName := strings.TrimSpace(req.OrgName)
	if orgName == "" {
		writeBadRequest(w, "org_name is required")
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

	result, err := h.BootstrapService.Bootstrap(ctx, orgName, email,
		strings.TrimSpace(req.FirstName),
		strings.TrimSpace(req.LastName),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.Signer.Sign(result.Owner.ID, result.Org.ID)
	if err != nil {
		log.Error("failed to sign bootstrap session", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, dashsdk.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Setup succeeded but the session could not be issued",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, dashsdk.BootstrapResponse{
		OrgID:        result.Org.ID,
		OwnerID:      result.Owner.ID,
		APIKey:       result.APIKey.Key,
		SessionToken: session,
	})
}
