package http

import (
	"context"
	"net/http"

	"github.com/chatforge/chatforge/internal/dashboard/service"
	"github.com/chatforge/chatforge/internal/dashboard/store"
	"github.com/chatforge/chatforge/pkg/dashsdk"
	"github.com/chatforge/chatforge/pkg/httpx"
)

// apiKeyHeader carries the tenant credential on widget requests.
const apiKeyHeader = "X-Api-Key"

// WidgetGateMiddleware authorizes embedded-widget traffic through the
// API key gate and scopes the request to the key's organization. CORS
// preflights short-circuit here: the browser never sends the key on an
// OPTIONS request, so they are answered without a credential check.
func WidgetGateMiddleware(gate *service.WidgetGate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			origin := r.Header.Get("Origin")

			decision := gate.Validate(ctx, r.Header.Get(apiKeyHeader), origin, r.Method)

			if decision.Preflight {
				writeCORSHeaders(w, origin)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if !decision.Allowed {
				switch decision.Reason {
				case service.GateDenyOriginNotAllowed:
					httpx.WriteJSON(w, http.StatusForbidden, dashsdk.ErrorResponse{
						Error:            string(decision.Reason),
						ErrorDescription: "This origin is not allowed for the supplied API key",
					})
				default:
					httpx.WriteJSON(w, http.StatusUnauthorized, dashsdk.ErrorResponse{
						Error:            string(decision.Reason),
						ErrorDescription: "A valid API key is required",
					})
				}
				return
			}

			// The gate has vouched for the origin, so it is safe to echo.
			writeCORSHeaders(w, origin)

			ctx = context.WithValue(ctx, httpx.CtxKeyOrgID, decision.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeCORSHeaders(w http.ResponseWriter, origin string) {
	if origin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader)
	w.Header().Set("Vary", "Origin")
}

// WidgetConfigHandler serves the embed configuration for the
// organization the API key gate resolved.
type WidgetConfigHandler struct {
	Store store.Store
}

func (h *WidgetConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID := httpx.OrgIDFromCtx(ctx)
	if orgID == "" {
		writeUnauthorized(w, "A valid API key is required")
		return
	}

	org, err := h.Store.Organizations().GetOrganizationByID(ctx, orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dashsdk.WidgetConfigResponse{
		OrgID:   org.ID,
		OrgName: org.Name,
		Plan:    string(org.Plan),
	})
}
