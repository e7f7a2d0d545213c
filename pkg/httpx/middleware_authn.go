package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/chatforge/chatforge/pkg/jwtx"
	"github.com/chatforge/chatforge/pkg/slogx"
)

// AuthnMiddleware verifies the bearer session token and injects the
// caller's user id and organization scope into the request context.
func AuthnMiddleware(signer *jwtx.Signer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := signer.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("session verify failed", "err", err)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, CtxKeyOrgID, claims.OrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
