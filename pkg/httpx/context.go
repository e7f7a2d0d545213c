package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyOrgID  ctxKey = "org_id"
)

// UserIDFromCtx returns the authenticated caller's user id, if any.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// OrgIDFromCtx returns the tenant scope of the current request, if any.
func OrgIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyOrgID).(string); ok {
		return v
	}
	return ""
}
