package httpx

import "context"

type ctxKey string

const (
	// CtxKeyIdentityID carries the authenticated principal's id, set by the
	// authorization interceptor once a request is allowed.
	CtxKeyIdentityID ctxKey = "identity_id"
	// CtxKeyIdentityRole carries the principal's role name.
	CtxKeyIdentityRole ctxKey = "identity_role"
	// CtxKeySessionID carries the live session id the credential belongs to.
	CtxKeySessionID ctxKey = "session_id"
)

func ContextWithPrincipal(ctx context.Context, identityID, role, sessionID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyIdentityID, identityID)
	ctx = context.WithValue(ctx, CtxKeyIdentityRole, role)
	ctx = context.WithValue(ctx, CtxKeySessionID, sessionID)
	return ctx
}

// IdentityIDFromContext returns the authenticated identity id, or "" on an
// unauthenticated (exempt-path) request.
func IdentityIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyIdentityID).(string); ok {
		return v
	}
	return ""
}

func IdentityRoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyIdentityRole).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}
