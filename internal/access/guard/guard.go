// Package guard decides allow/deny for every inbound request and records the
// decision. Identity verification and permission rules are consumed as
// capabilities; the guard owns only the resolution flow.
package guard

import (
	"context"
	"errors"

	"github.com/botforge/botforge/internal/access/domain"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Principal is the authenticated caller a credential resolves to.
type Principal struct {
	Identity  domain.Identity
	SessionID string
}

// CredentialVerifier resolves a bearer credential to a Principal. Returns
// ErrUnauthenticated (possibly wrapped) for anything unverifiable.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, bearer string) (Principal, error)
}

// SessionToucher confirms a session is live and records the activity on it.
// service.SessionService satisfies this.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string) error
}

// PermissionChecker answers whether a principal holds a permission, optionally
// scoped to one resource instance. Role and ownership resolution live in the
// authorization-rules subsystem behind this interface.
type PermissionChecker interface {
	Check(ctx context.Context, p Principal, permission, resourceType string, resourceID int64) (bool, error)
}

type elevationKey struct{}

// WithElevation marks the context so permission checks succeed regardless of
// the principal's grants. Scoped to the operation holding the context; never
// ambient, never process-wide.
func WithElevation(ctx context.Context) context.Context {
	return context.WithValue(ctx, elevationKey{}, true)
}

// Elevated reports whether the context carries an elevation mark.
func Elevated(ctx context.Context) bool {
	v, _ := ctx.Value(elevationKey{}).(bool)
	return v
}
