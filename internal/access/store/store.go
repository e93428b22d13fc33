package store

import (
	"context"
	"errors"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrAlreadyResolved = errors.New("store: alert already resolved")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and testable, and make
// it hard to accidentally nest transactions.
type Store interface {
	Sessions() Sessions
	Activities() Activities
	Alerts() Alerts
	PasswordHistory() PasswordHistory

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back if fn errors,
	// committed otherwise. Preferred over Tx for composite writes such as
	// flag-and-block or history append-and-prune.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Sessions interface {
	// CreateSession inserts a new session. Returns ErrAlreadyExists if the id
	// or refresh fingerprint collides with an existing row.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by its id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// GetSessionByRefreshFingerprint looks a session up by the fingerprint of
	// its opaque refresh credential.
	GetSessionByRefreshFingerprint(ctx context.Context, fp string) (domain.Session, error)

	// TouchSession sets last_activity_at. Only rows still in the active
	// status are touched; returns ErrNotFound when nothing matched.
	TouchSession(ctx context.Context, id string, at time.Time) error

	// MarkExpired transitions active -> expired. A no-op on any other status.
	MarkExpired(ctx context.Context, id string) error

	// TerminateSession transitions active -> terminated. A no-op on any
	// other status; terminal states are never left.
	TerminateSession(ctx context.Context, id string, reason string) error

	// MarkSuspicious sets is_suspicious and, when block is true, transitions
	// active -> blocked in the same statement.
	MarkSuspicious(ctx context.Context, id string, block bool) error

	// IncrementFailedAttempts bumps failed_attempt_count and returns the new
	// value.
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)

	// ExpireSessionsBefore bulk-transitions every active session whose
	// expires_at is at or before the cutoff. Returns the number of rows
	// transitioned. Safe to run from concurrent workers.
	ExpireSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ListSessionsByIdentity returns an identity's sessions, newest first.
	ListSessionsByIdentity(ctx context.Context, identityID string) ([]domain.Session, error)
}

type Activities interface {
	// AppendActivity inserts an immutable activity row.
	AppendActivity(ctx context.Context, a domain.SessionActivity) error

	// ListActivitiesBySession returns up to limit rows, newest first.
	ListActivitiesBySession(ctx context.Context, sessionID string, limit int) ([]domain.SessionActivity, error)

	// ListActivitiesByIdentity returns up to limit rows, newest first.
	ListActivitiesByIdentity(ctx context.Context, identityID string, limit int) ([]domain.SessionActivity, error)
}

type Alerts interface {
	// CreateAlert inserts a new unresolved alert.
	CreateAlert(ctx context.Context, a domain.SecurityAlert) error

	// GetAlertByID returns an alert by id.
	GetAlertByID(ctx context.Context, id string) (domain.SecurityAlert, error)

	// ResolveAlert marks an alert resolved exactly once. Returns
	// ErrAlreadyResolved when the alert was resolved before, ErrNotFound when
	// it does not exist.
	ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) error

	// ListAlertsByIdentity returns an identity's alerts, newest first,
	// optionally including resolved ones.
	ListAlertsByIdentity(ctx context.Context, identityID string, includeResolved bool) ([]domain.SecurityAlert, error)
}

type PasswordHistory interface {
	// AppendPasswordHistory inserts a history row.
	AppendPasswordHistory(ctx context.Context, h domain.PasswordHistory) error

	// ListRecentPasswordHistory returns up to limit rows, newest first.
	ListRecentPasswordHistory(ctx context.Context, identityID string, limit int) ([]domain.PasswordHistory, error)

	// PrunePasswordHistory deletes all but the newest keep rows for the
	// identity. Run inside the same transaction as the append so pruning can
	// never race a concurrent append for the same identity.
	PrunePasswordHistory(ctx context.Context, identityID string, keep int) error
}
