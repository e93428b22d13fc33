package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/internal/access/store/drivers/sqlite"
	"github.com/botforge/botforge/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestSession(identityID string, now time.Time) domain.Session {
	return domain.Session{
		ID:                 idx.New().String(),
		IdentityID:         identityID,
		Status:             domain.SessionActive,
		Role:               domain.RoleUser,
		RefreshFingerprint: idx.New().String(),
		DeviceType:         domain.DeviceDesktop,
		ClientAgent:        "test-agent/1.0",
		SourceAddress:      "203.0.113.7",
		CreatedAt:          now,
		LastActivityAt:     now,
		ExpiresAt:          now.Add(24 * time.Hour),
	}
}

func TestSessions_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Equal(t, domain.SessionActive, got.Status)
	require.Equal(t, domain.RoleUser, got.Role)
	require.Equal(t, sess.RefreshFingerprint, got.RefreshFingerprint)
	require.True(t, got.ExpiresAt.After(now))

	byFP, err := s.Sessions().GetSessionByRefreshFingerprint(ctx, sess.RefreshFingerprint)
	require.NoError(t, err)
	require.Equal(t, sess.ID, byFP.ID)
}

func TestSessions_GetMissing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Sessions().GetSessionByID(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_DuplicateFingerprint(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, a))

	b := newTestSession("identity-2", now)
	b.RefreshFingerprint = a.RefreshFingerprint
	require.ErrorIs(t, s.Sessions().CreateSession(ctx, b), store.ErrAlreadyExists)
}

func TestSessions_TouchOnlyActive(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	later := now.Add(5 * time.Minute)
	require.NoError(t, s.Sessions().TouchSession(ctx, sess.ID, later))

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, later, got.LastActivityAt.UTC())

	// Once terminated the touch no longer matches any row.
	require.NoError(t, s.Sessions().TerminateSession(ctx, sess.ID, "logout"))
	require.ErrorIs(t, s.Sessions().TouchSession(ctx, sess.ID, later), store.ErrNotFound)
}

func TestSessions_TerminateIsSticky(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	require.NoError(t, s.Sessions().TerminateSession(ctx, sess.ID, "logout"))

	// MarkExpired only rewrites active rows, so the terminal state holds.
	require.NoError(t, s.Sessions().MarkExpired(ctx, sess.ID))

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionTerminated, got.Status)
}

func TestSessions_MarkSuspicious(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	require.NoError(t, s.Sessions().MarkSuspicious(ctx, sess.ID, false))
	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, got.IsSuspicious)
	require.Equal(t, domain.SessionActive, got.Status)

	require.NoError(t, s.Sessions().MarkSuspicious(ctx, sess.ID, true))
	got, err = s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionBlocked, got.Status)
}

func TestSessions_MarkSuspiciousBlockPreservesTerminal(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))
	require.NoError(t, s.Sessions().TerminateSession(ctx, sess.ID, "logout"))

	require.NoError(t, s.Sessions().MarkSuspicious(ctx, sess.ID, true))

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, got.IsSuspicious)
	require.Equal(t, domain.SessionTerminated, got.Status)
}

func TestSessions_IncrementFailedAttempts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	for want := 1; want <= 3; want++ {
		got, err := s.Sessions().IncrementFailedAttempts(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := s.Sessions().IncrementFailedAttempts(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_ExpireSessionsBefore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := newTestSession("identity-1", now.Add(-48*time.Hour))
	stale.ExpiresAt = now.Add(-time.Hour)
	require.NoError(t, s.Sessions().CreateSession(ctx, stale))

	fresh := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, fresh))

	n, err := s.Sessions().ExpireSessionsBefore(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.Sessions().GetSessionByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionExpired, got.Status)

	got, err = s.Sessions().GetSessionByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionActive, got.Status)
}

func TestSessions_ListByIdentity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Sessions().CreateSession(ctx, newTestSession("identity-1", now.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, newTestSession("identity-2", now)))

	got, err := s.Sessions().ListSessionsByIdentity(ctx, "identity-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestActivities_AppendAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := newTestSession("identity-1", now)
	require.NoError(t, s.Sessions().CreateSession(ctx, sess))

	for i := 0; i < 3; i++ {
		act := domain.SessionActivity{
			ID:           idx.New().String(),
			SessionID:    sess.ID,
			IdentityID:   "identity-1",
			ActivityType: domain.ActivityRequest,
			Endpoint:     "/v1/chats",
			Method:       "GET",
			Success:      true,
			StatusCode:   200,
			DurationMS:   int64(i + 1),
			Metadata:     map[string]any{"seq": float64(i)},
			Timestamp:    now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.Activities().AppendActivity(ctx, act))
	}

	got, err := s.Activities().ListActivitiesBySession(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Newest first.
	require.EqualValues(t, 3, got[0].DurationMS)
	require.Equal(t, map[string]any{"seq": float64(2)}, got[0].Metadata)

	got, err = s.Activities().ListActivitiesByIdentity(ctx, "identity-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestActivities_DenialWithoutSession(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	act := domain.SessionActivity{
		ID:           idx.New().String(),
		ActivityType: domain.ActivityRequest,
		Endpoint:     "/v1/admin/settings",
		Method:       "POST",
		Success:      false,
		ErrorMessage: "missing credential",
		StatusCode:   401,
		Timestamp:    time.Now().UTC(),
	}
	require.NoError(t, s.Activities().AppendActivity(ctx, act))
}

func TestAlerts_ResolveOnce(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	alert := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: "identity-1",
		AlertType:  "suspicious_session",
		Severity:   domain.SeverityHigh,
		Title:      "Suspicious session flagged",
		CreatedAt:  now,
	}
	require.NoError(t, s.Alerts().CreateAlert(ctx, alert))

	require.NoError(t, s.Alerts().ResolveAlert(ctx, alert.ID, "admin-1", now.Add(time.Minute)))

	got, err := s.Alerts().GetAlertByID(ctx, alert.ID)
	require.NoError(t, err)
	require.True(t, got.IsResolved)
	require.Equal(t, "admin-1", got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)

	err = s.Alerts().ResolveAlert(ctx, alert.ID, "admin-2", now.Add(2*time.Minute))
	require.ErrorIs(t, err, store.ErrAlreadyResolved)

	// First resolver wins.
	got, err = s.Alerts().GetAlertByID(ctx, alert.ID)
	require.NoError(t, err)
	require.Equal(t, "admin-1", got.ResolvedBy)

	err = s.Alerts().ResolveAlert(ctx, "missing", "admin-1", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAlerts_ListByIdentity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	open := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: "identity-1",
		AlertType:  "failed_attempts",
		Severity:   domain.SeverityMedium,
		Title:      "Repeated failures",
		CreatedAt:  now,
	}
	resolved := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: "identity-1",
		AlertType:  "suspicious_session",
		Severity:   domain.SeverityLow,
		Title:      "Old alert",
		CreatedAt:  now.Add(-time.Hour),
	}
	require.NoError(t, s.Alerts().CreateAlert(ctx, open))
	require.NoError(t, s.Alerts().CreateAlert(ctx, resolved))
	require.NoError(t, s.Alerts().ResolveAlert(ctx, resolved.ID, "admin-1", now))

	got, err := s.Alerts().ListAlertsByIdentity(ctx, "identity-1", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, open.ID, got[0].ID)

	got, err = s.Alerts().ListAlertsByIdentity(ctx, "identity-1", true)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestPasswordHistory_AppendListPrune(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 7; i++ {
		h := domain.PasswordHistory{
			ID:            idx.New().String(),
			IdentityID:    "identity-1",
			PasswordHash:  "$argon2id$stub$" + idx.New().String(),
			ChangedByUser: true,
			CreatedAt:     now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.PasswordHistory().AppendPasswordHistory(ctx, h))
	}

	got, err := s.PasswordHistory().ListRecentPasswordHistory(ctx, "identity-1", 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.True(t, got[0].CreatedAt.After(got[4].CreatedAt))

	require.NoError(t, s.PasswordHistory().PrunePasswordHistory(ctx, "identity-1", 3))

	got, err = s.PasswordHistory().ListRecentPasswordHistory(ctx, "identity-1", 100)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Sessions().GetSessionByID(ctx, sess.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx_Commit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := newTestSession("identity-1", now)
	alert := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: "identity-1",
		SessionID:  sess.ID,
		AlertType:  "suspicious_session",
		Severity:   domain.SeverityCritical,
		Title:      "Blocked session",
		CreatedAt:  now,
	}

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return err
		}
		if err := tx.Sessions().MarkSuspicious(ctx, sess.ID, true); err != nil {
			return err
		}
		return tx.Alerts().CreateAlert(ctx, alert)
	})
	require.NoError(t, err)

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionBlocked, got.Status)

	gotAlert, err := s.Alerts().GetAlertByID(ctx, alert.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, gotAlert.SessionID)
}
