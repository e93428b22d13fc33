package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/internal/access/store/drivers/sqlite"
	"github.com/botforge/botforge/pkg/idx"

	"github.com/stretchr/testify/require"
)

func newAlertService(t *testing.T) *service.AlertService {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return &service.AlertService{Store: st}
}

func TestAlertService_ResolveOnce(t *testing.T) {
	t.Parallel()

	svc := newAlertService(t)
	ctx := context.Background()

	alert := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: idx.New().String(),
		AlertType:  "failed_attempts",
		Severity:   domain.SeverityMedium,
		Title:      "Repeated failed attempts",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, svc.Store.Alerts().CreateAlert(ctx, alert))

	resolved, err := svc.Resolve(ctx, alert.ID, "admin-1")
	require.NoError(t, err)
	require.True(t, resolved.IsResolved)
	require.Equal(t, "admin-1", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = svc.Resolve(ctx, alert.ID, "admin-2")
	require.ErrorIs(t, err, service.ErrAlertAlreadyResolved)

	_, err = svc.Resolve(ctx, "missing", "admin-1")
	require.ErrorIs(t, err, service.ErrAlertNotFound)
}

func TestAlertService_List(t *testing.T) {
	t.Parallel()

	svc := newAlertService(t)
	ctx := context.Background()
	identityID := idx.New().String()

	open := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: identityID,
		AlertType:  "unusual_location",
		Severity:   domain.SeverityLow,
		Title:      "New location",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, svc.Store.Alerts().CreateAlert(ctx, open))

	done := domain.SecurityAlert{
		ID:         idx.New().String(),
		IdentityID: identityID,
		AlertType:  "unusual_location",
		Severity:   domain.SeverityLow,
		Title:      "Old location",
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, svc.Store.Alerts().CreateAlert(ctx, done))
	_, err := svc.Resolve(ctx, done.ID, "admin-1")
	require.NoError(t, err)

	got, err := svc.List(ctx, identityID, false)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.List(ctx, identityID, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
}
