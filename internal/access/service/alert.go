package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/pkg/slogx"
)

var (
	ErrAlertNotFound        = errors.New("alert_not_found")
	ErrAlertAlreadyResolved = errors.New("alert_already_resolved")
)

type AlertService struct {
	Store store.Store
}

// Resolve marks an alert resolved exactly once. The first resolver wins; any
// later attempt gets ErrAlertAlreadyResolved and the record keeps the original
// resolver and timestamp.
func (s *AlertService) Resolve(ctx context.Context, alertID, resolvedBy string) (domain.SecurityAlert, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	err := s.Store.Alerts().ResolveAlert(ctx, alertID, resolvedBy, now)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.SecurityAlert{}, ErrAlertNotFound
	case errors.Is(err, store.ErrAlreadyResolved):
		return domain.SecurityAlert{}, ErrAlertAlreadyResolved
	case err != nil:
		return domain.SecurityAlert{}, err
	}

	alert, err := s.Store.Alerts().GetAlertByID(ctx, alertID)
	if err != nil {
		return domain.SecurityAlert{}, err
	}

	l.Info("alert resolved",
		slog.String("alert_id", alertID),
		slog.String("resolved_by", resolvedBy),
	)
	return alert, nil
}

// List returns an identity's alerts, newest first.
func (s *AlertService) List(
	ctx context.Context,
	identityID string,
	includeResolved bool,
) ([]domain.SecurityAlert, error) {
	return s.Store.Alerts().ListAlertsByIdentity(ctx, identityID, includeResolved)
}
