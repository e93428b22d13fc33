package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/pkg/cryptox"
	"github.com/botforge/botforge/pkg/idx"
	"github.com/botforge/botforge/pkg/jwtx"
	"github.com/botforge/botforge/pkg/slogx"
)

var (
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionNotLive  = errors.New("session_not_live")
	ErrInvalidRefresh  = errors.New("invalid_refresh_credential")
)

// DefaultSessionTTL bounds how long a session may live without a refresh.
const DefaultSessionTTL = 24 * time.Hour

type SessionService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	SessionTTL time.Duration
}

// CreatedSession carries everything a login collaborator needs to hand back to
// the client. RefreshCredential is the only time the opaque value exists
// outside the client; the store keeps just its fingerprint.
type CreatedSession struct {
	Session           domain.Session
	RefreshCredential string
	AccessToken       string
	AccessExpiresAt   time.Time
}

// RefreshedCredential is the result of redeeming a refresh credential.
type RefreshedCredential struct {
	SessionID       string
	AccessToken     string
	AccessExpiresAt time.Time
}

// Create opens a new session for an authenticated identity and mints its first
// access credential. Identifier collisions surface as errors rather than being
// retried: with ULID session ids and 256-bit refresh credentials a collision
// means a broken random source, not bad luck.
func (s *SessionService) Create(
	ctx context.Context,
	identity domain.Identity,
	device domain.DeviceInfo,
) (*CreatedSession, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("generate refresh credential: %w", err)
	}

	device = device.Normalize()
	sess := domain.Session{
		ID:                 idx.New().String(),
		IdentityID:         identity.ID,
		Status:             domain.SessionActive,
		Role:               normalizeRole(identity.Role),
		RefreshFingerprint: cryptox.FingerprintToken(refresh),
		DeviceType:         device.DeviceType,
		DeviceFingerprint:  device.DeviceFingerprint,
		ClientAgent:        device.ClientAgent,
		SourceAddress:      device.SourceAddress,
		ApproxLocation:     device.ApproxLocation,
		CreatedAt:          now,
		LastActivityAt:     now,
		ExpiresAt:          now.Add(s.sessionTTL()),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return err
		}
		return tx.Activities().AppendActivity(ctx, domain.SessionActivity{
			ID:            idx.New().String(),
			SessionID:     sess.ID,
			IdentityID:    identity.ID,
			ActivityType:  domain.ActivityLogin,
			Endpoint:      "/v1/sessions",
			Method:        "POST",
			SourceAddress: device.SourceAddress,
			ClientAgent:   device.ClientAgent,
			Success:       true,
			StatusCode:    201,
			Timestamp:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.mintAccessToken(identity.ID, sess.ID, string(sess.Role), now)
	if err != nil {
		return nil, err
	}

	l.Info("session created",
		slog.String("session_id", sess.ID),
		slog.String("identity_id", identity.ID),
		slog.String("device_type", string(sess.DeviceType)),
	)

	return &CreatedSession{
		Session:           sess,
		RefreshCredential: refresh,
		AccessToken:       token,
		AccessExpiresAt:   expiresAt,
	}, nil
}

// Refresh redeems an opaque refresh credential for a fresh access token. The
// session must still be live; a stale or unknown credential maps to
// ErrInvalidRefresh so callers cannot enumerate which sessions exist. The
// minted token carries the role persisted on the session at creation; callers
// never supply one.
func (s *SessionService) Refresh(
	ctx context.Context,
	refreshCredential string,
) (*RefreshedCredential, error) {
	now := time.Now().UTC()

	sess, err := s.Store.Sessions().GetSessionByRefreshFingerprint(ctx,
		cryptox.FingerprintToken(refreshCredential))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if err := s.requireLive(ctx, sess, now); err != nil {
		if errors.Is(err, ErrSessionNotLive) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if err := s.Store.Sessions().TouchSession(ctx, sess.ID, now); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.mintAccessToken(sess.IdentityID, sess.ID, string(sess.Role), now)
	if err != nil {
		return nil, err
	}

	err = s.Store.Activities().AppendActivity(ctx, domain.SessionActivity{
		ID:           idx.New().String(),
		SessionID:    sess.ID,
		IdentityID:   sess.IdentityID,
		ActivityType: domain.ActivityRefresh,
		Endpoint:     "/v1/sessions/refresh",
		Method:       "POST",
		Success:      true,
		StatusCode:   200,
		Timestamp:    now,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("refresh activity write failed",
			slog.String("session_id", sess.ID), slog.Any("error", err))
	}

	return &RefreshedCredential{
		SessionID:       sess.ID,
		AccessToken:     token,
		AccessExpiresAt: expiresAt,
	}, nil
}

// Touch records activity on a live session. Missing sessions return
// ErrSessionNotFound; any non-live state returns ErrSessionNotLive. A session
// found past its expiry is transitioned to expired on the spot rather than
// waiting for the housekeeping sweep.
func (s *SessionService) Touch(ctx context.Context, sessionID string) error {
	now := time.Now().UTC()

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := s.requireLive(ctx, sess, now); err != nil {
		return err
	}

	return s.Store.Sessions().TouchSession(ctx, sessionID, now)
}

// Revoke terminates a session. Idempotent: revoking a session that is already
// expired, terminated or blocked succeeds without changing it.
func (s *SessionService) Revoke(ctx context.Context, sessionID, reason string) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if sess.Status != domain.SessionActive {
		return nil
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().TerminateSession(ctx, sessionID, reason); err != nil {
			return err
		}
		return tx.Activities().AppendActivity(ctx, domain.SessionActivity{
			ID:           idx.New().String(),
			SessionID:    sessionID,
			IdentityID:   sess.IdentityID,
			ActivityType: domain.ActivityLogout,
			Endpoint:     "/v1/sessions/" + sessionID,
			Method:       "DELETE",
			Success:      true,
			StatusCode:   204,
			Metadata:     map[string]any{"reason": reason},
			Timestamp:    now,
		})
	})
	if err != nil {
		return err
	}

	l.Info("session revoked",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
	return nil
}

// FlagInput describes the anomaly being attached to a session.
type FlagInput struct {
	AlertType     string
	Severity      domain.AlertSeverity
	Title         string
	Description   string
	SourceAddress string
	Metadata      map[string]any
}

// FlagSuspicious marks a session suspicious and records a security alert in
// the same transaction. High and critical severities also block the session;
// either every write lands or none do.
func (s *SessionService) FlagSuspicious(
	ctx context.Context,
	sessionID string,
	input FlagInput,
) (domain.SecurityAlert, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SecurityAlert{}, ErrSessionNotFound
		}
		return domain.SecurityAlert{}, err
	}

	alert := domain.SecurityAlert{
		ID:            idx.New().String(),
		IdentityID:    sess.IdentityID,
		SessionID:     sessionID,
		AlertType:     input.AlertType,
		Severity:      input.Severity,
		Title:         input.Title,
		Description:   input.Description,
		SourceAddress: input.SourceAddress,
		Metadata:      input.Metadata,
		CreatedAt:     now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().MarkSuspicious(ctx, sessionID, input.Severity.Escalates()); err != nil {
			return err
		}
		if err := tx.Alerts().CreateAlert(ctx, alert); err != nil {
			return err
		}
		return tx.Activities().AppendActivity(ctx, domain.SessionActivity{
			ID:           idx.New().String(),
			SessionID:    sessionID,
			IdentityID:   sess.IdentityID,
			ActivityType: domain.ActivityFlagged,
			Endpoint:     "/v1/sessions/" + sessionID + "/flag",
			Method:       "POST",
			Success:      true,
			StatusCode:   200,
			Metadata: map[string]any{
				"alert_id": alert.ID,
				"severity": string(input.Severity),
			},
			Timestamp: now,
		})
	})
	if err != nil {
		return domain.SecurityAlert{}, err
	}

	l.Warn("session flagged suspicious",
		slog.String("session_id", sessionID),
		slog.String("severity", string(input.Severity)),
		slog.Bool("blocked", input.Severity.Escalates()),
	)
	return alert, nil
}

// RecordFailure bumps a session's failed attempt counter and returns the new
// count. Collaborating heuristics decide what the count means.
func (s *SessionService) RecordFailure(ctx context.Context, sessionID string) (int, error) {
	count, err := s.Store.Sessions().IncrementFailedAttempts(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	return count, nil
}

// ListSessions returns an identity's sessions, newest first.
func (s *SessionService) ListSessions(ctx context.Context, identityID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListSessionsByIdentity(ctx, identityID)
}

// ListActivity returns a session's recent activity rows, newest first.
func (s *SessionService) ListActivity(
	ctx context.Context,
	sessionID string,
	limit int,
) ([]domain.SessionActivity, error) {
	if _, err := s.Store.Sessions().GetSessionByID(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s.Store.Activities().ListActivitiesBySession(ctx, sessionID, limit)
}

// requireLive enforces the single liveness predicate. Lazy expiry: an active
// row past its expires_at is marked expired before the error is returned.
func (s *SessionService) requireLive(ctx context.Context, sess domain.Session, now time.Time) error {
	if sess.IsLive(now) {
		return nil
	}
	if sess.Status == domain.SessionActive {
		if err := s.Store.Sessions().MarkExpired(ctx, sess.ID); err != nil {
			slogx.FromContext(ctx).Error("lazy expiry failed",
				slog.String("session_id", sess.ID), slog.Any("error", err))
		}
	}
	return ErrSessionNotLive
}

func (s *SessionService) mintAccessToken(
	identityID, sessionID, role string,
	now time.Time,
) (string, time.Time, error) {
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(identityID, sessionID, role, s.Issuer, ttl, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, now.Add(ttl), nil
}

// normalizeRole maps anything outside the closed role set to RoleUser, so a
// malformed create request can never widen what its session may do.
func normalizeRole(role domain.Role) domain.Role {
	switch role {
	case domain.RoleAdmin, domain.RoleClient, domain.RoleUser:
		return role
	default:
		return domain.RoleUser
	}
}

func (s *SessionService) sessionTTL() time.Duration {
	if s.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return s.SessionTTL
}
