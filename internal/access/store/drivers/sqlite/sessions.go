package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, identity_id, status, role, refresh_fingerprint, device_type,
	device_fingerprint, client_agent, source_address, approx_location,
	is_suspicious, failed_attempt_count, created_at, last_activity_at, expires_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.IdentityID, string(s.Status), string(s.Role), s.RefreshFingerprint, string(s.DeviceType),
		mapStringNull(s.DeviceFingerprint), mapStringNull(s.ClientAgent),
		mapStringNull(s.SourceAddress), mapStringNull(s.ApproxLocation),
		s.IsSuspicious, s.FailedAttemptCount,
		s.CreatedAt.UTC(), s.LastActivityAt.UTC(), s.ExpiresAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) GetSessionByRefreshFingerprint(
	ctx context.Context,
	fp string,
) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE refresh_fingerprint = ?`, fp)
	return scanSession(row)
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = ?
		WHERE id = ? AND status = 'active'`,
		at.UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'expired'
		WHERE id = ? AND status = 'active'`, id)
	return err
}

func (r *sessionsRepo) TerminateSession(ctx context.Context, id string, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'terminated'
		WHERE id = ? AND status = 'active'`, id)
	return err
}

func (r *sessionsRepo) MarkSuspicious(ctx context.Context, id string, block bool) error {
	var res sql.Result
	var err error
	if block {
		res, err = r.db.ExecContext(ctx, `
			UPDATE sessions SET is_suspicious = 1,
				status = CASE WHEN status = 'active' THEN 'blocked' ELSE status END
			WHERE id = ?`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE sessions SET is_suspicious = 1 WHERE id = ?`, id)
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET failed_attempt_count = failed_attempt_count + 1
		WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	if err := requireRow(res); err != nil {
		return 0, err
	}

	var count int
	err = r.db.QueryRowContext(ctx, `
		SELECT failed_attempt_count FROM sessions WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}

func (r *sessionsRepo) ExpireSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'expired'
		WHERE status = 'active' AND expires_at <= ?`,
		cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) ListSessionsByIdentity(
	ctx context.Context,
	identityID string,
) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE identity_id = ? ORDER BY created_at DESC`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		s                                               domain.Session
		status, role, deviceType                        string
		deviceFP, clientAgent, sourceAddr, approxLocStr sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.IdentityID, &status, &role, &s.RefreshFingerprint, &deviceType,
		&deviceFP, &clientAgent, &sourceAddr, &approxLocStr,
		&s.IsSuspicious, &s.FailedAttemptCount,
		&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.Status = domain.SessionStatus(status)
	s.Role = domain.Role(role)
	s.DeviceType = domain.DeviceType(deviceType)
	s.DeviceFingerprint = mapNullString(deviceFP)
	s.ClientAgent = mapNullString(clientAgent)
	s.SourceAddress = mapNullString(sourceAddr)
	s.ApproxLocation = mapNullString(approxLocStr)
	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
