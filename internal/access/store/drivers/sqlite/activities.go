package sqlite

import (
	"context"
	"database/sql"

	"github.com/botforge/botforge/internal/access/domain"
)

type activitiesRepo struct {
	db dbtx
}

const activityColumns = `id, session_id, identity_id, activity_type, endpoint, method,
	query, source_address, client_agent, success, error_message, status_code,
	duration_ms, metadata, timestamp`

func (r *activitiesRepo) AppendActivity(ctx context.Context, a domain.SessionActivity) error {
	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO session_activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, mapStringNull(a.SessionID), mapStringNull(a.IdentityID),
		string(a.ActivityType), a.Endpoint, a.Method,
		mapStringNull(a.Query), mapStringNull(a.SourceAddress), mapStringNull(a.ClientAgent),
		a.Success, mapStringNull(a.ErrorMessage), a.StatusCode,
		a.DurationMS, metadata, a.Timestamp.UTC(),
	)
	return mapConstraint(err)
}

func (r *activitiesRepo) ListActivitiesBySession(
	ctx context.Context,
	sessionID string,
	limit int,
) ([]domain.SessionActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM session_activities
		WHERE session_id = ? ORDER BY timestamp DESC LIMIT ?`,
		sessionID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

func (r *activitiesRepo) ListActivitiesByIdentity(
	ctx context.Context,
	identityID string,
	limit int,
) ([]domain.SessionActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM session_activities
		WHERE identity_id = ? ORDER BY timestamp DESC LIMIT ?`,
		identityID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]domain.SessionActivity, error) {
	var out []domain.SessionActivity
	for rows.Next() {
		var (
			a                                        domain.SessionActivity
			sessionID, identityID, query, sourceAddr sql.NullString
			clientAgent, errorMessage, metadata      sql.NullString
			activityType                             string
		)
		err := rows.Scan(
			&a.ID, &sessionID, &identityID, &activityType, &a.Endpoint, &a.Method,
			&query, &sourceAddr, &clientAgent, &a.Success, &errorMessage, &a.StatusCode,
			&a.DurationMS, &metadata, &a.Timestamp,
		)
		if err != nil {
			return nil, err
		}

		a.SessionID = mapNullString(sessionID)
		a.IdentityID = mapNullString(identityID)
		a.ActivityType = domain.ActivityType(activityType)
		a.Query = mapNullString(query)
		a.SourceAddress = mapNullString(sourceAddr)
		a.ClientAgent = mapNullString(clientAgent)
		a.ErrorMessage = mapNullString(errorMessage)

		if a.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}

		out = append(out, a)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
