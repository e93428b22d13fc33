package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/botforge/botforge/internal/access/domain"
	"github.com/botforge/botforge/internal/access/store"
)

type alertsRepo struct {
	db dbtx
}

const alertColumns = `id, identity_id, session_id, alert_type, severity, title,
	description, source_address, metadata, is_resolved, resolved_by, resolved_at,
	created_at`

func (r *alertsRepo) CreateAlert(ctx context.Context, a domain.SecurityAlert) error {
	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO security_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, ?)`,
		a.ID, a.IdentityID, mapStringNull(a.SessionID),
		a.AlertType, string(a.Severity), a.Title,
		mapStringNull(a.Description), mapStringNull(a.SourceAddress), metadata,
		a.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *alertsRepo) GetAlertByID(ctx context.Context, id string) (domain.SecurityAlert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM security_alerts WHERE id = ?`, id)
	return scanAlert(row)
}

// ResolveAlert flips is_resolved exactly once. The WHERE clause guards the
// resolve-once invariant at the database, not just in service code.
func (r *alertsRepo) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE security_alerts
		SET is_resolved = 1, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND is_resolved = 0`,
		resolvedBy, at.UTC(), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: missing row or already resolved.
	if _, err := r.GetAlertByID(ctx, id); err != nil {
		return err
	}
	return store.ErrAlreadyResolved
}

func (r *alertsRepo) ListAlertsByIdentity(
	ctx context.Context,
	identityID string,
	includeResolved bool,
) ([]domain.SecurityAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE identity_id = ?`
	if !includeResolved {
		query += ` AND is_resolved = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SecurityAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlert(row scanner) (domain.SecurityAlert, error) {
	var (
		a                                            domain.SecurityAlert
		severity                                     string
		sessionID, description, sourceAddr, metadata sql.NullString
		resolvedBy                                   sql.NullString
		resolvedAt                                   sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.IdentityID, &sessionID, &a.AlertType, &severity, &a.Title,
		&description, &sourceAddr, &metadata, &a.IsResolved, &resolvedBy, &resolvedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.SecurityAlert{}, mapNotFound(err)
	}

	a.Severity = domain.AlertSeverity(severity)
	a.SessionID = mapNullString(sessionID)
	a.Description = mapNullString(description)
	a.SourceAddress = mapNullString(sourceAddr)
	a.ResolvedBy = mapNullString(resolvedBy)
	a.ResolvedAt = mapNullTimePtr(resolvedAt)

	if a.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return domain.SecurityAlert{}, err
	}
	return a, nil
}
