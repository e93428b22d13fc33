package sqlite

import (
	"context"
	"database/sql"

	"github.com/botforge/botforge/internal/access/domain"
)

type passwordHistoryRepo struct {
	db dbtx
}

func (r *passwordHistoryRepo) AppendPasswordHistory(ctx context.Context, h domain.PasswordHistory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_history (id, identity_id, password_hash, changed_by_user,
			source_address, client_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.IdentityID, h.PasswordHash, h.ChangedByUser,
		mapStringNull(h.SourceAddress), mapStringNull(h.ClientAgent), h.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *passwordHistoryRepo) ListRecentPasswordHistory(
	ctx context.Context,
	identityID string,
	limit int,
) ([]domain.PasswordHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, identity_id, password_hash, changed_by_user,
			source_address, client_agent, created_at
		FROM password_history
		WHERE identity_id = ? ORDER BY created_at DESC LIMIT ?`,
		identityID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PasswordHistory
	for rows.Next() {
		var (
			h                       domain.PasswordHistory
			sourceAddr, clientAgent sql.NullString
		)
		err := rows.Scan(&h.ID, &h.IdentityID, &h.PasswordHash, &h.ChangedByUser,
			&sourceAddr, &clientAgent, &h.CreatedAt)
		if err != nil {
			return nil, err
		}
		h.SourceAddress = mapNullString(sourceAddr)
		h.ClientAgent = mapNullString(clientAgent)
		out = append(out, h)
	}
	return out, rows.Err()
}

// PrunePasswordHistory drops everything but the newest keep entries so the
// table doesn't grow unbounded per identity.
func (r *passwordHistoryRepo) PrunePasswordHistory(ctx context.Context, identityID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE identity_id = ? AND id NOT IN (
			SELECT id FROM password_history
			WHERE identity_id = ? ORDER BY created_at DESC LIMIT ?
		)`,
		identityID, identityID, keep)
	return err
}
