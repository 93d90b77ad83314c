package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

var _ repository.ShareHistoryRepository = (*DB)(nil)

// Record stores a history row for a share the user just created.
//
// The row gets its own xid: short, URL-safe and time-sortable, which is all a
// history entry needs. The shareId itself stays the uuid-based public id.
func (db *DB) Record(ctx context.Context, rec *model.ShareRecord) error {
	rec.ID = xid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO share_history (id, user_id, share_id, title, language, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		rec.ShareID,
		rec.Title,
		rec.Language,
		rec.ExpiresAt.UTC(),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording share %s for user %s: %w", rec.ShareID, rec.UserID, err)
	}
	return nil
}

// ListActive returns the user's shares that have not yet expired, newest first.
//
// Expired rows are filtered by the query rather than deleted: the share itself
// is already gone from Redis, and the history row is harmless.
func (db *DB) ListActive(ctx context.Context, userID string, now time.Time, opts repository.ListOptions) ([]model.ShareRecord, error) {
	// Paging is clamped by the caller; a non-positive limit means no limit.
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, share_id, title, language, expires_at, created_at
		 FROM share_history
		 WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, now.UTC(), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing shares for user %s: %w", userID, err)
	}
	defer rows.Close()

	records := []model.ShareRecord{}
	for rows.Next() {
		var r model.ShareRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.ShareID, &r.Title, &r.Language, &r.ExpiresAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning share history row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating share history: %w", err)
	}

	return records, nil
}

// Forget removes the user's history row for shareID.
func (db *DB) Forget(ctx context.Context, userID, shareID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM share_history WHERE user_id = ? AND share_id = ?`,
		userID, shareID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: forgetting share %s for user %s: %w", shareID, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("share history", shareID)
	}
	return nil
}
