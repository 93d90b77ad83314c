package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

var _ repository.UsageRepository = (*DB)(nil)

// Increment bumps the counter for (userID, action), creating it at 1.
func (db *DB) Increment(ctx context.Context, userID string, action model.Action) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO usage_counters (user_id, action, count, updated_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (user_id, action)
		 DO UPDATE SET count = count + 1, updated_at = excluded.updated_at`,
		userID, string(action), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing %s for user %s: %w", action, userID, err)
	}
	return nil
}

// Usage returns every counter the user has. Actions never performed are absent.
func (db *DB) Usage(ctx context.Context, userID string) (model.Usage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT action, count FROM usage_counters WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading usage for user %s: %w", userID, err)
	}
	defer rows.Close()

	usage := model.Usage{}
	for rows.Next() {
		var (
			action string
			count  int64
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning usage row: %w", err)
		}
		usage[model.Action(action)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating usage: %w", err)
	}
	return usage, nil
}
