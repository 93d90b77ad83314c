package service

import (
	"context"
	"log/slog"

	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

// usageTracker bumps per-user counters after a successful action.
//
// Counting is best effort: anonymous callers are skipped, a nil repository
// disables it, and a storage failure is logged without failing the action.
type usageTracker struct {
	repo   repository.UsageRepository
	logger *slog.Logger
}

func (t usageTracker) track(ctx context.Context, userID string, action model.Action) {
	if t.repo == nil || userID == "" {
		return
	}
	if err := t.repo.Increment(ctx, userID, action); err != nil {
		t.logger.Warn("failed to record usage",
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}
