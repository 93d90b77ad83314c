// Package repository declares the storage contracts the service layer depends on.
// Implementations live in sub-packages: redis for the expiring share store and
// sqlite for the per-user history and usage counters.
package repository

import (
	"context"
	"time"

	"github.com/sakif/codeagentix/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ShareStore is an expiring-record store for shared snippets.
//
// Expiry is the store's job: Put hands over a TTL and the record must become
// unreachable once it lapses. Implementations must not run their own sweeper.
type ShareStore interface {
	// Put writes a new record. It fails with apperror.ErrConflict if the id exists.
	Put(ctx context.Context, snippet *model.SharedSnippet, ttl time.Duration) error
	// Get returns the record and its remaining TTL, or apperror.ErrNotFound.
	Get(ctx context.Context, shareID string) (*model.SharedSnippet, time.Duration, error)
	// Delete removes the record, or returns apperror.ErrNotFound if nothing was removed.
	Delete(ctx context.Context, shareID string) error
	Ping(ctx context.Context) error
}

// ShareHistoryRepository tracks which user created which share.
type ShareHistoryRepository interface {
	Record(ctx context.Context, rec *model.ShareRecord) error
	ListActive(ctx context.Context, userID string, now time.Time, opts ListOptions) ([]model.ShareRecord, error)
	Forget(ctx context.Context, userID, shareID string) error
}

// UsageRepository keeps per-user action counters.
type UsageRepository interface {
	Increment(ctx context.Context, userID string, action model.Action) error
	Usage(ctx context.Context, userID string) (model.Usage, error)
}
