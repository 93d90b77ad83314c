package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func recordShare(t *testing.T, db *DB, userID, shareID string, created, expires time.Time) *model.ShareRecord {
	t.Helper()
	rec := &model.ShareRecord{
		UserID:    userID,
		ShareID:   shareID,
		Title:     "Python",
		Language:  "python",
		CreatedAt: created,
		ExpiresAt: expires,
	}
	if err := db.Record(context.Background(), rec); err != nil {
		t.Fatalf("failed to record share: %v", err)
	}
	return rec
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestRecord_AssignsID(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	rec := recordShare(t, db, "u1", "python-a", now, now.Add(time.Hour))
	assert.Len(t, rec.ID, 20, "xid string is 20 chars")
}

func TestRecord_DuplicateForSameUser(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	recordShare(t, db, "u1", "python-a", now, now.Add(time.Hour))

	err := db.Record(context.Background(), &model.ShareRecord{
		UserID: "u1", ShareID: "python-a", Language: "python", ExpiresAt: now.Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestListActive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recordShare(t, db, "u1", "python-old", now.Add(-3*time.Hour), now.Add(-time.Hour)) // expired
	recordShare(t, db, "u1", "python-mid", now.Add(-2*time.Hour), now.Add(time.Hour))
	recordShare(t, db, "u1", "python-new", now.Add(-time.Hour), now.Add(2*time.Hour))
	recordShare(t, db, "u2", "go-other", now, now.Add(time.Hour))

	tests := []struct {
		name string
		opts repository.ListOptions
		want []string
	}{
		{name: "no limit, newest first", opts: repository.ListOptions{}, want: []string{"python-new", "python-mid"}},
		{name: "limit 1", opts: repository.ListOptions{Limit: 1}, want: []string{"python-new"}},
		{name: "offset 1", opts: repository.ListOptions{Offset: 1}, want: []string{"python-mid"}},
		{name: "offset past end", opts: repository.ListOptions{Offset: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListActive(ctx, "u1", now, tt.opts)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ShareID)
				assert.Equal(t, "u1", r.UserID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListActive_PassesPagingThrough(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i := range 120 {
		recordShare(t, db, "u1", fmt.Sprintf("python-%03d", i), now.Add(-time.Duration(i)*time.Second), now.Add(time.Hour))
	}

	all, err := db.ListActive(ctx, "u1", now, repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 120)

	page, err := db.ListActive(ctx, "u1", now, repository.ListOptions{Limit: 110, Offset: 5})
	require.NoError(t, err)
	require.Len(t, page, 110)
	assert.Equal(t, "python-005", page[0].ShareID)
}

func TestForget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	recordShare(t, db, "u1", "c-1", now, now.Add(time.Hour))

	// Another user's forget must not touch u1's row.
	err := db.Forget(ctx, "u2", "c-1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, db.Forget(ctx, "u1", "c-1"))

	err = db.Forget(ctx, "u1", "c-1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	list, err := db.ListActive(ctx, "u1", now, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUsageCounters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	usage, err := db.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, usage)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Increment(ctx, "u1", model.ActionRun))
	}
	require.NoError(t, db.Increment(ctx, "u1", model.ActionShare))
	require.NoError(t, db.Increment(ctx, "u2", model.ActionRun))

	usage, err = db.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.Usage{model.ActionRun: 3, model.ActionShare: 1}, usage)

	usage, err = db.Usage(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage[model.ActionRun])
}
