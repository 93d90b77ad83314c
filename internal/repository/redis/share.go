// Package redis implements repository.ShareStore on top of Redis key expiry.
//
// WHY REDIS?
// A share link has to vanish at a fixed instant. Redis does that natively with
// SET ... EX: once the TTL fires, GET behaves exactly as if the key had never
// existed, and every replica of the API sees the same view of what is alive.
//
// KEY LAYOUT:
//
//	share:{shareId}:data  ->  JSON-encoded model.SharedSnippet, TTL = expiry
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/codeagentix/internal/apperror"
	"github.com/sakif/codeagentix/internal/model"
	"github.com/sakif/codeagentix/internal/repository"
)

// compile-time check that *ShareStore implements repository.ShareStore
var _ repository.ShareStore = (*ShareStore)(nil)

// ShareStore persists shared snippets as expiring Redis keys.
type ShareStore struct {
	client goredis.UniversalClient
}

// NewShareStore wraps an existing client. The caller owns the client's lifecycle.
func NewShareStore(client goredis.UniversalClient) *ShareStore {
	return &ShareStore{client: client}
}

// Open parses a redis:// or rediss:// URL, connects, and verifies the
// connection with PING.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func dataKey(shareID string) string { return "share:" + shareID + ":data" }

// Put writes the snippet with SET NX EX.
//
// NX makes the write create-only: a shareId can never be overwritten, which
// keeps records immutable even if two writers somehow drew the same uuid.
func (s *ShareStore) Put(ctx context.Context, snippet *model.SharedSnippet, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis: non-positive ttl %s for share %s", ttl, snippet.ShareID)
	}

	payload, err := json.Marshal(snippet)
	if err != nil {
		return fmt.Errorf("redis: encoding share %s: %w", snippet.ShareID, err)
	}

	created, err := s.client.SetNX(ctx, dataKey(snippet.ShareID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: writing share %s: %w", snippet.ShareID, err)
	}
	if !created {
		return apperror.Conflict("share", snippet.ShareID)
	}
	return nil
}

// Get reads the snippet and its remaining TTL in one MULTI/EXEC round trip.
//
// The TTL is returned so the caller can tell a record caught in the instant
// between lapsing and being purged from one that is comfortably alive.
func (s *ShareStore) Get(ctx context.Context, shareID string) (*model.SharedSnippet, time.Duration, error) {
	key := dataKey(shareID)

	var (
		getCmd *goredis.StringCmd
		ttlCmd *goredis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	// Exec reports redis.Nil when GET misses; that is not a transport failure.
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, 0, fmt.Errorf("redis: reading share %s: %w", shareID, err)
	}

	raw, err := getCmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, 0, apperror.NotFound("share", shareID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis: reading share %s: %w", shareID, err)
	}

	var snippet model.SharedSnippet
	if err := json.Unmarshal(raw, &snippet); err != nil {
		return nil, 0, fmt.Errorf("redis: decoding share %s: %w", shareID, err)
	}

	return &snippet, ttlCmd.Val(), nil
}

// Delete removes the key. DEL returning 0 means there was nothing to remove.
func (s *ShareStore) Delete(ctx context.Context, shareID string) error {
	n, err := s.client.Del(ctx, dataKey(shareID)).Result()
	if err != nil {
		return fmt.Errorf("redis: deleting share %s: %w", shareID, err)
	}
	if n == 0 {
		return apperror.NotFound("share", shareID)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by the health endpoint.
func (s *ShareStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
