package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a best-effort read-through projection cache on Redis.  A nil
// client disables caching entirely: every Get is a miss and every Set is
// a no-op, so the service degrades gracefully when Redis is unreachable
// at startup.  Cache reads never block the request path on cache writes;
// a miss always falls through to the store.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a projection cache with the given default TTL.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Get unmarshals the projection stored under key into dest and reports
// whether it was present.  Decode failures are treated as misses so a
// stale or truncated entry can never poison the read path.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	if s.rdb == nil {
		return false
	}
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(bs, dest); err != nil {
		return false
	}
	return true
}

// Set stores the projection under key with the default TTL.  Failures
// are returned for logging only; callers must not fail the request on a
// cache write error.
func (s *Store) Set(ctx context.Context, key string, val interface{}) error {
	if s.rdb == nil {
		return nil
	}
	bs, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.rdb.SetEx(ctx, key, bs, s.ttl).Err()
}
