package cache

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Invalidator clears cached projections by hierarchical key pattern
// after a state mutation has been durably persisted.  It must be called
// after the store commit, never before, and it must run on the success
// path even when the subsequent notification step fails.  All failures
// are logged and absorbed: a mutation that committed never appears to
// fail because the cache could not be cleared; the entries expire by
// TTL anyway.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

// NewInvalidator returns an Invalidator using the given key prefix.  A
// nil client disables invalidation (consistent with a disabled Store).
func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	return &Invalidator{rdb: rdb, prefix: prefix}
}

// Prefix returns the configured key prefix, for callers that build
// projection keys.
func (inv *Invalidator) Prefix() string { return inv.prefix }

// ReservationChanged clears everything that could be stale after a
// reservation mutation (create, cancel, lifecycle transition).
func (inv *Invalidator) ReservationChanged(ctx context.Context, branchID, fieldID, userID uint64) {
	inv.invalidate(ctx, ReservationPatterns(inv.prefix, branchID, fieldID, userID))
}

// FieldChanged clears projections stale after a field mutation.
func (inv *Invalidator) FieldChanged(ctx context.Context, branchID, fieldID uint64) {
	inv.invalidate(ctx, FieldPatterns(inv.prefix, branchID, fieldID))
}

// BranchChanged clears the whole branch subtree after an administrative
// mutation.
func (inv *Invalidator) BranchChanged(ctx context.Context, branchID uint64) {
	inv.invalidate(ctx, BranchPatterns(inv.prefix, branchID))
}

// invalidate deletes all keys matching the patterns using SCAN so large
// keyspaces are walked incrementally instead of blocking Redis with KEYS.
func (inv *Invalidator) invalidate(ctx context.Context, patterns []string) {
	if inv.rdb == nil {
		return
	}
	for _, pattern := range patterns {
		iter := inv.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		batch := make([]string, 0, 100)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 100 {
				if err := inv.rdb.Del(ctx, batch...).Err(); err != nil {
					log.Printf("cache: delete batch for %q failed: %v", pattern, err)
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			log.Printf("cache: scan %q failed: %v", pattern, err)
			continue
		}
		if len(batch) > 0 {
			if err := inv.rdb.Del(ctx, batch...).Err(); err != nil {
				log.Printf("cache: delete batch for %q failed: %v", pattern, err)
			}
		}
	}
}
