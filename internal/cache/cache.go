// Package cache implements the key/value layer in front of the store: a
// networked redis backend and an in-process LRU backend behind one
// interface, with silent degradation from the former to the latter.
//
// The cache holds derived, time-bounded, invalidatable copies only. It is
// never the source of truth, and a miss here means "ask the store" — not
// "does not exist".
package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend is a single cache backend. Errors are internal to the layer;
// callers of Layer never see them.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// UserKey is the cache key for a user identity record.
func UserKey(handle int64) string {
	return fmt.Sprintf("user:%d", handle)
}

// OpenRequestsKey is the cache key for the open-request candidate list of
// a category.
func OpenRequestsKey(category string) string {
	return "open_requests:" + category
}

// Stats are cumulative counters for the process lifetime.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Sets     uint64
	Degraded bool
}
