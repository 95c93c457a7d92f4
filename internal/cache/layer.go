package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackflag/requestbot/internal/config"
)

// Layer is the cache surface handed to services. It absorbs backend
// failures: any error from the primary backend permanently degrades the
// layer onto the in-process fallback for the rest of the process lifetime,
// and callers observe only (value, hit). Transient backend trouble is
// therefore slower, never wrong.
type Layer struct {
	primary  Backend
	fallback *Memory
	degraded atomic.Bool
	logOnce  sync.Once
	log      *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

// New builds the layer from configuration. Backend "redis" that is
// unreachable at startup degrades immediately instead of failing the
// process; backend "memory" runs without a primary at all.
func New(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (*Layer, error) {
	fallback, err := NewMemory(cfg.MaxEntries)
	if err != nil {
		return nil, err
	}

	l := &Layer{fallback: fallback, log: log.With("component", "cache")}

	if strings.EqualFold(cfg.Backend, "redis") {
		primary, err := NewRedis(ctx, cfg)
		if err != nil {
			l.log.Warn("redis unreachable at startup, running on in-process cache", "error", err)
			l.degraded.Store(true)
		} else {
			l.primary = primary
		}
	} else {
		l.degraded.Store(true)
	}

	return l, nil
}

// Get returns the cached value and whether it was present. A miss carries
// no information about existence in the store.
func (l *Layer) Get(ctx context.Context, key string) ([]byte, bool) {
	value, hit, err := l.backend().Get(ctx, key)
	if err != nil {
		l.degrade(err)
		value, hit, _ = l.fallback.Get(ctx, key)
	}
	if hit {
		l.hits.Add(1)
	} else {
		l.misses.Add(1)
	}
	return value, hit
}

// Set stores a derived copy under the given TTL. Callers perform the
// durable store write themselves (write-through discipline); a failed
// cache set only degrades the layer.
func (l *Layer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	l.sets.Add(1)
	if err := l.backend().Set(ctx, key, value, ttl); err != nil {
		l.degrade(err)
		_ = l.fallback.Set(ctx, key, value, ttl)
	}
}

// Invalidate drops the key.
func (l *Layer) Invalidate(ctx context.Context, key string) {
	if err := l.backend().Delete(ctx, key); err != nil {
		l.degrade(err)
	}
	// The fallback may hold an entry from before a degradation flip.
	_ = l.fallback.Delete(ctx, key)
}

// Stats returns cumulative counters.
func (l *Layer) Stats() Stats {
	return Stats{
		Hits:     l.hits.Load(),
		Misses:   l.misses.Load(),
		Sets:     l.sets.Load(),
		Degraded: l.degraded.Load(),
	}
}

// Close flushes both backends and logs the lifetime counters.
func (l *Layer) Close() error {
	s := l.Stats()
	l.log.Info("cache shutdown",
		"hits", s.Hits, "misses", s.Misses, "sets", s.Sets, "degraded", s.Degraded)

	var err error
	if l.primary != nil {
		err = l.primary.Close()
	}
	if cerr := l.fallback.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *Layer) backend() Backend {
	if l.primary == nil || l.degraded.Load() {
		return l.fallback
	}
	return l.primary
}

func (l *Layer) degrade(err error) {
	if l.degraded.CompareAndSwap(false, true) {
		l.logOnce.Do(func() {
			l.log.Warn("cache backend failed, degrading to in-process cache for process lifetime", "error", err)
		})
	}
}
