package cache

import (
	"context"
	"sync"
	"time"
)

// SweepGuard hands out short-lived exclusive claims so that overlapping
// sessions do not run the same background sweep in one window.
type SweepGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type NoopSweepGuard struct{}

func (NoopSweepGuard) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

// LocalSweepGuard is the single-process guard used when Redis is not configured.
type LocalSweepGuard struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

func NewLocalSweepGuard() *LocalSweepGuard {
	return &LocalSweepGuard{now: time.Now, expires: make(map[string]time.Time)}
}

func (g *LocalSweepGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if until, held := g.expires[key]; held && now.Before(until) {
		return false, nil
	}
	g.expires[key] = now.Add(ttl)
	return true, nil
}
