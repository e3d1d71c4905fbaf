package summary

import (
	"context"
	"sync"
	"time"

	"callsummary/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const DefaultGuardTTL = 10 * time.Minute

// Guard admits one pipeline per call at a time. Status callbacks can be
// delivered more than once; the upsert makes duplicates harmless, the guard
// makes them cheap.
type Guard interface {
	// Acquire returns ok=false when another pipeline holds callSID.
	// release must be called once the pipeline ends.
	Acquire(ctx context.Context, callSID string) (release func(), ok bool, err error)
}

// RedisGuard leases callSID across replicas. The lease expires after ttl so
// a crashed replica cannot block a call forever.
type RedisGuard struct {
	rdb    redis.Scripter
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(rdb redis.Scripter, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl, prefix: "callsummary:pipeline:"}
}

func (g *RedisGuard) key(callSID string) string { return g.prefix + callSID }

func (g *RedisGuard) Acquire(ctx context.Context, callSID string) (func(), bool, error) {
	key := g.key(callSID)
	ok, err := utils.AcquireCap(ctx, g.rdb, key, 1, g.ttl)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// The pipeline ctx may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseCap(rctx, g.rdb, key)
	}, true, nil
}

// LocalGuard is an in-process Guard for single-replica runs and tests.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: map[string]struct{}{}}
}

func (g *LocalGuard) Acquire(_ context.Context, callSID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[callSID]; busy {
		return func() {}, false, nil
	}
	g.held[callSID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, callSID)
			g.mu.Unlock()
		})
	}, true, nil
}
