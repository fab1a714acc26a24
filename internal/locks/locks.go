package locks

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// PersonLocker serializes the read-decide-write sequence for one person.
// Acquire returns a release function; callers must invoke it.
type PersonLocker interface {
	Acquire(ctx context.Context, personID string) (release func(), err error)
}

// Nop performs no locking. Overlapping pushes for the same person can
// race and both write a record; see the punch pipeline docs.
type Nop struct{}

// Acquire is a no-op.
func (Nop) Acquire(ctx context.Context, personID string) (func(), error) {
	return func() {}, nil
}

// Local holds one mutex per person id for single-process deployments.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocal creates an in-process keyed locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

// Acquire blocks until the per-person mutex is held.
func (l *Local) Acquire(ctx context.Context, personID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[personID]
	if !ok {
		e = &entry{}
		l.locks[personID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, personID)
		}
		l.mu.Unlock()
	}, nil
}

// Redis serializes across processes using redislock. Lock acquisition is
// best-effort: if the lock cannot be obtained the caller proceeds unlocked,
// so a broken redis never blocks device intake.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedis builds a redis-backed locker.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{client: redislock.New(rdb), ttl: 30 * time.Second}
}

// Acquire obtains "punch:<personID>" with a short retry, or proceeds unlocked.
func (r *Redis) Acquire(ctx context.Context, personID string) (func(), error) {
	lock, err := r.client.Obtain(ctx, "punch:"+personID, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err == redislock.ErrNotObtained {
		log.Printf("punch lock not obtained for %s; proceeding without lock", personID)
		return func() {}, nil
	}
	if err != nil {
		log.Printf("punch lock error for %s: %v; proceeding without lock", personID, err)
		return func() {}, nil
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
			log.Printf("punch lock release failed for %s: %v", personID, releaseErr)
		}
	}, nil
}
