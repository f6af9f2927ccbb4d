package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TicketLocker serializes recalculation per ticket. Contention only ever
// happens at single-ticket granularity, so there is no global lock.
type TicketLocker interface {
	// Acquire blocks until the per-ticket lock is held or ctx expires. The
	// returned release function is safe to call once.
	Acquire(ctx context.Context, ticketID string) (func(), error)
}

const lockKeyPrefix = "sla:recalc:"

// releaseScript deletes the lock only when still held by this owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type redisTicketLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

// NewRedisTicketLocker builds a Redis-backed per-ticket lock. The TTL bounds
// how long a crashed holder can block other writers.
func NewRedisTicketLocker(client *redis.Client, ttl time.Duration) TicketLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisTicketLocker{client: client, ttl: ttl, retryDelay: 50 * time.Millisecond}
}

func (l *redisTicketLocker) Acquire(ctx context.Context, ticketID string) (func(), error) {
	key := lockKeyPrefix + ticketID
	owner := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			release := func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(releaseCtx, l.client, []string{key}, owner).Err()
				})
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

type memoryTicketLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryTicketLocker builds an in-process per-ticket lock, used when Redis
// is not configured and in tests.
func NewMemoryTicketLocker() TicketLocker {
	return &memoryTicketLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memoryTicketLocker) Acquire(ctx context.Context, ticketID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[ticketID] = lock
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		lock.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		var once sync.Once
		return func() { once.Do(lock.Unlock) }, nil
	case <-ctx.Done():
		go func() {
			<-acquired
			lock.Unlock()
		}()
		return nil, ctx.Err()
	}
}
