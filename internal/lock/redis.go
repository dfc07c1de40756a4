// Package lock provides a Redis-backed lock so that only one process runs a
// reminder cycle at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key guarding reminder dispatch.
const DefaultKey = "paymenext:reminders:dispatch"

// RedisLocker is a try-once distributed mutex. It satisfies
// scheduler.Locker.
//
// While held, the lease is extended every half expiry so a long cycle keeps
// the lock. A crashed holder stops extending and loses it after expiry.
type RedisLocker struct {
	rs     *redsync.Redsync
	key    string
	expiry time.Duration

	mu   sync.Mutex
	held *lease
}

type lease struct {
	mutex *redsync.Mutex
	stop  context.CancelFunc
	done  chan struct{}
}

// NewRedisLocker creates a locker on client. The lock expires after expiry
// even if its holder dies.
func NewRedisLocker(client redis.UniversalClient, key string, expiry time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	if expiry <= 0 {
		expiry = time.Minute
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		key:    key,
		expiry: expiry,
	}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// TryLock attempts the lock once. It returns false without error when another
// process holds it.
func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	mutex := l.rs.NewMutex(l.key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}

	keepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	held := &lease{mutex: mutex, stop: stop, done: make(chan struct{})}
	go l.keepAlive(keepCtx, held)

	l.mu.Lock()
	l.held = held
	l.mu.Unlock()
	return true, nil
}

// keepAlive extends the lease until stopped. It gives up on the first failed
// extension; Unlock then reports the lock as expired.
func (l *RedisLocker) keepAlive(ctx context.Context, held *lease) {
	defer close(held.done)

	ticker := time.NewTicker(max(l.expiry/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := held.mutex.ExtendContext(ctx)
			if err != nil || !ok {
				return
			}
		}
	}
}

// Unlock releases a lock taken by TryLock. Unlocking without holding the
// lock does nothing.
func (l *RedisLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	held := l.held
	l.held = nil
	l.mu.Unlock()

	if held == nil {
		return nil
	}
	held.stop()
	<-held.done

	ok, err := held.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("failed to release lock %s: lock expired", l.key)
	}
	return nil
}

func isContention(err error) bool {
	msg := err.Error()
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(msg, "lock already taken") ||
		strings.Contains(msg, "failed to acquire lock")
}
