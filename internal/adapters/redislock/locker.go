// Package redislock serializes entry mutations across instances with a Redis lock.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
)

const (
	defaultTries      = 32
	defaultRetryDelay = 50 * time.Millisecond
	keyPrefix         = "ledger:lock:"
)

// Locker hands out redsync mutexes keyed by entry.
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	tries  int
	delay  time.Duration
}

// Option configures a Locker.
type Option func(*Locker)

// WithRetry sets how often and how quickly a busy lock is retried.
func WithRetry(tries int, delay time.Duration) Option {
	return func(l *Locker) {
		l.tries = tries
		l.delay = delay
	}
}

// New creates a Locker over client. expiry bounds how long a crashed holder blocks others.
func New(client redis.UniversalClient, expiry time.Duration, opts ...Option) *Locker {
	l := &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		tries:  defaultTries,
		delay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ portssvc.EntryLocker = (*Locker)(nil)

// Lock acquires key, retrying until the tries are spent or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelay(l.delay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	return func() {
		// The holder may already be gone; release on a fresh context.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		ok, err := mutex.UnlockContext(unlockCtx)
		if err != nil || !ok {
			if err == nil {
				err = errors.New("lock expired before release")
			}
			middleware.GetLoggerFromCtx(ctx).Warn("Failed to release entry lock",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}, nil
}
