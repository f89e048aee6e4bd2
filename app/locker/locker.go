package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultTTL   = 30 * time.Second
	defaultTries = 32
)

var ErrLockBusy = errors.New("resource is locked by another request")

type Config struct {
	Prefix string
	TTL    time.Duration
	Tries  int
}

// RedisLocker hands out redsync mutexes scoped under a key prefix.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	ttl    time.Duration
	tries  int
	logger logrus.FieldLogger
}

func NewRedisLocker(rdb *redis.Client, cfg Config, logger logrus.FieldLogger) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	tries := cfg.Tries
	if tries <= 0 {
		tries = defaultTries
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(rdb)),
		prefix: cfg.Prefix,
		ttl:    ttl,
		tries:  tries,
		logger: logger,
	}
}

// Lock blocks until key is held or the retries run out. The returned func
// releases the lock.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := key
	if l.prefix != "" {
		name = l.prefix + ":lock:" + key
	}

	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLockBusy, key, err)
	}

	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			l.logger.WithError(err).WithField("lock", name).Warn("Failed to release lock")
		}
	}, nil
}
