package redis

import (
	"context"
	"time"

	"theatre-ticketing/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Lock serializes booking attempts per user with a short SetNX lease,
// closing the window between the pending-payment check and the
// reservation insert. The seat uniqueness constraint stays the
// authoritative guard; this only covers the user-level rule that has no
// storage constraint behind it.
type Lock struct {
	Client *redis.Client
	Logger *logger.Logger
	TTL    time.Duration
}

func NewLock(client *redis.Client, log *logger.Logger, ttl time.Duration) *Lock {
	return &Lock{Client: client, Logger: log, TTL: ttl}
}

func (l *Lock) key(userID string) string {
	return "reservation_lock:user:" + userID
}

// AcquireUserLock takes the lease; false means another request from the
// same user is in flight.
func (l *Lock) AcquireUserLock(ctx context.Context, userID string) (bool, error) {
	return l.Client.SetNX(ctx, l.key(userID), "1", l.TTL).Result()
}

func (l *Lock) ReleaseUserLock(ctx context.Context, userID string) error {
	return l.Client.Del(ctx, l.key(userID)).Err()
}
