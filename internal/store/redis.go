package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for the check-in queue and the
// live attendance counters the worker maintains.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// CheckinCount returns the worker-maintained live count for a session,
// zero when no check-in has been processed yet.
func (r *Redis) CheckinCount(ctx context.Context, publicSessionID string) (int64, error) {
	n, err := r.Client.Get(ctx, CountKey(publicSessionID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// CountKey is the redis key holding a session's live check-in count.
func CountKey(publicSessionID string) string {
	return "rollcall:counts:" + publicSessionID
}
