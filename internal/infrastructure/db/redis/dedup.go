package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// FixDedup remembers accepted fixes in Redis.
// Key format: campusnav:fix:<session_id>:<unix_nano_timestamp>
type FixDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFixDedup creates a FixDedup wrapping the given Redis client.
func NewFixDedup(client *redis.Client) *FixDedup {
	return &FixDedup{client: client, ttl: dedupTTL}
}

// MarkNew records the fix with SET NX and reports whether it was not seen
// within the last dedupTTL.
func (d *FixDedup) MarkNew(ctx context.Context, sessionID string, ts time.Time) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(sessionID, ts), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup mark: %w", err)
	}
	return ok, nil
}

// Forget deletes the mark left by MarkNew for a fix that was not applied.
func (d *FixDedup) Forget(ctx context.Context, sessionID string, ts time.Time) error {
	if err := d.client.Del(ctx, d.key(sessionID, ts)).Err(); err != nil {
		return fmt.Errorf("dedup forget: %w", err)
	}
	return nil
}

func (d *FixDedup) key(sessionID string, ts time.Time) string {
	return fmt.Sprintf("%sfix:%s:%d", keyPrefix, sessionID, ts.UnixNano())
}
