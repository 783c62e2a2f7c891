package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "todos:submission:"

// RedisDeduper stores add-form submission keys in Redis so a resubmitted form
// is posted to the todo API only once, across all instances.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(submission string) string {
	return dedupeKeyPrefix + submission
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, submission string) (bool, error) {
	return r.client.SetNX(ctx, r.key(submission), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key. It is used when the create request
// fails so the user may submit the same form again.
func (r *RedisDeduper) Remove(ctx context.Context, submission string) error {
	return r.client.Del(ctx, r.key(submission)).Err()
}
