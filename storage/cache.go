package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"todo-web/domain"
)

const (
	snapshotCacheKey = "todos:snapshot"
	// snapshotVersionKey is bumped by every eviction. A fetch only writes its
	// result back when the version is unchanged since it started.
	snapshotVersionKey = "todos:snapshot:version"
)

var errSnapshotSuperseded = errors.New("snapshot superseded by a mutation")

type backend interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) error
	UpdateTask(ctx context.Context, id int64, in domain.TaskInput) error
	ToggleTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error
}

// Cache keeps the last fetched snapshot in Redis and drops it after every mutation.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache wraps base with a Redis snapshot cache. A nil client or zero TTL
// turns the cache into a pass-through.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx); ok {
		return tasks, nil
	}

	version, versioned := c.version(ctx)
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	if versioned {
		c.store(ctx, tasks, version)
	}
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, in domain.TaskInput) error {
	if err := c.base.CreateTask(ctx, in); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) error {
	if err := c.base.UpdateTask(ctx, id, in); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) ToggleTask(ctx context.Context, id int64) error {
	if err := c.base.ToggleTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

// DeleteTask also evicts when the task was already gone, since the cached
// snapshot still lists it.
func (c *Cache) DeleteTask(ctx context.Context, id int64) error {
	err := c.base.DeleteTask(ctx, id)
	if err == nil || IsGone(err) {
		c.evict(ctx)
	}
	return err
}

func (c *Cache) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *Cache) load(ctx context.Context) ([]domain.Task, bool) {
	if !c.enabled() {
		return nil, false
	}
	data, err := c.redis.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the API without failing.
			_ = c.redis.Del(ctx, snapshotCacheKey).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, snapshotCacheKey).Err()
		return nil, false
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, true
}

// version reports the current snapshot version. ok is false when the cache
// is off or Redis cannot be read, in which case nothing is stored.
func (c *Cache) version(ctx context.Context) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	v, err := c.redis.Get(ctx, snapshotVersionKey).Int64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		return 0, false
	}
}

// store writes tasks only if no eviction happened since version was read.
func (c *Cache) store(ctx context.Context, tasks []domain.Task, version int64) {
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, snapshotVersionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errSnapshotSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotCacheKey, data, c.ttl)
			return nil
		})
		return err
	}, snapshotVersionKey)
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, snapshotVersionKey)
		pipe.Del(ctx, snapshotCacheKey)
		return nil
	})
}
