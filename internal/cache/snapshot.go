// Package cache is a redis read-through cache of the resource and
// reservation snapshots. Entries are deleted whenever the store signals a
// change on the matching topic, so the cache never acts as a second source
// of truth.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/repository"

	"github.com/redis/go-redis/v9"
)

type SnapshotCache struct {
	rdb    redis.UniversalClient
	src    repository.Snapshotter
	ttl    time.Duration
	prefix string

	mu  sync.Mutex
	gen map[string]uint64
}

func NewSnapshotCache(rdb redis.UniversalClient, src repository.Snapshotter, ttl time.Duration, prefix string) *SnapshotCache {
	if prefix == "" {
		prefix = "camrent"
	}
	return &SnapshotCache{rdb: rdb, src: src, ttl: ttl, prefix: prefix, gen: make(map[string]uint64)}
}

func (c *SnapshotCache) key(topic string) string { return c.prefix + ":snapshot:" + topic }

func (c *SnapshotCache) ResourceSnapshot(ctx context.Context) ([]domain.Resource, error) {
	return readThrough(ctx, c, repository.TopicResources, c.src.ResourceSnapshot)
}

func (c *SnapshotCache) ReservationSnapshot(ctx context.Context) ([]domain.Reservation, error) {
	return readThrough(ctx, c, repository.TopicReservations, c.src.ReservationSnapshot)
}

func readThrough[T any](ctx context.Context, c *SnapshotCache, topic string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if c.readCache(ctx, topic, &out) {
		return out, nil
	}

	gen := c.generation(topic)
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	// skip the write if an invalidation raced with the load; holding mu keeps
	// a concurrent Invalidate from landing between the check and the write
	c.mu.Lock()
	if c.gen[topic] == gen {
		c.writeCache(ctx, topic, out)
	}
	c.mu.Unlock()
	return out, nil
}

func (c *SnapshotCache) generation(topic string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[topic]
}

func (c *SnapshotCache) readCache(ctx context.Context, topic string, out any) bool {
	if c.rdb == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.rdb.Get(ctx, c.key(topic)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Snapshot cache read failed", "topic", topic, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false
	}
	return true
}

func (c *SnapshotCache) writeCache(ctx context.Context, topic string, val any) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(topic), data, c.ttl).Err(); err != nil {
		logger.Warn("Snapshot cache write failed", "topic", topic, "error", err)
	}
}

// Invalidate drops the cached snapshot for topic.
func (c *SnapshotCache) Invalidate(ctx context.Context, topic string) error {
	c.mu.Lock()
	c.gen[topic]++
	c.mu.Unlock()
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.key(topic)).Err()
}

// Subscriber is the part of feed.Hub the cache listens on.
type Subscriber interface {
	Subscribe(topic string) (<-chan struct{}, func())
}

// Run invalidates cached snapshots on every change signal from upstream and
// only then forwards the signal to downstream, so downstream consumers that
// reload through the cache never see the snapshot the signal replaced. It
// returns when ctx is done.
func (c *SnapshotCache) Run(ctx context.Context, upstream Subscriber, downstream repository.ChangePublisher) {
	resCh, cancelRes := upstream.Subscribe(repository.TopicResources)
	defer cancelRes()
	rvCh, cancelRv := upstream.Subscribe(repository.TopicReservations)
	defer cancelRv()

	for {
		var topic string
		select {
		case <-ctx.Done():
			return
		case <-resCh:
			topic = repository.TopicResources
		case <-rvCh:
			topic = repository.TopicReservations
		}
		if err := c.Invalidate(ctx, topic); err != nil {
			logger.Warn("Snapshot cache invalidation failed", "topic", topic, "error", err)
		}
		if downstream != nil {
			downstream.Publish(topic)
		}
	}
}
