package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/domain"
)

const snapshotKey = "submissions"

// SnapshotCache memoizes the full submission set with a short TTL so that
// back-to-back leaderboard generations share one fetch.
type SnapshotCache struct {
	source app.SubmissionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	records   []domain.SubmissionRecord
	expiresAt time.Time
	epoch     uint64
}

func NewSnapshotCache(source app.SubmissionSource, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SnapshotCache) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	if records, ok := c.cached(c.clock()); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(snapshotKey, func() (interface{}, error) {
		now := c.clock()
		if records, ok := c.cached(now); ok {
			return records, nil
		}

		c.mu.RLock()
		epoch := c.epoch
		c.mu.RUnlock()

		records, err := c.source.FetchAll(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// An invalidation during the fetch means the snapshot may be stale.
		if c.epoch == epoch {
			c.records = records
			c.expiresAt = now.Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.SubmissionRecord), nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.records = nil
	c.expiresAt = time.Time{}
	c.epoch++
	c.mu.Unlock()
	c.sf.Forget(snapshotKey)
	return nil
}

func (c *SnapshotCache) cached(now time.Time) ([]domain.SubmissionRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.records != nil && c.expiresAt.After(now) {
		return c.records, true
	}
	return nil, false
}

func (c *SnapshotCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
