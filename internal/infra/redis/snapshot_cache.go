package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/domain"
)

// SnapshotCache stores the full submission set in Redis so that several
// instances share one fetch per TTL.
// Stored as: SET leaderboard:submissions <json array of cachedSubmission>
// Invalidate bumps leaderboard:submissions:version; a fetch only stores its
// snapshot when the version it started under is still current.
type SnapshotCache struct {
	client     *redis.Client
	source     app.SubmissionSource
	ttl        time.Duration
	key        string
	versionKey string
	logger     zerolog.Logger
	sf         singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

var errStaleSnapshot = errors.New("snapshot version changed")

type cachedSubmission struct {
	QuizID       string                    `json:"quizId"`
	SubmissionID string                    `json:"submissionId"`
	Document     domain.SubmissionDocument `json:"document"`
}

func NewSnapshotCache(client *redis.Client, source app.SubmissionSource, ttl time.Duration, logger zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		client:     client,
		source:     source,
		ttl:        ttl,
		key:        "leaderboard:submissions",
		versionKey: "leaderboard:submissions:version",
		logger:     logger.With().Str("component", "redis_snapshot_cache").Logger(),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SnapshotCache) FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error) {
	if records, ok := c.read(ctx); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := c.read(ctx); ok {
			return records, nil
		}

		version, versionOK := c.version(ctx)
		records, err := c.source.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		if versionOK {
			c.write(ctx, version, records)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.SubmissionRecord), nil
}

// Invalidate removes the shared snapshot and retires the version that
// fetches in flight started under.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	c.sf.Forget(c.key)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.versionKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	return nil
}

func (c *SnapshotCache) version(ctx context.Context) (int64, bool) {
	v, err := c.client.Get(ctx, c.versionKey).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		c.logger.Warn().Err(err).Msg("failed to read snapshot version")
		return 0, false
	}
	return v, true
}

func (c *SnapshotCache) read(ctx context.Context) ([]domain.SubmissionRecord, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("failed to read submission snapshot")
		}
		return nil, false
	}
	var cached []cachedSubmission
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn().Err(err).Msg("discarding undecodable submission snapshot")
		return nil, false
	}
	records := make([]domain.SubmissionRecord, 0, len(cached))
	for _, cs := range cached {
		records = append(records, cs.Document.Record(cs.QuizID, cs.SubmissionID))
	}
	c.logger.Debug().Int("records", len(records)).Msg("submission snapshot cache hit")
	return records, true
}

func (c *SnapshotCache) write(ctx context.Context, version int64, records []domain.SubmissionRecord) {
	cached := make([]cachedSubmission, 0, len(records))
	for _, r := range records {
		cached = append(cached, cachedSubmission{
			QuizID:       r.QuizID,
			SubmissionID: r.SubmissionID,
			Document:     domain.DocumentFromRecord(r),
		})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode submission snapshot")
		return
	}
	ttl := c.ttlWithJitter()
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.versionKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != version {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, payload, ttl)
			return nil
		})
		return err
	}, c.versionKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug().Msg("submission snapshot invalidated during fetch, not stored")
	default:
		c.logger.Warn().Err(err).Msg("failed to store submission snapshot")
	}
}

func (c *SnapshotCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
