package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/config"
	"quiz-leaderboard/internal/domain"
	"quiz-leaderboard/internal/infra/memory"
	natsnotifier "quiz-leaderboard/internal/infra/nats"
	"quiz-leaderboard/internal/infra/postgres"
	redisinfra "quiz-leaderboard/internal/infra/redis"
	"quiz-leaderboard/internal/observability"
)

// stack is the wired leaderboard engine plus the resources it holds open.
type stack struct {
	service *app.LeaderboardService
	broker  *app.LiveUpdateBroker
	metrics *observability.Metrics
	closers []func()

	// store is set when serving the in-memory sample data.
	store *memory.SubmissionStore

	// buses carry change signals between processes. Publish on one reaches every instance.
	buses []publisher
}

// publisher is a cross-instance change notifier.
type publisher interface {
	app.ChangeNotifier
	Publish(ctx context.Context) error
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStack(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stack, error) {
	st := &stack{metrics: observability.NewMetrics()}

	var (
		source app.SubmissionSource
		local  app.ChangeNotifier
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		source = postgres.NewSubmissionSource(pool)
		local = postgres.NewChangeNotifier(pool, logger)
		logger.Info().Msg("reading submissions from postgres")
	} else {
		store := memory.NewSubmissionStore()
		if err := seedSampleData(store); err != nil {
			return nil, err
		}
		st.store = store
		source = store
		local = store
		logger.Warn().Msg("postgres not configured, serving in-memory sample submissions")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
		if cfg.Redis.Channel != "" {
			st.buses = append(st.buses, redisinfra.NewChangeNotifier(redisClient, cfg.Redis.Channel, logger))
			logger.Info().Str("channel", cfg.Redis.Channel).Msg("listening for change signals on redis")
		}
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("quiz-leaderboard"))
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, nc.Close)
		st.buses = append(st.buses, natsnotifier.NewChangeNotifier(nc, cfg.NATS.Subject, logger))
		logger.Info().Str("url", cfg.NATS.URL).Msg("listening for change signals on nats")
	}

	// The local notifier always fires; buses add signals published by other processes.
	notifier := local
	if len(st.buses) > 0 {
		notifiers := []app.ChangeNotifier{local}
		for _, b := range st.buses {
			notifiers = append(notifiers, b)
		}
		notifier = app.NewFanInNotifier(notifiers...)
	}

	if ttl := config.TTLDuration(cfg.Leaderboard.CacheTTL, 0); ttl > 0 {
		if redisClient != nil {
			source = redisinfra.NewSnapshotCache(redisClient, source, config.TTLDuration(cfg.Redis.TTL, ttl), logger)
		} else {
			source = memory.NewSnapshotCache(source, ttl)
		}
	}

	st.service = app.NewLeaderboardService(source, app.Options{
		FetchTimeout:  config.TTLDuration(cfg.Leaderboard.FetchTimeout, app.DefaultFetchTimeout),
		DefaultLimit:  cfg.Leaderboard.DefaultLimit,
		PositionLimit: cfg.Leaderboard.PositionLimit,
		Recorder:      st.metrics,
	}, logger)

	st.broker = app.NewLiveUpdateBroker(st.service, notifier, app.BrokerOptions{
		Debounce:    config.TTLDuration(cfg.Leaderboard.Debounce, 250*time.Millisecond),
		RankingType: domain.ParseRankingType(cfg.Leaderboard.RankingType),
		TimePeriod:  domain.ParseTimePeriod(cfg.Leaderboard.TimePeriod),
		Limit:       cfg.Leaderboard.DefaultLimit,
		Recorder:    st.metrics,
	}, logger)
	return st, nil
}
