package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quiz-leaderboard/internal/domain"
)

// SubmissionSource reads every submission across all quizzes.
type SubmissionSource interface {
	FetchAll(ctx context.Context) ([]domain.SubmissionRecord, error)
}

// ChangeNotifier signals whenever the underlying submission collection changes.
// The signal carries no diff. The returned function releases the listener.
type ChangeNotifier interface {
	Listen(ctx context.Context, onChange func()) (func(), error)
}

// Invalidator is implemented by sources that memoize snapshots.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// GenerationRecorder observes leaderboard generations (metrics).
type GenerationRecorder interface {
	ObserveGeneration(scope domain.ScopeKind, elapsed time.Duration, err error)
}

const (
	DefaultLimit         = 50
	DefaultPositionLimit = 1000
	DefaultFetchTimeout  = 10 * time.Second
)

// Options tunes a LeaderboardService. Zero values pick the defaults above.
type Options struct {
	FetchTimeout  time.Duration
	DefaultLimit  int
	PositionLimit int
	Recorder      GenerationRecorder

	// Now overrides the clock; tests use it for deterministic windows.
	Now func() time.Time
}

// LeaderboardService builds department and global leaderboards from a SubmissionSource.
// Fetch failures never escape: they are reported on the result instead.
type LeaderboardService struct {
	source        SubmissionSource
	logger        zerolog.Logger
	recorder      GenerationRecorder
	now           func() time.Time
	fetchTimeout  time.Duration
	defaultLimit  int
	positionLimit int
}

func NewLeaderboardService(source SubmissionSource, opts Options, logger zerolog.Logger) *LeaderboardService {
	s := &LeaderboardService{
		source:        source,
		logger:        logger.With().Str("component", "leaderboard_service").Logger(),
		recorder:      opts.Recorder,
		now:           opts.Now,
		fetchTimeout:  opts.FetchTimeout,
		defaultLimit:  opts.DefaultLimit,
		positionLimit: opts.PositionLimit,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = DefaultFetchTimeout
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = DefaultLimit
	}
	if s.positionLimit <= 0 {
		s.positionLimit = DefaultPositionLimit
	}
	return s
}

// GenerateDepartmentLeaderboard ranks users whose submissions carry the given department.
// An empty department is a caller bug and returns ErrDepartmentRequired before any fetch.
func (s *LeaderboardService) GenerateDepartmentLeaderboard(ctx context.Context, department string, rankingType domain.RankingType, period domain.TimePeriod, limit int) (domain.LeaderboardResult, error) {
	if department == "" {
		return domain.LeaderboardResult{}, domain.ErrDepartmentRequired
	}
	scope := domain.Scope{Kind: domain.ScopeDepartment, Department: department}
	return s.generate(ctx, scope, rankingType, period, limit), nil
}

// GenerateGlobalLeaderboard ranks users across every department.
func (s *LeaderboardService) GenerateGlobalLeaderboard(ctx context.Context, rankingType domain.RankingType, period domain.TimePeriod, limit int) domain.LeaderboardResult {
	return s.generate(ctx, domain.Scope{Kind: domain.ScopeGlobal}, rankingType, period, limit)
}

// GetUserPosition looks the user up in both leaderboards, generated concurrently.
// Department is nil when no department is given.
func (s *LeaderboardService) GetUserPosition(ctx context.Context, userID, department string, rankingType domain.RankingType, period domain.TimePeriod) (domain.UserPosition, error) {
	var (
		position domain.UserPosition
		g        errgroup.Group
	)
	g.Go(func() error {
		global := s.GenerateGlobalLeaderboard(ctx, rankingType, period, s.positionLimit)
		position.Global = findPosition(global, userID)
		return nil
	})
	if department != "" {
		g.Go(func() error {
			dept, err := s.GenerateDepartmentLeaderboard(ctx, department, rankingType, period, s.positionLimit)
			if err != nil {
				return err
			}
			position.Department = findPosition(dept, userID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.UserPosition{}, err
	}
	return position, nil
}

// Invalidate drops any memoized snapshot held by the source.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	inv, ok := s.source.(Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate submission snapshot")
	}
}

func (s *LeaderboardService) generate(ctx context.Context, scope domain.Scope, rankingType domain.RankingType, period domain.TimePeriod, limit int) domain.LeaderboardResult {
	started := time.Now()
	now := s.now()
	result := domain.LeaderboardResult{
		Scope:       scope,
		RankingType: rankingType,
		TimePeriod:  period,
		Users:       []domain.UserAggregate{},
		GeneratedAt: now,
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	records, err := s.fetch(ctx)
	if s.recorder != nil {
		defer func() { s.recorder.ObserveGeneration(scope.Kind, time.Since(started), err) }()
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("scope", string(scope.Kind)).
			Str("department", scope.Department).
			Msg("leaderboard generation failed")
		result.Error = err.Error()
		return result
	}

	if scope.Kind == domain.ScopeDepartment {
		records = filterByDepartment(records, scope.Department)
	}
	records = FilterByPeriod(records, period, now)
	ranked := Rank(records, rankingType)

	result.TotalParticipants = len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	result.Users = ranked
	result.HasData = len(ranked) > 0
	return result
}

func (s *LeaderboardService) fetch(ctx context.Context) ([]domain.SubmissionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	records, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch submissions: %w: %w", domain.ErrSourceUnavailable, err)
	}
	return records, nil
}

func filterByDepartment(records []domain.SubmissionRecord, department string) []domain.SubmissionRecord {
	filtered := make([]domain.SubmissionRecord, 0, len(records))
	for _, r := range records {
		if r.Department == department {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func findPosition(result domain.LeaderboardResult, userID string) *domain.ScopePosition {
	pos := &domain.ScopePosition{
		TotalParticipants: result.TotalParticipants,
		HasData:           result.HasData,
	}
	for i := range result.Users {
		if result.Users[i].UserID == userID {
			rank := result.Users[i].Rank
			stats := result.Users[i].Stats
			pos.Rank = &rank
			pos.Stats = &stats
			break
		}
	}
	return pos
}
