package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/domain"
)

// DeliveryRecorder observes live update deliveries (metrics).
type DeliveryRecorder interface {
	ObserveDelivery(failed bool)
	SubscriberDelta(delta int)
}

// BrokerOptions tunes a LiveUpdateBroker.
type BrokerOptions struct {
	// Debounce coalesces bursts of change signals into one refresh. Zero refreshes on every signal.
	Debounce    time.Duration
	RankingType domain.RankingType
	TimePeriod  domain.TimePeriod
	Limit       int
	Recorder    DeliveryRecorder
}

// LiveUpdateBroker recomputes leaderboards whenever the submission source changes
// and pushes them to subscribers.
type LiveUpdateBroker struct {
	service  *LeaderboardService
	notifier ChangeNotifier
	opts     BrokerOptions
	logger   zerolog.Logger
}

func NewLiveUpdateBroker(service *LeaderboardService, notifier ChangeNotifier, opts BrokerOptions, logger zerolog.Logger) *LiveUpdateBroker {
	if opts.RankingType == "" {
		opts.RankingType = domain.RankAverageScore
	}
	if opts.TimePeriod == "" {
		opts.TimePeriod = domain.PeriodAllTime
	}
	return &LiveUpdateBroker{
		service:  service,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With().Str("component", "live_update_broker").Logger(),
	}
}

// Subscribe registers callback for refreshed leaderboards, delivering an initial
// snapshot right away. The department leaderboard is included when department is set.
//
// The returned function stops deliveries and releases the listener; once it returns
// callback is never invoked again. It must not be called from inside callback.
// Cancelling ctx has the same effect.
func (b *LiveUpdateBroker) Subscribe(ctx context.Context, callback func(domain.LiveUpdate), department string) (func(), error) {
	runCtx, stopRuns := context.WithCancel(ctx)
	sub := &subscription{
		id:         uuid.NewString(),
		broker:     b,
		callback:   callback,
		department: department,
		base:       runCtx,
		stopRuns:   stopRuns,
	}
	sub.logger = b.logger.With().Str("subscription", sub.id).Str("department", department).Logger()

	release, err := b.notifier.Listen(runCtx, sub.onChange)
	if err != nil {
		stopRuns()
		return nil, err
	}
	sub.release = release
	if b.opts.Recorder != nil {
		b.opts.Recorder.SubscriberDelta(1)
	}
	sub.logger.Debug().Msg("subscribed")

	sub.fire()

	var once sync.Once
	unsubscribe := func() { once.Do(sub.close) }
	go func() {
		<-runCtx.Done()
		unsubscribe()
	}()
	return unsubscribe, nil
}

type subscription struct {
	id         string
	broker     *LiveUpdateBroker
	callback   func(domain.LiveUpdate)
	department string
	logger     zerolog.Logger
	base       context.Context
	stopRuns   context.CancelFunc
	release    func()

	mu        sync.Mutex
	closed    bool
	gen       uint64
	timer     *time.Timer
	cancelRun context.CancelFunc

	// deliverMu serializes callbacks and lets close wait for an in-flight one.
	deliverMu sync.Mutex
}

func (s *subscription) onChange() {
	s.broker.service.Invalidate(s.base)

	delay := s.broker.opts.Debounce
	if delay <= 0 {
		s.fire()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.logger.Debug().Dur("debounce", delay).Msg("change signal debounced")
	s.timer = time.AfterFunc(delay, s.fire)
}

// fire starts a refresh run and cancels the one it supersedes.
func (s *subscription) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.base)
	s.cancelRun = cancel
	s.mu.Unlock()

	go s.run(ctx, gen)
}

func (s *subscription) run(ctx context.Context, gen uint64) {
	update := s.refresh(ctx)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	current := !s.closed && gen == s.gen && ctx.Err() == nil
	s.mu.Unlock()
	if !current {
		s.logger.Debug().Uint64("run", gen).Msg("dropping superseded refresh")
		return
	}

	if rec := s.broker.opts.Recorder; rec != nil {
		rec.ObserveDelivery(update.Error != "")
	}
	s.callback(update)
}

func (s *subscription) refresh(ctx context.Context) domain.LiveUpdate {
	opts := s.broker.opts
	service := s.broker.service

	global := service.GenerateGlobalLeaderboard(ctx, opts.RankingType, opts.TimePeriod, opts.Limit)
	update := domain.LiveUpdate{Global: &global, LastUpdated: service.now()}
	errMsg := global.Error

	if s.department != "" {
		dept, err := service.GenerateDepartmentLeaderboard(ctx, s.department, opts.RankingType, opts.TimePeriod, opts.Limit)
		switch {
		case err != nil:
			errMsg = err.Error()
		case dept.Error != "":
			errMsg = dept.Error
		default:
			update.Department = &dept
		}
	}

	if errMsg != "" {
		s.logger.Error().Str("error", errMsg).Msg("live leaderboard refresh failed")
		return domain.LiveUpdate{Error: errMsg, LastUpdated: update.LastUpdated}
	}
	return update
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.mu.Unlock()

	s.stopRuns()
	if s.release != nil {
		s.release()
	}

	// Wait out a callback that passed the closed check before we set it.
	s.deliverMu.Lock()
	s.deliverMu.Unlock()

	if rec := s.broker.opts.Recorder; rec != nil {
		rec.SubscriberDelta(-1)
	}
	s.logger.Debug().Msg("unsubscribed")
}
