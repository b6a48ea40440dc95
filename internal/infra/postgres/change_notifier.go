package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/infra/postgres/migrations"
)

const reconnectDelay = time.Second

// ChangeNotifier LISTENs on the channel the migration trigger notifies and fans
// each notification out to every registered callback. All listeners share one
// pooled connection, taken on the first Listen and returned after the last release.
type ChangeNotifier struct {
	pool    *pgxpool.Pool
	channel string
	logger  zerolog.Logger

	mu        sync.Mutex
	listeners map[uint64]func()
	nextID    uint64
	stop      context.CancelFunc
	done      chan struct{}
}

func NewChangeNotifier(pool *pgxpool.Pool, logger zerolog.Logger) *ChangeNotifier {
	return &ChangeNotifier{
		pool:      pool,
		channel:   migrations.ChangeChannel,
		logger:    logger.With().Str("component", "postgres_change_notifier").Logger(),
		listeners: make(map[uint64]func()),
	}
}

// Listen registers onChange until the returned function is called or ctx ends.
func (n *ChangeNotifier) Listen(ctx context.Context, onChange func()) (func(), error) {
	n.mu.Lock()
	if n.stop == nil {
		conn, err := n.acquire(ctx)
		if err != nil {
			n.mu.Unlock()
			return nil, err
		}
		runCtx, stop := context.WithCancel(context.Background())
		n.stop = stop
		n.done = make(chan struct{})
		go n.run(runCtx, conn, n.done)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = onChange
	n.mu.Unlock()

	released := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(released)
			n.remove(id)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-released:
		}
	}()
	return release, nil
}

// Listeners reports how many callbacks are registered.
func (n *ChangeNotifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

func (n *ChangeNotifier) remove(id uint64) {
	n.mu.Lock()
	delete(n.listeners, id)
	if len(n.listeners) > 0 || n.stop == nil {
		n.mu.Unlock()
		return
	}
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	stop()
	<-done
}

func (n *ChangeNotifier) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{n.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", n.channel, err)
	}
	return conn, nil
}

// run owns conn and reconnects after failures until ctx ends.
func (n *ChangeNotifier) run(ctx context.Context, conn *pgxpool.Conn, done chan struct{}) {
	defer close(done)
	for {
		err := n.wait(ctx, conn)
		n.release(conn)
		if ctx.Err() != nil {
			return
		}
		n.logger.Error().Err(err).Msg("listen connection failed, reconnecting")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			if conn, err = n.acquire(ctx); err == nil {
				break
			}
			n.logger.Warn().Err(err).Msg("listen reconnect failed")
		}
		// Notifications sent while disconnected are lost.
		n.dispatch()
	}
}

func (n *ChangeNotifier) wait(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		n.dispatch()
	}
}

func (n *ChangeNotifier) dispatch() {
	n.mu.Lock()
	listeners := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (n *ChangeNotifier) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		unlistenCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
		stop()
	}
	conn.Release()
}
