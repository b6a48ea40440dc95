package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultSubject = "quiz.submissions.changed"

// ChangeNotifier relays submission change signals over a NATS subject so that
// every instance refreshes its live leaderboards.
type ChangeNotifier struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func NewChangeNotifier(conn *nats.Conn, subject string, logger zerolog.Logger) *ChangeNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &ChangeNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_change_notifier").Logger(),
	}
}

// Publish signals that the submission collection changed.
func (n *ChangeNotifier) Publish(_ context.Context) error {
	if err := n.conn.Publish(n.subject, nil); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}

func (n *ChangeNotifier) Listen(ctx context.Context, onChange func()) (func(), error) {
	sub, err := n.conn.Subscribe(n.subject, func(_ *nats.Msg) {
		onChange()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	if err := n.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription %s: %w", n.subject, err)
	}

	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
				n.logger.Warn().Err(err).Msg("failed to unsubscribe")
			}
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-done:
		}
	}()
	return release, nil
}
