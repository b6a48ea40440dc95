package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChangeNotifier fans submission change signals across instances over Redis pub/sub.
// Writers call Publish after storing a submission; every Listen callback fires once per message.
type ChangeNotifier struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewChangeNotifier(client *redis.Client, channel string, logger zerolog.Logger) *ChangeNotifier {
	if channel == "" {
		channel = "leaderboard:submissions:changed"
	}
	return &ChangeNotifier{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "redis_change_notifier").Logger(),
	}
}

// Publish signals that the submission collection changed.
func (n *ChangeNotifier) Publish(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, "changed").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen subscribes to the change channel. The subscription is confirmed before
// Listen returns, so no later Publish is missed.
func (n *ChangeNotifier) Listen(ctx context.Context, onChange func()) (func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	done := make(chan struct{})
	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				n.logger.Warn().Err(err).Msg("failed to close subscription")
			}
		})
	}

	messages := pubsub.Channel()
	go func() {
		for {
			select {
			case _, ok := <-messages:
				if !ok {
					return
				}
				onChange()
			case <-ctx.Done():
				release()
				return
			case <-done:
				return
			}
		}
	}()
	return release, nil
}
