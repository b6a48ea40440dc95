package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-leaderboard/internal/app"
)

// triggerNotifier records its listeners so tests can fire them by hand.
type triggerNotifier struct {
	mu       sync.Mutex
	active   map[int]func()
	next     int
	released int
	err      error
}

func (n *triggerNotifier) Listen(_ context.Context, onChange func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	if n.active == nil {
		n.active = make(map[int]func())
	}
	id := n.next
	n.next++
	n.active[id] = onChange
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.active[id]; ok {
			delete(n.active, id)
			n.released++
		}
	}, nil
}

func (n *triggerNotifier) fire() {
	n.mu.Lock()
	listeners := make([]func(), 0, len(n.active))
	for _, fn := range n.active {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func TestFanInNotifierRelaysEverySource(t *testing.T) {
	local, bus := &triggerNotifier{}, &triggerNotifier{}
	fanIn := app.NewFanInNotifier(local, bus)

	var mu sync.Mutex
	signals := 0
	release, err := fanIn.Listen(context.Background(), func() {
		mu.Lock()
		signals++
		mu.Unlock()
	})
	require.NoError(t, err)

	local.fire()
	bus.fire()
	mu.Lock()
	require.Equal(t, 2, signals)
	mu.Unlock()

	release()
	release()
	require.Equal(t, 1, local.released)
	require.Equal(t, 1, bus.released)

	local.fire()
	mu.Lock()
	require.Equal(t, 2, signals)
	mu.Unlock()
}

func TestFanInNotifierReleasesOnPartialFailure(t *testing.T) {
	local := &triggerNotifier{}
	bus := &triggerNotifier{err: errors.New("bus down")}

	_, err := app.NewFanInNotifier(local, bus).Listen(context.Background(), func() {})
	require.EqualError(t, err, "bus down")
	require.Equal(t, 1, local.released)
}
