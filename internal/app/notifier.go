package app

import (
	"context"
	"sync"
)

// FanInNotifier merges several ChangeNotifiers: a local one that sees writes to
// this instance's store and bus notifiers that carry signals from other processes.
type FanInNotifier struct {
	notifiers []ChangeNotifier
}

func NewFanInNotifier(notifiers ...ChangeNotifier) *FanInNotifier {
	return &FanInNotifier{notifiers: notifiers}
}

// Listen registers onChange with every notifier. If one fails the ones already
// registered are released and the error is returned.
func (f *FanInNotifier) Listen(ctx context.Context, onChange func()) (func(), error) {
	releases := make([]func(), 0, len(f.notifiers))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, n := range f.notifiers {
		release, err := n.Listen(ctx, onChange)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
