package service

import (
	"context"
	"sync"
)

// watchers fans state snapshots out to subscribers. Each subscriber channel
// holds at most one value: a newer snapshot replaces an unread older one, so a
// slow reader always sees the latest state and publishers never block.
type watchers[T any] struct {
	mu      sync.Mutex
	subs    map[chan T]struct{}
	cleanup sync.WaitGroup
}

func newWatchers[T any]() *watchers[T] {
	return &watchers[T]{subs: make(map[chan T]struct{})}
}

// subscribe registers a channel primed with initial. The channel is closed
// once ctx is done.
func (w *watchers[T]) subscribe(ctx context.Context, initial T) <-chan T {
	ch := make(chan T, 1)
	ch <- initial

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	w.cleanup.Add(1)
	go func() {
		defer w.cleanup.Done()
		<-ctx.Done()
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}()

	return ch
}

// publish delivers v to every subscriber, replacing any unread value.
func (w *watchers[T]) publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (w *watchers[T]) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
