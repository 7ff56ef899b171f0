package app

import (
	"sync"

	"quiz-admin-service/internal/domain"
)

// EventBus fans submission events out to dashboard subscribers. Publish
// never blocks: a slow subscriber has its oldest buffered event dropped
// so the write path stays independent of consumer speed.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan domain.AttemptEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan domain.AttemptEvent]struct{})}
}

// Subscribe returns a channel of submission events. The caller must
// invoke the returned cancel function to avoid leaks.
func (b *EventBus) Subscribe() (<-chan domain.AttemptEvent, func()) {
	ch := make(chan domain.AttemptEvent, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *EventBus) Publish(ev domain.AttemptEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
