package live

import "sync"

// feedBuffer is the per-subscriber channel depth; slow consumers drop
// trades rather than block producers.
const feedBuffer = 64

// Feed fans submitted live trades out to websocket subscribers.
type Feed struct {
	mu   sync.Mutex
	subs map[chan Trade]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Trade]struct{})}
}

// Subscribe registers a new consumer. The returned cancel func must be
// called when the consumer goes away.
func (f *Feed) Subscribe() (<-chan Trade, func()) {
	ch := make(chan Trade, feedBuffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers a trade to every subscriber without blocking; a full
// subscriber buffer drops the trade for that subscriber only.
func (f *Feed) Publish(t Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- t:
		default:
		}
	}
}
