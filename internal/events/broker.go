// Package events fans out named events to any number of subscribers, such as
// the server-sent event stream of the HTTP API.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Event is one named payload.
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
}

// Broker delivers every emitted event to every current subscriber. A
// subscriber whose buffer is full misses the event; emitters never block.
type Broker struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	next    int
	buffer  int
	closed  bool
	dropped int
	logger  *zap.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Broker) { b.buffer = n }
}

// NewBroker creates a Broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{subs: make(map[int]chan Event), buffer: 64, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Emit sends an event to all subscribers.
func (b *Broker) Emit(name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := Event{Name: name, Payload: payload}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
			b.logger.Debug("dropping event for slow subscriber", zap.String("event", name), zap.Int("subscriber", id))
		}
	}
}

// Subscribers returns the number of current subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for full buffers.
func (b *Broker) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
