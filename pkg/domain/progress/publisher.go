// Package progress provides best-effort broadcast of scan and migration
// status snapshots to connected observers.
package progress

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Kind tags an event with the subsystem it describes.
type Kind string

const (
	KindScan      Kind = "scan"
	KindMigration Kind = "migration"
)

// Event carries one status snapshot. The payload must encode to a JSON
// object; on the wire it is flattened with a "type" tag so observers can
// route without unwrapping an envelope.
type Event struct {
	Kind    Kind
	Payload any
}

// MarshalJSON implements json.Marshaler, emitting the tagged flat form.
func (e Event) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("progress payload must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	tag, err := json.Marshal(string(e.Kind))
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	return json.Marshal(fields)
}

// DefaultQueueSize bounds each subscriber's delivery queue.
const DefaultQueueSize = 64

// Option configures a Publisher.
type Option func(*Publisher)

// WithQueueSize sets the per-subscriber queue bound.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// Publisher fans events out to zero or more subscribers. Delivery is
// best-effort and at-most-once: a subscriber whose queue is full misses the
// update rather than blocking the publisher. The latest event per kind is
// retained so late joiners can pull current state on connect.
type Publisher struct {
	mu        sync.RWMutex
	subs      map[chan Event]struct{}
	latest    map[Kind]Event
	queueSize int
	closed    bool
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		subs:      make(map[chan Event]struct{}),
		latest:    make(map[Kind]Event),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers an observer. The returned cancel func must be called
// when the observer disconnects; it is safe to call more than once.
func (p *Publisher) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Event, p.queueSize)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[ch]; ok {
				delete(p.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish records the event as the latest for its kind and fans it out.
// Subscribers with full queues are skipped.
func (p *Publisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.latest[event.Kind] = event
	for ch := range p.subs {
		select {
		case ch <- event:
		default:
			// Drop if the subscriber is slow.
		}
	}
}

// Latest returns the most recent event of the given kind, if any.
func (p *Publisher) Latest(kind Kind) (Event, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	event, ok := p.latest[kind]
	return event, ok
}

// SnapshotAll returns the latest event per kind in stable order, for
// late joiners that want full current state on connect.
func (p *Publisher) SnapshotAll() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var events []Event
	for _, kind := range []Kind{KindScan, KindMigration} {
		if event, ok := p.latest[kind]; ok {
			events = append(events, event)
		}
	}
	return events
}

// SubscriberCount reports the number of connected observers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close terminates every subscriber channel. Publish becomes a no-op.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for ch := range p.subs {
		close(ch)
		delete(p.subs, ch)
	}
}
