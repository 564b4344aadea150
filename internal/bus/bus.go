// Package bus provides the in-process topic router that connects the
// acquisition sources, the calculation engine and the front ends. It is
// the thread-safe hand-off point between the engine's analysis workers
// and subscribers running on other goroutines.
package bus

import "sync"

// DefaultQueueSize is the per-subscription channel depth
const DefaultQueueSize = 64

// Message is a routed topic message
type Message struct {
	Topic    string         `json:"topic"`
	Payload  any            `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Subscription receives messages for a set of topics on C. Slow
// subscribers lose their oldest queued message rather than blocking
// publishers.
type Subscription struct {
	C      chan Message
	topics map[string]struct{}
	bus    *Bus
}

// Topics reports whether the subscription covers topic
func (s *Subscription) covers(topic string) bool {
	_, ok := s.topics[topic]
	return ok
}

// Close removes the subscription from the bus and closes its channel
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus is a bounded, non-blocking topic router
type Bus struct {
	mu        sync.RWMutex
	subs      []*Subscription
	queueSize int
	closed    bool
}

// New creates a bus with the given per-subscription queue size.
// Non-positive sizes fall back to DefaultQueueSize.
func New(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{queueSize: queueSize}
}

// Subscribe registers interest in the given topics
func (b *Bus) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		C:      make(chan Message, b.queueSize),
		topics: make(map[string]struct{}, len(topics)),
		bus:    b,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.C)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers msg to every subscription covering its topic. Never
// blocks: when a subscriber's queue is full its oldest message is
// dropped to make room.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.covers(msg.Topic) {
			continue
		}
		select {
		case sub.C <- msg:
		default:
			// Drop-oldest so the subscriber sees the freshest data
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- msg:
			default:
			}
		}
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub.C)
			return
		}
	}
}

// Close shuts the bus down; subsequent publishes are discarded and all
// subscription channels are closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.C)
	}
	b.subs = nil
}
