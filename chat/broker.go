package chat

import (
	"sync"
)

// Subscriber is one live session handle attached to a topic. Deliver must
// not block; it reports false once the session's outbound channel is gone,
// at which point the broker silently drops the subscriber.
type Subscriber interface {
	ID() string
	Deliver(payload []byte) bool
}

type topic struct {
	mu   sync.Mutex
	subs map[string]Subscriber
}

func (t *topic) snapshot() []Subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		out = append(out, s)
	}
	return out
}

// Broker is the in-process publish/subscribe registry keyed by conversation
// id. One instance lives for the whole process; sessions come and go.
// Locking is per topic so publishes on unrelated conversations never
// serialize on each other; the outer lock guards the topic index and is
// only read-locked on the publish path.
type Broker struct {
	mu     sync.RWMutex
	topics map[uint]*topic
	closed bool
}

func NewBroker() *Broker {
	return &Broker{topics: make(map[uint]*topic)}
}

// Subscribe adds the session to the topic's set. Re-subscribing the same
// session id is a no-op. The insert happens under the index lock: dropping
// it first would let a concurrent Unsubscribe reclaim the topic entry and
// strand the new subscriber in a detached set no Publish can reach.
func (b *Broker) Subscribe(conversationID uint, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	t, ok := b.topics[conversationID]
	if !ok {
		t = &topic{subs: make(map[string]Subscriber)}
		b.topics[conversationID] = t
	}
	t.mu.Lock()
	t.subs[sub.ID()] = sub
	t.mu.Unlock()
}

// Unsubscribe removes the session; an emptied topic entry is reclaimed.
func (b *Broker) Unsubscribe(conversationID uint, subID string) {
	b.mu.Lock()
	t, ok := b.topics[conversationID]
	if !ok {
		b.mu.Unlock()
		return
	}
	t.mu.Lock()
	delete(t.subs, subID)
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(b.topics, conversationID)
	}
	b.mu.Unlock()
}

// Publish delivers the payload to every session currently subscribed to the
// topic. Delivery across sessions is unordered; each session sees a topic's
// payloads in publish order through its own buffered channel. Sessions whose
// channel is gone are dropped here, not escalated.
func (b *Broker) Publish(conversationID uint, payload []byte) {
	b.mu.RLock()
	t, ok := b.topics[conversationID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	for _, sub := range t.snapshot() {
		if !sub.Deliver(payload) {
			b.Unsubscribe(conversationID, sub.ID())
		}
	}
}

// Subscribers reports the current size of a topic's set.
func (b *Broker) Subscribers(conversationID uint) int {
	b.mu.RLock()
	t, ok := b.topics[conversationID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close tears the registry down at shutdown; every remaining subscriber is
// detached and further subscribes are refused.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.topics = make(map[uint]*topic)
}
