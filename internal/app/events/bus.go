// Package events provides in-process pub/sub for ledger lifecycle events.
package events

import (
	"sync"
	"time"
)

// Topics published by the ledger services.
const (
	TopicDataSubmitted  = "data.submitted"
	TopicDataVerified   = "data.verified"
	TopicRewardsClaimed = "rewards.claimed"
)

// DataSubmitted is emitted for every accepted submission.
type DataSubmitted struct {
	ID          int64  `json:"id"`
	Contributor string `json:"contributor"`
	Category    string `json:"category"`
	Reward      int64  `json:"reward"`
}

// DataVerified is emitted when the owner verifies a datapoint.
type DataVerified struct {
	ID       int64  `json:"id"`
	Verifier string `json:"verifier"`
}

// RewardsClaimed is emitted after a claim settles.
type RewardsClaimed struct {
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
}

// Event wraps a payload with its topic and emission time.
type Event struct {
	Topic     string
	Timestamp time.Time
	Data      any
}

// Handler receives published events.
type Handler func(Event)

// Bus delivers events to subscribers. Delivery is synchronous in publish
// order, so subscribers observe events in the order the ledger committed
// the underlying state transitions.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish delivers the payload to every subscriber of the topic.
func (b *Bus) Publish(topic string, data any) {
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	event := Event{
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	for _, handler := range subs {
		handler(event)
	}
}
