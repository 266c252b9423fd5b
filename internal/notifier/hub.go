package notifier

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is what subscribers receive: the topic it was published on and
// the JSON-encoded payload.
type Message struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Subscription is one observer's registration.  Messages arrive on C until
// Unsubscribe closes it.
type Subscription struct {
	ID     string
	Topics map[string]struct{}
	C      chan Message
}

// Hub is a concurrency-safe registry mapping subscriber identity to the
// topics it listens on.  Fan-out is non-blocking: a subscriber whose buffer
// is full misses the message rather than stalling the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// subscriber channel buffer; bursts beyond this are dropped per subscriber.
const subBuffer = 16

// Subscribe registers an observer for the given topics and returns its
// subscription.  Subscribing to no topics is allowed and receives nothing.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		Topics: make(map[string]struct{}, len(topics)),
		C:      make(chan Message, subBuffer),
	}
	for _, t := range topics {
		if t != "" {
			sub.Topics[t] = struct{}{}
		}
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel.  It is safe
// to call for an already removed subscription.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.subs[sub.ID]; ok {
		delete(h.subs, sub.ID)
		close(sub.C)
	}
	h.mu.Unlock()
}

// Publish encodes the payload and delivers it to every subscriber of the
// topic.  Encoding failures are logged and dropped; they must never reach
// the booking flow.
func (h *Hub) Publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notifier: marshal payload for %s failed: %v", topic, err)
		return
	}
	h.deliver(Message{Topic: topic, Payload: body})
}

// deliver fans a ready message out to local subscribers.
func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if _, ok := sub.Topics[msg.Topic]; !ok {
			continue
		}
		select {
		case sub.C <- msg:
		default:
			// Slow consumer: drop instead of blocking the publisher.
		}
	}
}

// Subscribers reports how many observers are currently registered.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RunPresence periodically broadcasts the current observer count on the
// users-online topic until the context is cancelled.  Presence is per
// instance: each server reports the observers connected to it.
func (h *Hub) RunPresence(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Publish(TopicUsersOnline, UsersOnline{Online: h.Subscribers()})
		}
	}
}
