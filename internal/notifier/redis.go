package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// channel carrying hub messages between instances.
const redisChannel = "notify.broadcast"

const redisPublishTimeout = 2 * time.Second

// envelope is the wire form exchanged over Redis.  Origin identifies the
// publishing instance so it can skip its own messages; local delivery
// already happened before the Redis round-trip.
type envelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge relays hub traffic through Redis pub/sub so that observers
// connected to one instance still see changes made through another.  When
// no Redis client is configured the bridge publishes locally only, which
// keeps single-instance deployments working without Redis.
type RedisBridge struct {
	hub      *Hub
	rdb      *redis.Client
	instance string
}

// NewRedisBridge wraps the hub.  rdb may be nil.
func NewRedisBridge(hub *Hub, rdb *redis.Client) *RedisBridge {
	return &RedisBridge{hub: hub, rdb: rdb, instance: uuid.NewString()}
}

// Publish delivers to local subscribers and, when Redis is available,
// forwards the message to the other instances.  Redis failures are logged
// and ignored: broadcast is best-effort by contract.
func (b *RedisBridge) Publish(topic string, payload any) {
	b.hub.Publish(topic, payload)
	if b.rdb == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notifier: marshal payload for %s failed: %v", topic, err)
		return
	}
	wire, err := json.Marshal(envelope{Origin: b.instance, Topic: topic, Payload: body})
	if err != nil {
		log.Printf("notifier: marshal envelope for %s failed: %v", topic, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, redisChannel, wire).Err(); err != nil {
		log.Printf("notifier: redis publish failed: %v", err)
	}
}

// Run subscribes to the broadcast channel and re-injects remote messages
// into the local hub until the context is cancelled.  It returns
// immediately when no Redis client is configured.
func (b *RedisBridge) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	sub := b.rdb.Subscribe(ctx, redisChannel)
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				log.Printf("notifier: bad broadcast payload: %v", err)
				continue
			}
			if env.Origin == b.instance {
				continue
			}
			b.hub.deliver(Message{Topic: env.Topic, Payload: env.Payload})
		}
	}
}
