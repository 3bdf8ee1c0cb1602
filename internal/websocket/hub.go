package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when sending to a client that has gone away
	ErrClientClosed = errors.New("client is closed")
	// ErrUnknownTopic is returned when a client asks for a topic the hub does not carry
	ErrUnknownTopic = errors.New("unknown topic")
)

// TopicLeaderboard carries leaderboard snapshots and registration activity
const TopicLeaderboard = "leaderboard"

// Subscriber is a connection the hub can deliver encoded events to
type Subscriber interface {
	ID() string
	Topic() string
	Send(data []byte) error
	Close() error
}

// SnapshotFunc returns the event a subscriber receives when it joins a topic
type SnapshotFunc func() Event

// Hub fans events out to subscribers grouped by topic. A topic with a snapshot
// function hands every new subscriber the current state before any broadcast
// reaches it. It is safe for concurrent use.
type Hub struct {
	topics    map[string]map[string]Subscriber
	snapshots map[string]SnapshotFunc
	mu        sync.RWMutex
}

// NewHub creates a Hub that only accepts the leaderboard topic
func NewHub() *Hub {
	return &Hub{
		topics:    make(map[string]map[string]Subscriber),
		snapshots: map[string]SnapshotFunc{TopicLeaderboard: nil},
	}
}

// SetSnapshot sets the snapshot sent to new subscribers of topic and makes the
// topic available
func (h *Hub) SetSnapshot(topic string, snapshot SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots[topic] = snapshot
}

// Register adds the subscriber and queues the topic snapshot for it. The
// snapshot is queued under the hub lock so a later broadcast cannot overtake it.
func (h *Hub) Register(sub Subscriber) error {
	topic := sub.Topic()

	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot, ok := h.snapshots[topic]
	if !ok {
		return ErrUnknownTopic
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]Subscriber)
	}
	h.topics[topic][sub.ID()] = sub

	log.Debug().
		Str("topic", topic).
		Str("client_id", sub.ID()).
		Msg("WebSocket client registered")

	if snapshot == nil {
		return nil
	}
	event := snapshot()
	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("Failed to serialize snapshot")
		return nil
	}
	if err := sub.Send(data); err != nil {
		log.Debug().Err(err).Str("client_id", sub.ID()).Msg("Failed to send snapshot")
	}
	return nil
}

// Unregister removes the subscriber. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := sub.Topic()
	clients := h.topics[topic]
	if _, ok := clients[sub.ID()]; !ok {
		return
	}
	delete(clients, sub.ID())
	if len(clients) == 0 {
		delete(h.topics, topic)
	}

	log.Debug().
		Str("topic", topic).
		Str("client_id", sub.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast encodes event once and queues it for every subscriber of topic.
// Subscribers that refuse the message are dropped from the hub.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.topics[topic]))
	for _, sub := range h.topics[topic] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	for _, sub := range subs {
		if err := sub.Send(data); err != nil {
			log.Debug().
				Err(err).
				Str("client_id", sub.ID()).
				Msg("Dropping WebSocket client")
			h.Unregister(sub)
		}
	}

	log.Debug().
		Str("topic", topic).
		Str("event_type", event.Type).
		Int("client_count", len(subs)).
		Msg("Broadcast event")
}

// ClientCount returns the number of subscribers on topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TotalClientCount returns the number of subscribers across all topics
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.topics {
		total += len(clients)
	}
	return total
}
