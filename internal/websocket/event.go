package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeUpdated EventType = "updated"
	EventTypeFailed  EventType = "failed"
	EventTypeCreated EventType = "created"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLeaderboard EntityType = "leaderboard"
	EntityTypeRegistrant  EntityType = "registrant"
	EntityTypeRepository  EntityType = "repository"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "leaderboard.updated"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LeaderboardUpdated creates a leaderboard.updated event
func LeaderboardUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLeaderboard, payload)
}

// LeaderboardFailed creates a leaderboard.failed event
func LeaderboardFailed(payload interface{}) Event {
	return NewEvent(EventTypeFailed, EntityTypeLeaderboard, payload)
}

// RegistrantCreated creates a registrant.created event
func RegistrantCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeRegistrant, payload)
}

// RepositoryCreated creates a repository.created event
func RepositoryCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeRepository, payload)
}
