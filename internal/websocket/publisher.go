package websocket

import "github.com/dafibh/contribboard/contribboard-backend/internal/domain"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients subscribed to topic
	Publish(topic string, event Event)
}

var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the topic
func (h *Hub) Publish(topic string, event Event) {
	h.Broadcast(topic, event)
}

// BoardSource provides the current leaderboard
type BoardSource interface {
	Board() domain.Board
}

// FollowLeaderboard makes every new leaderboard subscriber start from the
// board source currently holds. A board whose subscription failed is sent as
// leaderboard.failed, matching what live subscribers saw.
func (h *Hub) FollowLeaderboard(source BoardSource) {
	h.SetSnapshot(TopicLeaderboard, func() Event {
		board := source.Board()
		if board.Error != "" {
			return LeaderboardFailed(board)
		}
		return LeaderboardUpdated(board)
	})
}
