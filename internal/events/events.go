// Package events defines the best-effort broadcast contract between the core
// services and the realtime layer. Delivery is optional: publishers must
// never block or fail the operation that emitted the event.
package events

import "fmt"

// Event types carried to websocket subscribers. Payloads hold only
// already-public fields (ids, usernames, scores).
const (
	TypeRoundStarted    = "round_started"
	TypeAnswerSubmitted = "answer_submitted"
	TypeRoundCompleted  = "round_completed"
	TypeNextRound       = "next_round"
	TypeGameEnded       = "game_ended"
	TypeGardenUpdated   = "garden_updated"
)

// Event is the broadcast envelope.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher fans an event out to every subscriber of a topic.
type Publisher interface {
	Publish(topic string, event Event)
}

// GardenTopic is the room key for one garden's subscribers.
func GardenTopic(gardenID string) string {
	return fmt.Sprintf("garden:%s", gardenID)
}

// GameTopic is the room key for one game session's subscribers.
func GameTopic(sessionID string) string {
	return fmt.Sprintf("game:%s", sessionID)
}

// Nop discards every event. Used when no realtime layer is wired.
type Nop struct{}

func (Nop) Publish(string, Event) {}
