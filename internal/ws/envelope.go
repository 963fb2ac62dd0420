// internal/ws/envelope.go
package ws

import (
	"encoding/json"

	"gameroom/internal/room"
)

// Reserved event names in the wire envelope. Any other event name is
// game-specific and opaque to this package.
const (
	EventUpdateMembers  = "UPDATE_MEMBERS"
	EventGameState      = "GAME_STATE"
	EventUpdateSettings = "UPDATE_SETTINGS"
	EventStartGame      = "START_GAME"
	EventRestartGame    = "RESTART_GAME"
	EventError          = "ERROR"

	eventPing = "PING"
	eventPong = "PONG"
)

// Envelope is the wire format for every websocket message: {"event", "data"}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// membersUpdate is the UPDATE_MEMBERS payload: the spectator count and the
// player list, both restricted to currently connected members.
type membersUpdate struct {
	SpectatorsCount int           `json:"spectatorsCount"`
	Members         []room.Member `json:"members"`
}
