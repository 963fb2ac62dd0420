// internal/ws/processor.go
package ws

import (
	"encoding/json"

	"gameroom/internal/room"
)

// SendFunc delivers an envelope privately to the connection whose message is
// being processed. BroadcastFunc triggers a named broadcast to the whole
// room. Both are transient closures scoped to one inbound message.
type SendFunc func(Envelope)
type BroadcastFunc func(event string)

// EventProcessor is the websocket-facing game capability supplied by the
// embedding application. Payload producers may return nil to indicate the
// recipient gets no payload (or, for OutgoingEvent, no message at all).
//
// Failures returned from UpdateGameSettings and IncomingEvent are caught per
// message, rendered via ProcessEventError and sent back as an ERROR event;
// they never tear down the connection.
type EventProcessor interface {
	CreateGameState(g room.Game, userID string) json.RawMessage
	UpdateGameSettings(settings json.RawMessage, g room.Game, send SendFunc, broadcast BroadcastFunc) error
	StartGame(g room.Game, userID string) json.RawMessage
	RestartGame(g room.Game, userID string) json.RawMessage
	IncomingEvent(env Envelope, g room.Game, userID string, send SendFunc, broadcast BroadcastFunc) error
	OutgoingEvent(event string, g room.Game, userID string) *Envelope
	ProcessEventError(err error) json.RawMessage
}
