// Package roomserver exposes the coordinator over HTTP: a JSON
// request/response surface for room management and a WebSocket streaming
// surface carrying state broadcasts and player actions.
package roomserver

import (
	"encoding/json"

	"github.com/cory-johannsen/parlor/internal/room"
)

// Server → client message types.
const (
	// TypeState carries an authoritative state snapshot or broadcast.
	TypeState = "state"
	// TypeRejected carries a game-logic refusal, unicast to the actor.
	TypeRejected = "rejected"
	// TypeError carries a non-rule failure, unicast to the actor.
	TypeError = "error"
)

// Client → server message types.
const (
	// TypeAction submits a player action for the room's game.
	TypeAction = "action"
	// TypeLeave gives up the player's membership and closes the stream.
	TypeLeave = "leave"
)

// ServerMessage is the wire form of every server → client message.
type ServerMessage struct {
	Type    string          `json:"type"`
	State   json.RawMessage `json:"state,omitempty"`
	Players []string        `json:"players,omitempty"`
	Status  string          `json:"status,omitempty"`
	Version uint64          `json:"version,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ClientMessage is the wire form of every client → server message.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeSnapshot encodes a committed room snapshot as a state message.
func EncodeSnapshot(snap room.Snapshot) ([]byte, error) {
	return json.Marshal(ServerMessage{
		Type:    TypeState,
		State:   snap.State,
		Players: snap.Players,
		Status:  string(snap.Status),
		Version: snap.Version,
	})
}

func encodeRejected(reason string) []byte {
	data, _ := json.Marshal(ServerMessage{Type: TypeRejected, Reason: reason})
	return data
}

func encodeError(msg string) []byte {
	data, _ := json.Marshal(ServerMessage{Type: TypeError, Error: msg})
	return data
}
