// Package session tracks live streaming connections per (room, player) pair
// and fans committed room snapshots out to them.
package session

import (
	"fmt"
	"sync"
)

// Entity is the send side of one player's streaming connection: a buffered
// channel bridging the room broadcast path to the transport writer.
type Entity struct {
	roomID   string
	playerID string
	outbound chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewEntity creates an Entity for the given (room, player) pair.
//
// Precondition: roomID and playerID must be non-empty.
// Postcondition: Returns an Entity with an open outbound channel.
func NewEntity(roomID, playerID string, bufferSize int) *Entity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Entity{
		roomID:   roomID,
		playerID: playerID,
		outbound: make(chan []byte, bufferSize),
	}
}

// RoomID returns the room this entity is attached to.
func (e *Entity) RoomID() string { return e.roomID }

// PlayerID returns the player this entity belongs to.
func (e *Entity) PlayerID() string { return e.playerID }

// Push enqueues data for the transport writer without blocking.
//
// Postcondition: Data is enqueued, or an error if the entity is closed or
// its buffer is full. A full buffer means the client stopped draining; the
// caller detaches it rather than stall the room.
func (e *Entity) Push(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("connection %s/%s is closed", e.roomID, e.playerID)
	}
	select {
	case e.outbound <- data:
		return nil
	default:
		return fmt.Errorf("connection %s/%s send buffer full", e.roomID, e.playerID)
	}
}

// Outbound returns the read-only channel the transport writer drains.
// The channel is closed when the entity closes.
func (e *Entity) Outbound() <-chan []byte {
	return e.outbound
}

// Close marks the entity as closed and closes the outbound channel.
// Idempotent; further Push calls return an error.
func (e *Entity) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.outbound)
	}
}

// IsClosed reports whether the entity has been closed.
func (e *Entity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
