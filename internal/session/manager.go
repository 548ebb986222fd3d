package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/room"
)

// SnapshotEncoder turns a room snapshot into the wire bytes sent to clients.
type SnapshotEncoder func(snap room.Snapshot) ([]byte, error)

// Manager owns the mapping from (room, player) to the active Entity.
// Its lock is separate from any room's lock so attach/detach never block on
// an in-progress action; the lock order is always room lock first, manager
// lock second.
type Manager struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*Entity // roomID → playerID → entity
}

// NewManager creates an empty connection Manager.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger,
		rooms:  make(map[string]map[string]*Entity),
	}
}

// Attach registers the entity as the live sink for its (room, player) pair
// and sends the room's current snapshot as the entity's first message.
//
// The registration and first send run inside the room's lock (via Hydrate),
// so the client's first observed state is exactly the commit the snapshot
// reflects: every later commit will be broadcast to it, and no earlier one
// can reach it. A prior entity for the same pair is superseded and closed.
//
// Precondition: e must belong to rm's ID and be freshly created.
func (m *Manager) Attach(rm *room.Room, e *Entity, encode SnapshotEncoder) error {
	if e.RoomID() != rm.ID() {
		return fmt.Errorf("entity room %s does not match room %s", e.RoomID(), rm.ID())
	}

	var prior *Entity
	var encodeErr error
	rm.Hydrate(func(snap room.Snapshot) {
		data, err := encode(snap)
		if err != nil {
			encodeErr = fmt.Errorf("encoding snapshot: %w", err)
			return
		}

		m.mu.Lock()
		players := m.rooms[rm.ID()]
		if players == nil {
			players = make(map[string]*Entity)
			m.rooms[rm.ID()] = players
		}
		prior = players[e.PlayerID()]
		players[e.PlayerID()] = e
		m.mu.Unlock()

		if err := e.Push(data); err != nil {
			// Freshly created entity with an empty buffer; only a
			// concurrent close can make this fail.
			m.logger.Warn("snapshot push failed",
				zap.String("room_id", rm.ID()),
				zap.String("player_id", e.PlayerID()),
				zap.Error(err),
			)
		}
	})
	if encodeErr != nil {
		return encodeErr
	}

	if prior != nil {
		prior.Close()
		m.logger.Info("connection superseded",
			zap.String("room_id", rm.ID()),
			zap.String("player_id", e.PlayerID()),
		)
	}

	m.logger.Info("connection attached",
		zap.String("room_id", rm.ID()),
		zap.String("player_id", e.PlayerID()),
	)
	return nil
}

// Detach removes the mapping for the entity and closes it. A pair whose
// mapping now points at a different (superseding) entity is left alone.
// No-op if the entity was never attached or already detached.
func (m *Manager) Detach(e *Entity) {
	m.mu.Lock()
	removed := false
	if players, ok := m.rooms[e.RoomID()]; ok {
		if players[e.PlayerID()] == e {
			delete(players, e.PlayerID())
			removed = true
			if len(players) == 0 {
				delete(m.rooms, e.RoomID())
			}
		}
	}
	m.mu.Unlock()

	e.Close()
	if removed {
		m.logger.Info("connection detached",
			zap.String("room_id", e.RoomID()),
			zap.String("player_id", e.PlayerID()),
		)
	}
}

// DetachRoom tears down every connection attached to the room. Used when a
// room is removed from the registry.
func (m *Manager) DetachRoom(roomID string) {
	m.mu.Lock()
	players := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()

	for _, e := range players {
		e.Close()
	}
	if len(players) > 0 {
		m.logger.Info("room connections closed",
			zap.String("room_id", roomID),
			zap.Int("count", len(players)),
		)
	}
}

// Broadcast sends data to every entity attached to the room. It iterates a
// copy of the channel set taken under the manager lock, so attach/detach
// during the send loop cannot skip or duplicate a delivery. A failed push
// (closed or saturated connection) detaches that entity only; the rest
// still receive the message.
func (m *Manager) Broadcast(roomID string, data []byte) {
	m.mu.RLock()
	targets := make([]*Entity, 0, len(m.rooms[roomID]))
	for _, e := range m.rooms[roomID] {
		targets = append(targets, e)
	}
	m.mu.RUnlock()

	for _, e := range targets {
		if err := e.Push(data); err != nil {
			m.logger.Warn("dropping unreachable connection",
				zap.String("room_id", roomID),
				zap.String("player_id", e.PlayerID()),
				zap.Error(err),
			)
			m.Detach(e)
		}
	}
}

// Unicast sends data to the single entity for the pair, if attached.
//
// Postcondition: Returns false if no live connection exists for the pair.
func (m *Manager) Unicast(roomID, playerID string, data []byte) bool {
	m.mu.RLock()
	e := m.rooms[roomID][playerID]
	m.mu.RUnlock()

	if e == nil {
		return false
	}
	if err := e.Push(data); err != nil {
		m.Detach(e)
		return false
	}
	return true
}

// Count returns the number of live connections for the room.
func (m *Manager) Count(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomID])
}
