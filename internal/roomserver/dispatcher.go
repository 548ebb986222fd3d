package roomserver

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/game/ruleset"
	"github.com/cory-johannsen/parlor/internal/room"
	"github.com/cory-johannsen/parlor/internal/session"
)

// Broadcaster adapts the session manager to the room.Broadcaster contract:
// it encodes each committed snapshot once and fans the bytes out to every
// attached connection. Rooms call it under their mutation lock, so the
// fan-out only enqueues and never blocks.
type Broadcaster struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewBroadcaster creates a Broadcaster over the given session manager.
//
// Precondition: sessions and logger must be non-nil.
func NewBroadcaster(sessions *session.Manager, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{sessions: sessions, logger: logger}
}

// Broadcast implements room.Broadcaster.
func (b *Broadcaster) Broadcast(snap room.Snapshot) {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		b.logger.Error("encoding broadcast",
			zap.String("room_id", snap.RoomID),
			zap.Uint64("version", snap.Version),
			zap.Error(err),
		)
		return
	}
	b.sessions.Broadcast(snap.RoomID, data)
}

// Dispatcher is the seam between "received from one connection" and
// "applied, then fanned out to all": it resolves the room, applies the
// action under the room's serialization discipline, and routes rejections
// back to the acting connection only. Successful actions broadcast from
// inside the room's commit, so fan-out order always matches commit order.
type Dispatcher struct {
	registry *room.Registry
	sessions *session.Manager
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher with the given dependencies.
//
// Precondition: registry, sessions, and logger must be non-nil.
func NewDispatcher(registry *room.Registry, sessions *session.Manager, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, sessions: sessions, logger: logger}
}

// Dispatch applies one player action. Failures never propagate past the
// acting connection: rejections and errors are unicast back to it.
func (d *Dispatcher) Dispatch(roomID, playerID string, payload json.RawMessage) {
	rm, err := d.registry.Get(roomID)
	if err != nil {
		d.sessions.Unicast(roomID, playerID, encodeError(err.Error()))
		return
	}

	if _, err := rm.ApplyAction(playerID, payload); err != nil {
		var rej *ruleset.Rejection
		if errors.As(err, &rej) {
			// A rule refusal is a normal outcome, not a failure.
			d.sessions.Unicast(roomID, playerID, encodeRejected(rej.Reason))
			d.logger.Debug("action rejected",
				zap.String("room_id", roomID),
				zap.String("player_id", playerID),
				zap.String("reason", rej.Reason),
			)
			return
		}
		d.sessions.Unicast(roomID, playerID, encodeError(err.Error()))
		d.logger.Debug("action failed",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
	}
}
