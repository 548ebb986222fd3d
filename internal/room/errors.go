package room

import "errors"

// Registry- and room-level error taxonomy. Conflict errors map to a
// synchronous refusal of the requested transition; none of them is fatal.
var (
	// ErrRoomNotFound is returned when a room ID resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidCapacity is returned when max_players is out of range.
	ErrInvalidCapacity = errors.New("invalid capacity")
	// ErrUnknownGameType is returned when no provider is registered for the
	// requested game type.
	ErrUnknownGameType = errors.New("unknown game type")
	// ErrRoomFull is returned when a join would exceed max_players.
	ErrRoomFull = errors.New("room full")
	// ErrAlreadyJoined is returned when the player already holds a slot.
	ErrAlreadyJoined = errors.New("player already joined")
	// ErrRoomNotJoinable is returned when the room is no longer waiting.
	ErrRoomNotJoinable = errors.New("room is not joinable")
	// ErrNotEnoughPlayers is returned when start is requested below the
	// configured minimum membership.
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	// ErrAlreadyStarted is returned when start is requested twice.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNotMember is returned when a player acts in a room they never
	// joined or have left.
	ErrNotMember = errors.New("player is not a member of this room")
	// ErrNotInProgress is returned when an action arrives before start or
	// after the game finished.
	ErrNotInProgress = errors.New("game is not in progress")
)
