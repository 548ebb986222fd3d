// Package room implements the room registry and per-room state
// synchronization: membership, the authoritative game state, and the
// serialization discipline that orders every mutation and broadcast.
package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/game/ruleset"
)

// Status is a room's lifecycle phase.
type Status string

const (
	// StatusWaiting means the room accepts joins and has not started.
	StatusWaiting Status = "waiting"
	// StatusInProgress means the game is running and accepts actions.
	StatusInProgress Status = "in_progress"
	// StatusFinished means game logic signalled a terminal state.
	StatusFinished Status = "finished"
)

// Snapshot is the room state handed to connections: the current
// authoritative game state plus membership, stamped with the commit version.
type Snapshot struct {
	RoomID  string
	Status  Status
	Players []string
	State   ruleset.State
	Version uint64
}

// Broadcaster fans a committed snapshot out to every connection attached to
// the room. Rooms invoke it while holding their mutation lock, so
// implementations must only enqueue, never block.
type Broadcaster interface {
	Broadcast(snap Snapshot)
}

// Room owns one game's membership, status, and authoritative state.
// Every mutation runs under the room's lock; no two actions are ever
// applied concurrently to the same state.
type Room struct {
	id         string
	name       string
	hostID     string
	gameType   string
	maxPlayers int
	minPlayers int
	provider   ruleset.Provider
	createdAt  time.Time
	expiresAt  time.Time
	logger     *zap.Logger

	mu          sync.Mutex
	status      Status
	players     []string
	state       ruleset.State
	version     uint64
	emptySince  time.Time
	broadcaster Broadcaster
}

// ID returns the room's opaque unique identifier.
func (r *Room) ID() string { return r.id }

// Name returns the room's display name.
func (r *Room) Name() string { return r.name }

// HostID returns the creator's player ID.
func (r *Room) HostID() string { return r.hostID }

// GameType returns the game type selected at creation.
func (r *Room) GameType() string { return r.gameType }

// MaxPlayers returns the room's capacity.
func (r *Room) MaxPlayers() int { return r.maxPlayers }

// Provider returns the game-logic provider bound at creation.
func (r *Room) Provider() ruleset.Provider { return r.provider }

// CreatedAt returns the creation timestamp.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Status returns the current lifecycle phase.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Players returns the membership in join order.
func (r *Room) Players() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.players...)
}

// Version returns the current commit counter.
func (r *Room) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// IsMember reports whether the player currently holds a slot.
func (r *Room) IsMember(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberIndex(playerID) >= 0
}

// Join adds the player to the membership. The change is committed and
// broadcast so already-attached connections see the new roster.
//
// Postcondition: Returns ErrRoomNotJoinable if the room is past waiting,
// ErrAlreadyJoined if the player holds a slot, or ErrRoomFull at capacity.
func (r *Room) Join(playerID string) error {
	if playerID == "" {
		return fmt.Errorf("player id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting {
		return ErrRoomNotJoinable
	}
	if r.memberIndex(playerID) >= 0 {
		return ErrAlreadyJoined
	}
	if len(r.players) >= r.maxPlayers {
		return ErrRoomFull
	}

	r.players = append(r.players, playerID)
	r.emptySince = time.Time{}
	r.commitLocked()
	r.logger.Info("player joined",
		zap.String("room_id", r.id),
		zap.String("player_id", playerID),
		zap.Int("players", len(r.players)),
	)
	return nil
}

// Start transitions the room from waiting to in_progress, computes the
// initial state via the provider, and broadcasts it.
//
// Postcondition: Returns ErrAlreadyStarted if the room left waiting, or
// ErrNotEnoughPlayers below the configured minimum. A second concurrent
// Start never double-initializes the state.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(r.players) < r.minPlayers {
		return ErrNotEnoughPlayers
	}

	state, err := r.provider.Init(append([]string(nil), r.players...))
	if err != nil {
		return fmt.Errorf("initializing game state: %w", err)
	}

	r.state = state
	r.status = StatusInProgress
	r.commitLocked()
	r.logger.Info("game started",
		zap.String("room_id", r.id),
		zap.Int("players", len(r.players)),
		zap.String("game_type", r.gameType),
	)
	return nil
}

// ApplyAction is the core synchronization primitive: it validates the
// player, applies the action through the provider under the room lock, and
// on success atomically commits and broadcasts the new state.
//
// Postcondition: Returns the committed snapshot, a *ruleset.Rejection when
// game logic refuses the action (state untouched, nothing broadcast), or a
// membership/status error.
func (r *Room) ApplyAction(playerID string, action json.RawMessage) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberIndex(playerID) < 0 {
		return Snapshot{}, ErrNotMember
	}
	if r.status != StatusInProgress {
		return Snapshot{}, ErrNotInProgress
	}

	res, err := r.provider.Apply(r.state, playerID, action)
	if err != nil {
		return Snapshot{}, err
	}

	r.state = res.State
	if res.GameOver {
		r.status = StatusFinished
		r.logger.Info("game finished",
			zap.String("room_id", r.id),
			zap.String("winner", res.Winner),
		)
	}
	return r.commitLocked(), nil
}

// Leave removes the player from membership. An in-progress game keeps
// running; when the last member leaves, the eviction grace period starts.
//
// Postcondition: Returns ErrNotMember if the player holds no slot. The
// membership change is committed and broadcast to remaining connections.
func (r *Room) Leave(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.memberIndex(playerID)
	if i < 0 {
		return ErrNotMember
	}

	r.players = append(r.players[:i], r.players[i+1:]...)
	if len(r.players) == 0 {
		r.emptySince = time.Now()
	}
	r.commitLocked()
	r.logger.Info("player left",
		zap.String("room_id", r.id),
		zap.String("player_id", playerID),
		zap.Int("players", len(r.players)),
	)
	return nil
}

// Snapshot returns the current state and membership under the room lock.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Hydrate runs fn with the current snapshot while holding the room lock.
// Connection attach uses it so that registering the channel and sending the
// first snapshot are atomic with respect to mutations: no broadcast
// committed after the snapshot can be missed, and none before it can be
// delivered twice.
func (r *Room) Hydrate(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.snapshotLocked())
}

// Evictable reports whether the eviction policy should remove the room:
// either it has been empty longer than grace, or its absolute TTL passed.
func (r *Room) Evictable(now time.Time, grace time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.emptySince.IsZero() && now.Sub(r.emptySince) >= grace {
		return true
	}
	return now.After(r.expiresAt)
}

// Summary describes the room for listings, without exposing game state.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HostID      string `json:"host_id"`
	Status      Status `json:"status"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	GameType    string `json:"game_type"`
}

// Summarize returns the room's listing entry.
func (r *Room) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:          r.id,
		Name:        r.name,
		HostID:      r.hostID,
		Status:      r.status,
		PlayerCount: len(r.players),
		MaxPlayers:  r.maxPlayers,
		GameType:    r.gameType,
	}
}

// commitLocked bumps the version and broadcasts the resulting snapshot.
// Caller must hold r.mu; the broadcast therefore happens in commit order.
func (r *Room) commitLocked() Snapshot {
	r.version++
	snap := r.snapshotLocked()
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(snap)
	}
	return snap
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		RoomID:  r.id,
		Status:  r.status,
		Players: append([]string(nil), r.players...),
		State:   r.state,
		Version: r.version,
	}
}

func (r *Room) memberIndex(playerID string) int {
	for i, p := range r.players {
		if p == playerID {
			return i
		}
	}
	return -1
}
