package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/ruleset"
)

// Registry owns the set of all rooms: creation, lookup, listings, and the
// eviction policy. Registry mutation is a single critical section; lookups
// and listings never touch a room's internal state.
type Registry struct {
	cfg       config.RoomsConfig
	providers *ruleset.Registry
	logger    *zap.Logger

	mu          sync.RWMutex
	rooms       map[string]*Room
	order       []string
	broadcaster Broadcaster
	onRemove    func(roomID string)
}

// NewRegistry creates an empty room Registry.
//
// Precondition: providers and logger must be non-nil; cfg must be validated.
func NewRegistry(cfg config.RoomsConfig, providers *ruleset.Registry, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:       cfg,
		providers: providers,
		logger:    logger,
		rooms:     make(map[string]*Room),
	}
}

// SetBroadcaster installs the fan-out sink new rooms broadcast through.
// Must be called before rooms are created.
func (g *Registry) SetBroadcaster(b Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcaster = b
}

// SetOnRemove installs a hook invoked after a room is removed, used to tear
// down any connections still attached to it.
func (g *Registry) SetOnRemove(fn func(roomID string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onRemove = fn
}

// Create makes a new waiting room with the host joined as first player.
//
// Postcondition: Returns ErrInvalidCapacity if maxPlayers is out of range,
// or ErrUnknownGameType if no provider is registered for gameType.
func (g *Registry) Create(name, hostID string, maxPlayers int, gameType string) (*Room, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host id must not be empty")
	}
	if maxPlayers < 1 || maxPlayers > g.cfg.MaxPlayersCap {
		return nil, fmt.Errorf("%w: max_players must be 1-%d, got %d", ErrInvalidCapacity, g.cfg.MaxPlayersCap, maxPlayers)
	}
	provider, ok := g.providers.Lookup(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, gameType)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.uniqueIDLocked()
	now := time.Now()
	rm := &Room{
		id:          id,
		name:        name,
		hostID:      hostID,
		gameType:    gameType,
		maxPlayers:  maxPlayers,
		minPlayers:  g.cfg.MinPlayers,
		provider:    provider,
		createdAt:   now,
		expiresAt:   now.Add(g.cfg.TTL),
		logger:      g.logger,
		status:      StatusWaiting,
		players:     []string{hostID},
		broadcaster: g.broadcaster,
	}

	g.rooms[id] = rm
	g.order = append(g.order, id)

	g.logger.Info("room created",
		zap.String("room_id", id),
		zap.String("name", name),
		zap.String("host_id", hostID),
		zap.Int("max_players", maxPlayers),
		zap.String("game_type", gameType),
	)
	return rm, nil
}

// Get returns the room with the given ID.
//
// Postcondition: Returns ErrRoomNotFound if absent.
func (g *Registry) Get(roomID string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rm, ok := g.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// List returns room summaries in creation order. A non-empty statusFilter
// keeps only rooms whose status matches exactly.
func (g *Registry) List(statusFilter string) []Summary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.order))
	for _, id := range g.order {
		if rm, ok := g.rooms[id]; ok {
			rooms = append(rooms, rm)
		}
	}
	g.mu.RUnlock()

	summaries := make([]Summary, 0, len(rooms))
	for _, rm := range rooms {
		s := rm.Summarize()
		if statusFilter != "" && string(s.Status) != statusFilter {
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// Remove deletes the room if present. Idempotent.
func (g *Registry) Remove(roomID string) {
	g.mu.Lock()
	_, existed := g.rooms[roomID]
	delete(g.rooms, roomID)
	if existed {
		for i, id := range g.order {
			if id == roomID {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	onRemove := g.onRemove
	g.mu.Unlock()

	if existed {
		g.logger.Info("room removed", zap.String("room_id", roomID))
		if onRemove != nil {
			onRemove(roomID)
		}
	}
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Sweep removes every room the eviction policy marks as dead and returns
// how many were removed.
func (g *Registry) Sweep(now time.Time) int {
	g.mu.RLock()
	var evict []string
	for id, rm := range g.rooms {
		if rm.Evictable(now, g.cfg.EmptyGrace) {
			evict = append(evict, id)
		}
	}
	g.mu.RUnlock()

	for _, id := range evict {
		g.Remove(id)
	}
	if len(evict) > 0 {
		g.logger.Info("swept expired rooms", zap.Int("count", len(evict)))
	}
	return len(evict)
}

// RunSweeper runs the eviction sweeper until ctx is cancelled.
func (g *Registry) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep(time.Now())
		}
	}
}

// uniqueIDLocked generates a room ID not already in use. Caller holds g.mu.
func (g *Registry) uniqueIDLocked() string {
	for i := 0; i < 5; i++ {
		id := generateRoomID()
		if _, taken := g.rooms[id]; !taken {
			return id
		}
	}
	// Word collisions five times in a row: fall back to a UUID.
	return fallbackRoomID()
}
