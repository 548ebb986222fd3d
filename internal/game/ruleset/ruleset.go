// Package ruleset defines the pluggable game-logic contract consumed by the
// room coordinator, the registry of installed game types, and loading of
// deck content files.
package ruleset

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// State is an opaque game-state value. The room core never inspects it; it
// is produced by a Provider and handed back to the same Provider on the
// next action.
type State = json.RawMessage

// Result is the outcome of successfully applying an action.
type Result struct {
	// State is the new authoritative game state.
	State State
	// GameOver reports whether the game reached a terminal state.
	GameOver bool
	// Winner is the winning player's ID when GameOver is true.
	Winner string
}

// Provider implements the rules of one game type.
//
// Both methods must be pure with respect to their inputs: Apply must derive
// the returned state solely from the given state and action, so the room's
// serialization discipline is the only ordering that matters.
type Provider interface {
	// Init produces the initial state for the given players, in turn order.
	//
	// Precondition: players must be non-empty and free of duplicates.
	Init(players []string) (State, error)

	// Apply validates and applies one player action.
	//
	// A game-rule refusal is returned as a *Rejection error; any other
	// error indicates a malformed state or action.
	Apply(state State, playerID string, action json.RawMessage) (Result, error)
}

// Advisor is an optional Provider extension that can propose a move for a
// player. Bot players use it; providers that cannot advise simply do not
// implement it.
type Advisor interface {
	// Suggest returns an action for the player, or ok=false if the player
	// has no move to make right now (for example, it is not their turn).
	Suggest(state State, playerID string) (action json.RawMessage, ok bool)
}

// Rejection is a game-rule refusal of an action. It is a normal outcome,
// not a system failure: callers unicast the reason to the acting player and
// leave the authoritative state untouched.
type Rejection struct {
	Reason string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("action rejected: %s", r.Reason)
}

// Reject builds a *Rejection error with a formatted reason.
func Reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// Registry maps game-type names to installed Providers.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register installs a provider under the given game-type name.
//
// Precondition: name must be non-empty; p must be non-nil.
// Postcondition: Returns an error if the name is already taken.
func (r *Registry) Register(name string, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("game type %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Lookup returns the provider for the given game-type name.
//
// Postcondition: Returns (provider, true) if installed, or (nil, false) otherwise.
func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the sorted list of installed game-type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
