// Package bot runs server-side players. A bot holds a normal room slot and a
// normal streaming attachment; it reacts to state broadcasts by asking the
// room's game logic for a move and dispatching it like any other player.
package bot

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/game/ruleset"
	"github.com/cory-johannsen/parlor/internal/room"
	"github.com/cory-johannsen/parlor/internal/roomserver"
	"github.com/cory-johannsen/parlor/internal/session"
)

// Dispatcher submits a player action into a room's serialization path.
type Dispatcher interface {
	Dispatch(roomID, playerID string, payload json.RawMessage)
}

// Runner creates and drives bot players.
type Runner struct {
	registry   *room.Registry
	sessions   *session.Manager
	dispatcher Dispatcher
	sendBuffer int
	logger     *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: registry, sessions, dispatcher, and logger must be non-nil.
func NewRunner(registry *room.Registry, sessions *session.Manager, dispatcher Dispatcher, sendBuffer int, logger *zap.Logger) *Runner {
	return &Runner{
		registry:   registry,
		sessions:   sessions,
		dispatcher: dispatcher,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

// AddBot joins a bot into the room and starts its play loop.
//
// Postcondition: Returns the bot's player ID, or the join/attach error. The
// loop runs until the room finishes or the bot's attachment is closed.
func (r *Runner) AddBot(roomID string) (string, error) {
	rm, err := r.registry.Get(roomID)
	if err != nil {
		return "", err
	}

	advisor, ok := rm.Provider().(ruleset.Advisor)
	if !ok {
		return "", fmt.Errorf("game type %s does not support bots", rm.GameType())
	}

	botID := "bot-" + uuid.NewString()[:8]
	if err := rm.Join(botID); err != nil {
		return "", err
	}

	e := session.NewEntity(roomID, botID, r.sendBuffer)
	if err := r.sessions.Attach(rm, e, roomserver.EncodeSnapshot); err != nil {
		// Roll the slot back so the room is not stuck waiting on a
		// player that will never act.
		_ = rm.Leave(botID)
		return "", err
	}

	r.logger.Info("bot added",
		zap.String("room_id", roomID),
		zap.String("bot_id", botID),
	)
	go r.run(e, advisor, botID)
	return botID, nil
}

// run is the bot's play loop: consume state broadcasts, and whenever the
// advisor has a move for the bot, dispatch it. Exits when the attachment
// closes (detach, supersession, room removal) or the game reaches a terminal
// status.
func (r *Runner) run(e *session.Entity, advisor ruleset.Advisor, botID string) {
	defer r.sessions.Detach(e)

	for data := range e.Outbound() {
		var msg roomserver.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != roomserver.TypeState {
			continue
		}
		if msg.Status == string(room.StatusFinished) {
			r.logger.Info("bot retiring, game finished",
				zap.String("room_id", e.RoomID()),
				zap.String("bot_id", botID),
			)
			return
		}
		if msg.Status != string(room.StatusInProgress) || len(msg.State) == 0 {
			continue
		}

		action, ok := advisor.Suggest(msg.State, botID)
		if !ok {
			continue
		}
		r.dispatcher.Dispatch(e.RoomID(), botID, action)
	}
}
