package roomserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/room"
	"github.com/cory-johannsen/parlor/internal/session"
)

// defaultMaxPlayers is used when a create request omits max_players.
const defaultMaxPlayers = 4

// BotAdder joins a bot player into a waiting room.
type BotAdder interface {
	AddBot(roomID string) (botID string, err error)
}

// Handlers serves the REST room-management surface and the WebSocket
// streaming surface.
type Handlers struct {
	serverCfg       config.ServerConfig
	sessionCfg      config.SessionConfig
	registry        *room.Registry
	sessions        *session.Manager
	dispatcher      *Dispatcher
	bots            BotAdder
	defaultGameType string
	logger          *zap.Logger
	upgrader        websocket.Upgrader
}

// NewHandlers creates the HTTP handler set.
//
// Precondition: registry, sessions, dispatcher, and logger must be non-nil;
// bots may be nil (the bot endpoint then responds 404).
func NewHandlers(
	cfg config.Config,
	registry *room.Registry,
	sessions *session.Manager,
	dispatcher *Dispatcher,
	bots BotAdder,
	defaultGameType string,
	logger *zap.Logger,
) *Handlers {
	allowed := cfg.Server.AllowedOrigin
	return &Handlers{
		serverCfg:       cfg.Server,
		sessionCfg:      cfg.Session,
		registry:        registry,
		sessions:        sessions,
		dispatcher:      dispatcher,
		bots:            bots,
		defaultGameType: defaultGameType,
		logger:          logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowed == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowed
			},
		},
	}
}

// Register installs all routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /rooms", h.handleCreateRoom)
	mux.HandleFunc("GET /rooms", h.handleListRooms)
	mux.HandleFunc("POST /rooms/{room_id}/join", h.handleJoinRoom)
	mux.HandleFunc("GET /join/{room_id}", h.handleJoinLink)
	mux.HandleFunc("POST /rooms/{room_id}/start", h.handleStartRoom)
	mux.HandleFunc("POST /rooms/{room_id}/bots", h.handleAddBot)
	mux.HandleFunc("GET /player_id", h.handlePlayerID)
	mux.HandleFunc("GET /ws/game/{room_id}/{player_id}", h.handleWS)
}

type createRoomRequest struct {
	Name       string `json:"name"`
	HostID     string `json:"host_id"`
	MaxPlayers int    `json:"max_players"`
	GameType   string `json:"game_type"`
}

type roomDescriptor struct {
	room.Summary
	ShareableLink string `json:"shareable_link"`
}

func (h *Handlers) describe(s room.Summary) roomDescriptor {
	return roomDescriptor{
		Summary:       s,
		ShareableLink: fmt.Sprintf("%s/join/%s", strings.TrimRight(h.serverCfg.BaseURL, "/"), s.ID),
	}
}

func (h *Handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.HostID == "" {
		h.writeJSONError(w, http.StatusBadRequest, errors.New("host_id must not be empty"))
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = defaultMaxPlayers
	}
	if req.GameType == "" {
		req.GameType = h.defaultGameType
	}

	rm, err := h.registry.Create(req.Name, req.HostID, req.MaxPlayers, req.GameType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, h.describe(rm.Summarize()))
}

func (h *Handlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List(r.URL.Query().Get("status"))
	descriptors := make([]roomDescriptor, 0, len(summaries))
	for _, s := range summaries {
		descriptors = append(descriptors, h.describe(s))
	}
	h.writeJSON(w, http.StatusOK, descriptors)
}

type joinRoomRequest struct {
	PlayerID string `json:"player_id"`
}

func (h *Handlers) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	h.join(w, r.PathValue("room_id"), req.PlayerID)
}

// handleJoinLink serves the shareable-link form of join, with the player ID
// in the query string.
func (h *Handlers) handleJoinLink(w http.ResponseWriter, r *http.Request) {
	h.join(w, r.PathValue("room_id"), r.URL.Query().Get("player_id"))
}

func (h *Handlers) join(w http.ResponseWriter, roomID, playerID string) {
	if playerID == "" {
		h.writeJSONError(w, http.StatusBadRequest, errors.New("player_id must not be empty"))
		return
	}
	rm, err := h.registry.Get(roomID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := rm.Join(playerID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "room_id": roomID})
}

func (h *Handlers) handleStartRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.registry.Get(r.PathValue("room_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := rm.Start(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handlers) handleAddBot(w http.ResponseWriter, r *http.Request) {
	if h.bots == nil {
		h.writeJSONError(w, http.StatusNotFound, errors.New("bots are not enabled"))
		return
	}
	botID, err := h.bots.AddBot(r.PathValue("room_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "bot_id": botID})
}

func (h *Handlers) handlePlayerID(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"player_id": uuid.NewString()})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("writing response", zap.Error(err))
	}
}

func (h *Handlers) writeJSONError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeError maps the room error taxonomy onto HTTP statuses: not-found to
// 404, bad input to 400, conflicts to 409.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrInvalidCapacity),
		errors.Is(err, room.ErrUnknownGameType):
		status = http.StatusBadRequest
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrAlreadyJoined),
		errors.Is(err, room.ErrRoomNotJoinable),
		errors.Is(err, room.ErrNotEnoughPlayers),
		errors.Is(err, room.ErrAlreadyStarted),
		errors.Is(err, room.ErrNotMember),
		errors.Is(err, room.ErrNotInProgress):
		status = http.StatusConflict
	}
	h.writeJSONError(w, status, err)
}
