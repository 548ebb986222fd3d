package roomserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/session"
)

// handleWS upgrades the request and runs the streaming session for one
// (room, player) pair. Membership is checked before the upgrade so a
// non-member gets a plain HTTP refusal instead of a dangling socket.
func (h *Handlers) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	playerID := r.PathValue("player_id")

	rm, err := h.registry.Get(roomID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !rm.IsMember(playerID) {
		h.writeJSONError(w, http.StatusForbidden,
			fmt.Errorf("player %s is not a member of room %s", playerID, roomID))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
		return
	}

	e := session.NewEntity(roomID, playerID, h.sessionCfg.SendBuffer)
	if err := h.sessions.Attach(rm, e, EncodeSnapshot); err != nil {
		h.logger.Error("attach failed",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
		_ = conn.Close()
		return
	}

	// Writer: drain the entity's outbound channel onto the socket. Exits
	// when the entity closes (detach, supersession, room removal) or a
	// write fails, and then tears the socket down so the read loop unblocks.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for data := range e.Outbound() {
			_ = conn.SetWriteDeadline(time.Now().Add(h.sessionCfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed",
					zap.String("room_id", roomID),
					zap.String("player_id", playerID),
					zap.Error(err),
				)
				return
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(h.sessionCfg.WriteTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	h.readLoop(conn, rm.ID(), playerID, e)
	// Detach closes the entity, which ends the writer's drain loop.
	h.sessions.Detach(e)
	<-writerDone
}

// readLoop consumes client messages until the connection dies or the client
// leaves. A read error only ends this session; the room keeps running.
func (h *Handlers) readLoop(conn *websocket.Conn, roomID, playerID string, e *session.Entity) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(h.sessionCfg.IdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("websocket closed",
				zap.String("room_id", roomID),
				zap.String("player_id", playerID),
				zap.Error(err),
			)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = e.Push(encodeError("malformed message: " + err.Error()))
			continue
		}

		switch msg.Type {
		case TypeAction:
			h.dispatcher.Dispatch(roomID, playerID, msg.Payload)
		case TypeLeave:
			rm, err := h.registry.Get(roomID)
			if err == nil {
				if err := rm.Leave(playerID); err != nil {
					h.logger.Debug("leave failed",
						zap.String("room_id", roomID),
						zap.String("player_id", playerID),
						zap.Error(err),
					)
				}
			}
			return
		default:
			_ = e.Push(encodeError("unknown message type: " + msg.Type))
		}
	}
}
