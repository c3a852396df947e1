package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"taskroom/internal/domain"
	"taskroom/internal/service"
	apperrors "taskroom/pkg/errors"
	"taskroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WebSocketHandler struct {
	syncService service.SyncService
	authService service.AuthService
	log         logger.Logger
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(syncService service.SyncService, authService service.AuthService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		syncService: syncService,
		authService: authService,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ClientCommand is a mutation request sent over the socket. Results come
// back as snapshot events; failures as error events.
type ClientCommand struct {
	Action      string  `json:"action"`
	TaskID      string  `json:"task_id,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
	AssignedTo  string  `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Content     string  `json:"content,omitempty"`
}

// RoomStream authenticates the caller, opens a room session and streams
// snapshot events until the client disconnects. Browsers cannot set an
// Authorization header on a WebSocket upgrade, so the token rides in the
// query string.
func (h *WebSocketHandler) RoomStream(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	session, err := h.syncService.OpenRoom(c.Request.Context(), roomID, user.ID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		session.Close()
		h.log.Error("WebSocket upgrade failed", "error", err, "room_id", roomID)
		return
	}

	h.log.Info("Room stream opened", "room_id", roomID, "user_id", user.ID)

	events, unlisten := session.Listen()
	done := make(chan struct{})

	go h.writePump(conn, session, events, done)
	h.readPump(c, conn, session)

	close(done)
	unlisten()
	session.Close()
	conn.Close()
	h.log.Info("Room stream closed", "room_id", roomID, "user_id", user.ID)
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, session *service.RoomSession, events <-chan service.SnapshotEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// The room document is fetched once per session; push it first so the
	// client renders metadata before either collection arrives.
	initial := service.SnapshotEvent{Type: "room", Room: session.Room()}
	if err := h.writeEvent(conn, initial); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := h.writeEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeEvent(conn *websocket.Conn, event service.SnapshotEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

func (h *WebSocketHandler) readPump(c *gin.Context, conn *websocket.Conn, session *service.RoomSession) {
	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		h.handleCommand(c, session, &cmd)
	}
}

// handleCommand runs a mutation through the session. Mutation failures are
// recorded on the session and pushed as error events, never returned here.
func (h *WebSocketHandler) handleCommand(c *gin.Context, session *service.RoomSession, cmd *ClientCommand) {
	ctx := c.Request.Context()

	switch cmd.Action {
	case "add_task":
		assignedTo, err := uuid.Parse(cmd.AssignedTo)
		if err != nil {
			return
		}
		draft := &domain.TaskDraft{
			Title:       cmd.Title,
			Description: cmd.Description,
			Status:      domain.TaskStatus(cmd.Status),
			AssignedTo:  assignedTo,
		}
		if cmd.DueDate != nil && *cmd.DueDate != "" {
			if due, err := parseDueDate(*cmd.DueDate); err == nil {
				draft.DueDate = due
			}
		}
		session.AddTask(ctx, draft)

	case "update_task_status":
		taskID, err := uuid.Parse(cmd.TaskID)
		if err != nil {
			return
		}
		session.UpdateTaskStatus(ctx, taskID, domain.TaskStatus(cmd.Status))

	case "edit_task":
		taskID, err := uuid.Parse(cmd.TaskID)
		if err != nil {
			return
		}
		patch := &domain.TaskPatch{}
		if cmd.Title != "" {
			patch.Title = &cmd.Title
		}
		if cmd.Description != "" {
			patch.Description = &cmd.Description
		}
		if cmd.Status != "" {
			status := domain.TaskStatus(cmd.Status)
			patch.Status = &status
		}
		if cmd.AssignedTo != "" {
			if assignedTo, err := uuid.Parse(cmd.AssignedTo); err == nil {
				patch.AssignedTo = &assignedTo
			}
		}
		if cmd.DueDate != nil {
			if *cmd.DueDate == "" {
				patch.ClearDueDate = true
			} else if due, err := parseDueDate(*cmd.DueDate); err == nil {
				patch.DueDate = due
			}
		}
		session.EditTask(ctx, taskID, patch)

	case "delete_task":
		taskID, err := uuid.Parse(cmd.TaskID)
		if err != nil {
			return
		}
		session.DeleteTask(ctx, taskID)

	case "send_message":
		session.SendMessage(ctx, cmd.Content)

	default:
		h.log.Debug("Unknown stream command", "action", cmd.Action)
	}
}
