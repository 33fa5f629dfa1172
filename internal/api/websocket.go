package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/sensor"
	"github.com/smokesense/smokesense-core/internal/service"
)

// WebSocket message types.
const (
	// Server to client.
	WSTypeInitialState = "initial-state"
	WSTypeError        = "error"
	WSTypeAck          = "ack"

	// Client to server commands.
	WSCmdResetAlarm         = "reset-alarm"
	WSCmdUpdateThreshold    = "update-threshold"
	WSCmdSilenceAlarm       = "silence-alarm"
	WSCmdTestAlarm          = "test-alarm"
	WSCmdTriggerRoomAlarm   = "trigger-room-alarm"
	WSCmdTriggerGlobalAlarm = "trigger-global-alarm"
	WSCmdResetRoomStatus    = "reset-room-status"
	WSCmdResetGlobalStatus  = "reset-global-status"
	WSCmdSetManualSmoke     = "set-manual-smoke-level"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// wsCommand is a command message from a dashboard client.
type wsCommand struct {
	Type      string   `json:"type"`
	RoomID    string   `json:"roomId,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Level     *float64 `json:"smokeLevel,omitempty"`
}

// initialState is the first message every client receives: the full sensor
// snapshot and the static room registry.
type initialState struct {
	Type  string          `json:"type"`
	Data  []sensor.Record `json:"data"`
	Rooms []sensor.Room   `json:"rooms"`
}

// Hub manages WebSocket connections and fans out state updates. It
// implements service.Broadcaster.
//
// Ordering guarantee: Register enqueues the initial-state snapshot while
// holding the hub lock, before the client joins the broadcast set, and
// Broadcast sends under the read lock. A client therefore always receives
// the snapshot before any update that post-dates it.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	service *service.Service
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected dashboard client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, svc *service.Service) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run starts the hub's main loop. It blocks until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub, queueing the initial-state snapshot
// ahead of any broadcast.
func (h *Hub) Register(client *WSClient) {
	msg := initialState{
		Type:  WSTypeInitialState,
		Data:  h.service.Snapshot(),
		Rooms: h.service.Rooms(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal initial state", "error", err)
		return
	}

	h.mu.Lock()
	client.trySend(data)
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast sends a message to every connected client. Sends are
// non-blocking: a client whose buffer is full misses the message rather
// than stalling the rest.
func (h *Hub) Broadcast(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		client.trySend(data)
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	client := &WSClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads command messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming command message. State changes flow
// back to this client through the normal broadcast path; here we only
// acknowledge or report errors.
func (c *WSClient) handleMessage(data []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.sendError("invalid JSON message")
		return
	}

	if err := c.dispatch(cmd); err != nil {
		c.hub.logger.Warn("websocket command failed",
			"type", cmd.Type,
			"room_id", cmd.RoomID,
			"error", err,
		)
		c.sendError(err.Error())
		return
	}
	c.sendAck(cmd.Type)
}

// dispatch routes a command to the service.
func (c *WSClient) dispatch(cmd wsCommand) error {
	ctx := context.Background()
	svc := c.hub.service

	switch cmd.Type {
	case WSCmdResetAlarm:
		_, err := svc.ResetAlarm(ctx, cmd.RoomID, service.SourceWebSocket)
		return err

	case WSCmdUpdateThreshold:
		if cmd.Threshold == nil {
			return errMissingField("threshold")
		}
		_, err := svc.UpdateThreshold(ctx, cmd.RoomID, *cmd.Threshold, service.SourceWebSocket)
		return err

	case WSCmdSilenceAlarm:
		return svc.SilenceAlarm(ctx, cmd.RoomID, service.SourceWebSocket)

	case WSCmdTestAlarm:
		_, err := svc.TestAlarm(ctx, cmd.RoomID, service.SourceWebSocket)
		return err

	case WSCmdTriggerRoomAlarm:
		_, err := svc.TriggerRoomAlarm(ctx, cmd.RoomID, service.SourceWebSocket)
		return err

	case WSCmdTriggerGlobalAlarm:
		return svc.TriggerGlobalAlarm(ctx, service.SourceWebSocket)

	case WSCmdResetRoomStatus:
		_, err := svc.ResetRoom(ctx, cmd.RoomID, service.SourceWebSocket)
		return err

	case WSCmdResetGlobalStatus:
		return svc.ResetGlobal(ctx, service.SourceWebSocket)

	case WSCmdSetManualSmoke:
		if cmd.Level == nil {
			return errMissingField("smokeLevel")
		}
		_, err := svc.SetSmokeLevel(ctx, cmd.RoomID, *cmd.Level, service.SourceWebSocket)
		return err

	default:
		return errUnknownCommand(cmd.Type)
	}
}

// errMissingField reports a command missing a required field.
func errMissingField(field string) error {
	return fmt.Errorf("%s is required", field)
}

// errUnknownCommand reports an unrecognised command type.
func errUnknownCommand(cmdType string) error {
	return fmt.Errorf("unknown command type: %s", cmdType)
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during broadcast)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendAck confirms a command was accepted.
func (c *WSClient) sendAck(cmdType string) {
	c.sendTyped(WSTypeAck, map[string]string{"command": cmdType})
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(message string) {
	c.sendTyped(WSTypeError, map[string]string{"message": message})
}

// sendTyped marshals and queues a typed message for this client only.
func (c *WSClient) sendTyped(msgType string, payload map[string]string) {
	body := map[string]any{
		"type":      msgType,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	c.trySend(data)
}
