// Package gateway owns the WebSocket boundary: connection lifecycle,
// message decoding and routing into room actors. Text frames carry JSON
// envelopes from the codec package.
package gateway

import (
	"log"
	"net/http"
	"sync"
	"time"

	"speed-lite/apps/server/internal/codec"
	"speed-lite/apps/server/internal/lobby"
	"speed-lite/apps/server/internal/room"
	"speed-lite/speed/bot"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	// Current room association
	mu   sync.Mutex
	room *room.Room
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	lobby       *lobby.Lobby
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
	}
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
	}

	g.mu.Lock()
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", c.ID, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.leaveRoom()
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	env, err := codec.DecodeClient(data)
	if err != nil {
		log.Printf("[Gateway] Failed to decode from %s: %v", c.ID, err)
		c.sendError("BadMessage", "invalid message format")
		return
	}

	switch env.Type {
	case codec.ClientCreateRoom:
		c.handleCreateRoom(env)
	case codec.ClientJoinRoom:
		c.handleJoinRoom(env)
	case codec.ClientQuickMatch:
		c.handleQuickMatch(env)
	case codec.ClientUpdateName:
		c.handleUpdateName(env)
	case codec.ClientRequestBot:
		c.handleRequestBot(env)
	case codec.ClientStartGame:
		c.submitOrError(room.Event{Type: room.EventStart, ConnID: c.ID})
	case codec.ClientPlayCard:
		c.handlePlayCard(env)
	case codec.ClientPickup:
		c.submitOrError(room.Event{Type: room.EventPickup, ConnID: c.ID})
	case codec.ClientTopUp:
		c.submitOrError(room.Event{Type: room.EventTopUp, ConnID: c.ID})
	case codec.ClientPosition:
		c.handlePosition(env)
	}
}

func (c *Connection) handleCreateRoom(env codec.ClientEnvelope) {
	if c.currentRoom() != nil {
		c.sendError("AlreadyInRoom", "leave the current room first")
		return
	}

	req, ok := c.joinPayload(env, "create_room")
	if !ok {
		return
	}

	rm, err := c.Gateway.lobby.CreateRoom(c.Gateway.deliver)
	if err != nil {
		c.sendError("Internal", "failed to create room")
		return
	}
	c.setRoom(rm)

	if err := rm.SubmitEvent(room.Event{
		Type:     room.EventJoin,
		ConnID:   c.ID,
		PlayerID: req.PlayerID,
		Name:     req.Name,
	}); err != nil {
		c.sendEngineError(err)
	}
}

func (c *Connection) handleQuickMatch(env codec.ClientEnvelope) {
	if c.currentRoom() != nil {
		c.sendError("AlreadyInRoom", "leave the current room first")
		return
	}

	req, ok := c.joinPayload(env, "quick_match")
	if !ok {
		return
	}

	rm, err := c.Gateway.lobby.QuickMatch(c.Gateway.deliver)
	if err != nil {
		c.sendError("Internal", "failed to find a room")
		return
	}
	c.setRoom(rm)

	if err := rm.SubmitEvent(room.Event{
		Type:     room.EventJoin,
		ConnID:   c.ID,
		PlayerID: req.PlayerID,
		Name:     req.Name,
	}); err != nil {
		c.sendEngineError(err)
	}
}

func (c *Connection) handleJoinRoom(env codec.ClientEnvelope) {
	if c.currentRoom() != nil {
		c.sendError("AlreadyInRoom", "leave the current room first")
		return
	}

	req, ok := c.joinPayload(env, "join_room")
	if !ok {
		return
	}

	rm := c.Gateway.lobby.GetRoom(env.Room)
	if rm == nil {
		c.sendError("RoomNotFound", "no room with that code")
		return
	}
	c.setRoom(rm)

	if err := rm.SubmitEvent(room.Event{
		Type:     room.EventJoin,
		ConnID:   c.ID,
		PlayerID: req.PlayerID,
		Name:     req.Name,
	}); err != nil {
		c.sendEngineError(err)
	}
}

// joinPayload decodes the optional name/playerId payload carried by
// create_room and join_room. An absent payload is a nameless guest.
func (c *Connection) joinPayload(env codec.ClientEnvelope, kind string) (codec.JoinRoomRequest, bool) {
	if len(env.Data) == 0 {
		return codec.JoinRoomRequest{}, true
	}
	req, err := env.JoinRoom()
	if err != nil {
		c.sendError("BadMessage", "invalid "+kind+" payload")
		return codec.JoinRoomRequest{}, false
	}
	return req, true
}

func (c *Connection) handleUpdateName(env codec.ClientEnvelope) {
	req, err := env.UpdateName()
	if err != nil {
		c.sendError("BadMessage", "invalid update_name payload")
		return
	}
	c.submitOrError(room.Event{Type: room.EventRename, ConnID: c.ID, Name: req.Name})
}

func (c *Connection) handleRequestBot(env codec.ClientEnvelope) {
	req, err := env.RequestBot()
	if err != nil {
		c.sendError("BadMessage", "invalid request_bot payload")
		return
	}
	difficulty, err := bot.ParseDifficulty(req.Difficulty)
	if err != nil {
		c.sendError("BadMessage", "unknown difficulty")
		return
	}
	c.submitOrError(room.Event{Type: room.EventAddBot, ConnID: c.ID, Difficulty: difficulty})
}

func (c *Connection) handlePlayCard(env codec.ClientEnvelope) {
	req, err := env.PlayCard()
	if err != nil {
		c.sendError("BadMessage", "invalid play_card payload")
		return
	}
	c.submitOrError(room.Event{
		Type:    room.EventPlay,
		ConnID:  c.ID,
		Card:    codec.CardFromID(req.CardID),
		Pile:    req.Pile,
		SeenTop: codec.CardFromID(req.SeenTop),
	})
}

// handlePosition forwards drag hints without touching the room actor.
func (c *Connection) handlePosition(env codec.ClientEnvelope) {
	upd, err := env.Position()
	if err != nil {
		return // ephemeral, not worth an error round-trip
	}
	rm := c.currentRoom()
	if rm == nil {
		return
	}
	rm.RelayPosition(c.ID, upd)
}

// submitOrError routes an event to this connection's room. Rejections come
// back only to the proposing connection.
func (c *Connection) submitOrError(e room.Event) {
	rm := c.currentRoom()
	if rm == nil {
		c.sendError("NotInRoom", "join a room first")
		return
	}
	if err := rm.SubmitEvent(e); err != nil {
		c.sendEngineError(err)
	}
}

func (c *Connection) currentRoom() *room.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room != nil && c.room.IsClosed() {
		c.room = nil
	}
	return c.room
}

func (c *Connection) setRoom(rm *room.Room) {
	c.mu.Lock()
	c.room = rm
	c.mu.Unlock()
}

func (c *Connection) leaveRoom() {
	c.mu.Lock()
	rm := c.room
	c.room = nil
	c.mu.Unlock()

	if rm == nil || rm.IsClosed() {
		return
	}
	_ = rm.SubmitEvent(room.Event{Type: room.EventLeave, ConnID: c.ID})
}

func (c *Connection) sendEngineError(err error) {
	c.sendError(codec.ReasonFor(err), err.Error())
}

func (c *Connection) sendError(reason, msg string) {
	roomCode := ""
	if rm := c.currentRoom(); rm != nil {
		roomCode = rm.Code
	}
	data, err := codec.Encode(codec.ServerError, roomCode, 0, codec.ErrorResponse{
		Reason:  reason,
		Message: msg,
	})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// deliver sends an encoded message to a specific connection
func (g *Gateway) deliver(connID string, data []byte) {
	g.mu.RLock()
	c := g.connections[connID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
			// Drop if buffer full
		}
	}
}
