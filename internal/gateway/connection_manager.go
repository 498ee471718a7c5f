package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/easypoll/easypoll/internal/poll"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Role distinguishes host dashboards from participant clients when routing
// broadcasts. Payloads carrying the correct answer only reach host
// connections.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleHost        Role = "host"
)

// Dispatcher consumes inbound frames from a connection.
type Dispatcher interface {
	Dispatch(conn *Connection, message []byte)
}

// ConnectionManager manages WebSocket connections grouped into poll rooms.
// A connection starts roomless and subscribes when the client sends
// joinPoll or hostJoin.
type ConnectionManager struct {
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader   websocket.Upgrader
	config     ConnectionConfig
	dispatcher Dispatcher

	broadcastCh chan broadcastMessage
}

// Connection represents one WebSocket client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Room membership and lifecycle, guarded by Manager.mu. LastPing is
	// under the same lock: the write pump and the pong handler both touch it.
	PollID   string
	Role     Role
	closed   bool
	LastPing time.Time

	ConnectedAt time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	pollID   string
	hostOnly bool
	data     []byte
}

// DefaultConnectionConfig returns the stock WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a manager with an empty room table.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// SetDispatcher wires the inbound message consumer. Must be called before
// the first upgrade.
func (cm *ConnectionManager) SetDispatcher(d Dispatcher) {
	cm.dispatcher = d
}

// Start drains the broadcast channel until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection and
// starts its pumps. The connection joins a room later, on joinPoll/hostJoin.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		Role:        RoleParticipant,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().Str("connection_id", connection.ID).Msg("WebSocket connection established")
	return nil
}

// Subscribe places a connection into a poll room with the given role,
// leaving any previous room first. Re-subscribing to the same room only
// updates the role, so a participant joining and the host view re-joining
// stay idempotent.
func (cm *ConnectionManager) Subscribe(conn *Connection, pollID string, role Role) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.PollID != "" && conn.PollID != pollID {
		cm.leaveRoomLocked(conn)
	}
	if cm.rooms[pollID] == nil {
		cm.rooms[pollID] = make(map[*Connection]bool)
	}
	cm.rooms[pollID][conn] = true
	conn.PollID = pollID
	conn.Role = role

	log.Debug().
		Str("connection_id", conn.ID).
		Str("poll_id", pollID).
		Str("role", string(role)).
		Int("room_size", len(cm.rooms[pollID])).
		Msg("connection subscribed to poll room")
}

func (cm *ConnectionManager) leaveRoomLocked(conn *Connection) {
	room, ok := cm.rooms[conn.PollID]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(cm.rooms, conn.PollID)
	}
	conn.PollID = ""
}

// unregisterConnection removes a connection on disconnect and closes its
// send channel.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn.closed {
		return
	}
	conn.closed = true
	cm.leaveRoomLocked(conn)
	close(conn.Send)

	log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
}

// BroadcastToPoll fans an event out to every connection in a poll room.
func (cm *ConnectionManager) BroadcastToPoll(pollID string, typ poll.EventType, payload any) {
	cm.enqueue(pollID, typ, payload, false)
}

// BroadcastToHosts fans an event out to host connections only.
func (cm *ConnectionManager) BroadcastToHosts(pollID string, typ poll.EventType, payload any) {
	cm.enqueue(pollID, typ, payload, true)
}

func (cm *ConnectionManager) enqueue(pollID string, typ poll.EventType, payload any, hostOnly bool) {
	event, err := newEvent(pollID, typ, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to marshal event payload")
		return
	}
	data, err := event.encode()
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to encode event")
		return
	}
	select {
	case cm.broadcastCh <- broadcastMessage{pollID: pollID, hostOnly: hostOnly, data: data}:
	default:
		log.Warn().Str("poll_id", pollID).Str("event_type", string(typ)).Msg("broadcast channel full, dropping message")
	}
}

// Reply sends an event to a single connection, bypassing the room fan-out.
func (cm *ConnectionManager) Reply(conn *Connection, pollID string, typ poll.EventType, payload any) {
	event, err := newEvent(pollID, typ, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to marshal reply payload")
		return
	}
	data, err := event.encode()
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to encode reply")
		return
	}
	cm.deliver(conn, data)
}

func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	room, ok := cm.rooms[message.pollID]
	if !ok {
		cm.mu.RUnlock()
		return
	}
	var targets []*Connection
	for conn := range room {
		if message.hostOnly && conn.Role != RoleHost {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		cm.deliver(conn, message.data)
	}
}

func (cm *ConnectionManager) deliver(conn *Connection, data []byte) {
	cm.mu.RLock()
	if conn.closed {
		cm.mu.RUnlock()
		return
	}
	select {
	case conn.Send <- data:
		cm.mu.RUnlock()
		return
	default:
	}
	cm.mu.RUnlock()

	// Slow or dead client; drop it rather than stall the room.
	log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
	cm.unregisterConnection(conn)
	conn.Conn.Close()
}

// Stats summarizes active rooms and connections.
func (cm *ConnectionManager) Stats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, room := range cm.rooms {
		totalConnections += len(room)
	}
	return totalConnections, len(cm.rooms)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
			c.touchPing()
		}
	}
}

func (c *Connection) touchPing() {
	c.Manager.mu.Lock()
	c.LastPing = time.Now()
	c.Manager.mu.Unlock()
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.touchPing()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}

		c.Manager.dispatcher.Dispatch(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
