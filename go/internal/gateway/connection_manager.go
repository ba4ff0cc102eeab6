package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/store"
	"github.com/mcdev12/courtside/go/internal/viewer"
)

// Role is what a viewer connection may do
type Role string

const (
	RoleSpectator Role = "spectator"
	RoleTablet    Role = "tablet"
	RoleHost      Role = "host"
)

// ParseRole defaults to spectator when no role is given. Roles are advisory and unauthenticated.
func ParseRole(v string) (Role, error) {
	switch Role(v) {
	case "", RoleSpectator:
		return RoleSpectator, nil
	case RoleTablet, RoleHost:
		return Role(v), nil
	}
	return "", fmt.Errorf("unknown role %q", v)
}

// CanCommand reports whether the role may send commands
func (r Role) CanCommand() bool {
	return r == RoleTablet || r == RoleHost
}

// errUpgradeFailed means the upgrader has already written the HTTP error
var errUpgradeFailed = errors.New("failed to upgrade connection")

// DocumentSource is where match documents are read and watched from
type DocumentSource interface {
	Read(ctx context.Context, code string) (*models.MatchDocument, error)
	Subscribe(ctx context.Context, code string, onChange store.ChangeFunc) (func(), error)
}

// CommandExecutor applies commands sent by tablet and host connections
type CommandExecutor interface {
	Execute(ctx context.Context, code string, cmd match.Command) (*models.MatchDocument, error)
}

// ConnectionManager manages viewer websocket connections and one store
// subscription per watched match
type ConnectionManager struct {
	// Connection pools organized by match code
	matchConnections map[string]map[*Connection]bool
	mu               sync.RWMutex

	feeds   map[string]*matchFeed
	feedsMu sync.Mutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	source   DocumentSource
	executor CommandExecutor
	rules    match.Ruleset
	metrics  *metrics.Recorder

	broadcastCh chan BroadcastMessage
}

// matchFeed is the shared mirror of one match, alive while anyone watches it
type matchFeed struct {
	refs           int
	mirror         *viewer.Mirror
	unsubscribe    func()
	removeListener func()
}

// Connection represents a WebSocket connection to a viewer
type Connection struct {
	ID        string
	Code      string
	Role      Role
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager
	closeOnce sync.Once

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a marshalled event for every connection watching Code
type BroadcastMessage struct {
	Code  string
	Event *MatchEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  5 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. executor may be nil, in
// which case every connection is read-only.
func NewConnectionManager(config ConnectionConfig, source DocumentSource, executor CommandExecutor, rules match.Ruleset, m *metrics.Recorder) *ConnectionManager {
	return &ConnectionManager{
		matchConnections: make(map[string]map[*Connection]bool),
		feeds:            make(map[string]*matchFeed),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		source:      source,
		executor:    executor,
		rules:       rules,
		metrics:     m,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
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

// UpgradeConnection attaches to the match feed, upgrades the request and sends
// the current view. A missing match is reported before the upgrade.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, code string, role Role) error {
	feed, err := cm.acquireFeed(r.Context(), code)
	if err != nil {
		return err
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.releaseFeed(code)
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("%w: %v", errUpgradeFailed, err)
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		Code:        code,
		Role:        role,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	if doc := feed.mirror.Snapshot(); doc != nil {
		if event, err := newEvent(code, EventTypeView, viewer.Project(doc, cm.rules)); err == nil {
			connection.enqueue(event)
		}
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("role", string(role)).
		Str("match_code", code).
		Msg("WebSocket connection established")

	return nil
}

// acquireFeed returns the feed for code, opening the store subscription for the
// first watcher
func (cm *ConnectionManager) acquireFeed(ctx context.Context, code string) (*matchFeed, error) {
	cm.feedsMu.Lock()
	defer cm.feedsMu.Unlock()

	if feed, ok := cm.feeds[code]; ok {
		feed.refs++
		return feed, nil
	}

	doc, err := cm.source.Read(ctx, code)
	if err != nil {
		return nil, err
	}

	feed := &matchFeed{refs: 1, mirror: viewer.NewMirror()}
	feed.mirror.Apply(doc)
	feed.removeListener = feed.mirror.OnChange(func(doc *models.MatchDocument) {
		cm.BroadcastView(doc)
	})

	unsubscribe, err := cm.source.Subscribe(context.Background(), code, func(doc *models.MatchDocument) {
		feed.mirror.Apply(doc)
	})
	if err != nil {
		feed.removeListener()
		return nil, fmt.Errorf("subscribe to match %s: %w", code, err)
	}
	feed.unsubscribe = unsubscribe
	cm.feeds[code] = feed

	// catch a write that landed between the read and the subscription
	if latest, err := cm.source.Read(ctx, code); err == nil {
		feed.mirror.Apply(latest)
	}

	log.Debug().Str("match_code", code).Msg("match feed opened")
	return feed, nil
}

// releaseFeed drops one watcher and closes the subscription with the last
func (cm *ConnectionManager) releaseFeed(code string) {
	cm.feedsMu.Lock()
	defer cm.feedsMu.Unlock()

	feed, ok := cm.feeds[code]
	if !ok {
		return
	}
	feed.refs--
	if feed.refs > 0 {
		return
	}
	delete(cm.feeds, code)
	feed.unsubscribe()
	feed.removeListener()
	log.Debug().Str("match_code", code).Msg("match feed closed")
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.matchConnections[conn.Code] == nil {
		cm.matchConnections[conn.Code] = make(map[*Connection]bool)
	}
	cm.matchConnections[conn.Code][conn] = true
	cm.metrics.ConnectionOpened(string(conn.Role))

	log.Debug().
		Str("connection_id", conn.ID).
		Str("match_code", conn.Code).
		Int("total_connections", len(cm.matchConnections[conn.Code])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.matchConnections[conn.Code]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.matchConnections, conn.Code)
	}
	cm.mu.Unlock()

	cm.metrics.ConnectionClosed(string(conn.Role))
	cm.releaseFeed(conn.Code)

	log.Info().
		Str("connection_id", conn.ID).
		Str("role", string(conn.Role)).
		Str("match_code", conn.Code).
		Msg("connection unregistered")
}

// BroadcastView projects doc and queues it for every viewer of the match
func (cm *ConnectionManager) BroadcastView(doc *models.MatchDocument) {
	event, err := newEvent(doc.Code, EventTypeView, viewer.Project(doc, cm.rules))
	if err != nil {
		log.Error().Err(err).Str("match_code", doc.Code).Msg("failed to build view event")
		return
	}
	cm.BroadcastToMatch(doc.Code, event)
}

// BroadcastToMatch sends an event to all connections watching a match
func (cm *ConnectionManager) BroadcastToMatch(code string, event *MatchEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Code: code, Event: event}:
	default:
		log.Warn().Str("match_code", code).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	cm.mu.RLock()
	connections := cm.matchConnections[message.Code]
	for conn := range connections {
		select {
		case conn.Send <- eventData:
		default:
			slow = append(slow, conn)
		}
	}
	count := len(connections)
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("match_code", conn.Code).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("match_code", message.Code).
		Int("connections", count).
		Msg("event broadcasted")
}

// ConnectionStats is the body of /ws/stats
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveMatches    int            `json:"active_matches"`
	ByMatch          map[string]int `json:"match_connections"`
	ByRole           map[Role]int   `json:"role_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveMatches: len(cm.matchConnections),
		ByMatch:       make(map[string]int),
		ByRole:        make(map[Role]int),
	}
	for code, connections := range cm.matchConnections {
		stats.TotalConnections += len(connections)
		stats.ByMatch[code] = len(connections)
		for conn := range connections {
			stats.ByRole[conn.Role]++
		}
	}
	return stats
}

// enqueue sends an event to this connection only. It never blocks.
func (c *Connection) enqueue(event *MatchEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if !c.Manager.matchConnections[c.Code][c] {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, dropping event")
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { c.Conn.Close() })
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
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
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs commands from tablet and host connections
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError("malformed message")
		return
	}
	if msg.Type != clientMessageCommand {
		c.sendError(fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}
	if !c.Role.CanCommand() || c.Manager.executor == nil {
		c.sendError("this connection is read-only")
		return
	}

	cmd, err := match.ParseCommand(msg.Command)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.CommandTimeout)
	defer cancel()
	doc, err := c.Manager.executor.Execute(ctx, c.Code, cmd)
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("kind", msg.Command.Kind).
			Msg("command from connection rejected")
		c.sendError(err.Error())
		return
	}

	if event, err := newEvent(c.Code, EventTypeAck, AckPayload{Kind: msg.Command.Kind, LastUpdate: doc.LastUpdate}); err == nil {
		c.enqueue(event)
	}
}

func (c *Connection) sendError(message string) {
	event, err := newEvent(c.Code, EventTypeError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	c.enqueue(event)
}

// IsNotFound reports whether err means the match does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
