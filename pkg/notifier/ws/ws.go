package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whatsapp-gateway/internal/metrics"
)

// Message is the frame pushed to pairing page viewers.
type Message struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// Connection wraps websocket.Conn with metadata
type Connection struct {
	Conn *websocket.Conn
	ID   string

	lastSeen atomic.Int64 // unix nanos
	writeMu  sync.Mutex   // gorilla allows one concurrent writer
}

func (c *Connection) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.Conn.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
}

type Manager struct {
	mu          sync.RWMutex
	connections map[*Connection]struct{}
	logger      *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[*Connection]struct{}),
		logger:      logger.Named("ws"),
	}
}

// Add registers a viewer connection
func (m *Manager) Add(id string, conn *websocket.Conn) *Connection {
	c := &Connection{Conn: conn, ID: id}
	c.Touch()

	m.mu.Lock()
	m.connections[c] = struct{}{}
	total := len(m.connections)
	m.mu.Unlock()

	metrics.ViewersConnected.Inc()
	m.logger.Info("viewer connected", zap.String("viewer_id", id), zap.Int("total", total))
	return c
}

// Remove closes and forgets a connection. Safe to call more than once.
func (m *Manager) Remove(c *Connection) {
	m.mu.Lock()
	_, ok := m.connections[c]
	delete(m.connections, c)
	m.mu.Unlock()

	if !ok {
		return
	}
	_ = c.Conn.Close()
	metrics.ViewersConnected.Dec()
	m.logger.Info("viewer disconnected", zap.String("viewer_id", c.ID))
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Send pushes a message to a single connection
func (m *Manager) Send(c *Connection, msg Message) {
	if err := c.writeJSON(msg); err != nil {
		m.logger.Warn("failed WS send", zap.String("viewer_id", c.ID), zap.Error(err))
		go m.Remove(c)
	}
}

// Broadcast sends to every connected viewer
func (m *Manager) Broadcast(msg Message) {
	for _, c := range m.snapshot() {
		m.Send(c, msg)
	}
}

// Heartbeat pings all connections periodically and drops the ones that
// stopped answering.
func (m *Manager) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, c := range m.snapshot() {
			if time.Since(c.seen()) > 2*interval {
				m.Remove(c)
				continue
			}
			if err := c.ping(); err != nil {
				m.Remove(c)
			}
		}
	}
}

// Touch records activity (a pong or a client frame).
func (c *Connection) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Connection) seen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// CloseAll disconnects every viewer.
func (m *Manager) CloseAll() {
	for _, c := range m.snapshot() {
		m.Remove(c)
	}
}

func (m *Manager) snapshot() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conns := make([]*Connection, 0, len(m.connections))
	for c := range m.connections {
		conns = append(conns, c)
	}
	return conns
}
