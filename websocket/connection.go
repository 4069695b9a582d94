// Package websocket provides the WebSocket server and connection handling.
// file: websocket/connection.go
package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go-meet-control/logger"
	"go-meet-control/metrics"
)

// WSConn is an interface for the WebSocket connection.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// Connection represents a single observer subscribed to one competition.
type Connection struct {
	conn          WSConn
	send          chan []byte
	competitionID string
}

// Configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
	snapshotWait   = 5 * time.Second
)

// ObserverMessage is the JSON structure observers may send.
type ObserverMessage struct {
	Action string `json:"action"`
}

// ServeWs upgrades the HTTP request to a WebSocket connection, sends the
// persisted snapshot and starts the read and write pumps.
func ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID := r.URL.Query().Get("competitionId")
	if competitionID == "" {
		logger.Error.Println("[ServeWs] No competition selected; rejecting WebSocket connection")
		http.Error(w, "competitionId is required", http.StatusBadRequest)
		return
	}

	logger.Info.Printf("[ServeWs] Upgrading to WS: remoteAddr=%v, competition=%s", r.RemoteAddr, competitionID)
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Error.Printf("[ServeWs] WebSocket upgrade error: %v", err)
		return
	}

	c := newConnection(wsConn, competitionID)
	registerConnection(c)
	c.sendSnapshot()

	go c.readPump()
	go c.writePump()
}

func newConnection(conn WSConn, competitionID string) *Connection {
	return &Connection{
		conn:          conn,
		send:          make(chan []byte, 256),
		competitionID: competitionID,
	}
}

// sendSnapshot queues the persisted live state; the persisted value is
// authoritative on (re)connect.
func (c *Connection) sendSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotWait)
	defer cancel()
	msg, err := snapshotMessage(ctx, c.competitionID)
	if err != nil {
		logger.Warn.Printf("[sendSnapshot] No snapshot for competition=%s: %v", c.competitionID, err)
		return
	}
	select {
	case c.send <- msg:
	default:
		metrics.BroadcastsDropped.Inc()
	}
}

// readPump handles inbound messages from the observer.
func (c *Connection) readPump() {
	defer func() {
		unregisterConnection(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug.Printf("[readPump] Read error from %v: %v", c.conn.RemoteAddr(), err)
			break
		}
		if messageType != websocket.TextMessage {
			logger.Debug.Printf("[readPump] Ignoring non-text messageType=%d", messageType)
			continue
		}

		var om ObserverMessage
		if err := json.Unmarshal(message, &om); err != nil {
			logger.Warn.Printf("[readPump] Invalid JSON from %v: %v", c.conn.RemoteAddr(), err)
			continue
		}
		handleIncoming(c, om)
	}
}

// writePump handles outbound messages to the client, including periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				logger.Debug.Printf("[writePump] Send channel closed for %v", c.conn.RemoteAddr())
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn.Printf("[writePump] Error writing to %v: %v", c.conn.RemoteAddr(), err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn.Printf("[writePump] Ping error for %v: %v", c.conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// registerConnection adds the given connection to the global connections map.
func registerConnection(c *Connection) {
	connMu.Lock()
	connections[c] = true
	count := observerCount(c.competitionID)
	connMu.Unlock()

	metrics.ObserverConnections.Inc()
	PublishObserverConnections(count, c.competitionID)
}

// unregisterConnection removes the connection and closes its send channel.
func unregisterConnection(c *Connection) {
	connMu.Lock()
	if _, ok := connections[c]; !ok {
		connMu.Unlock()
		return
	}
	delete(connections, c)
	close(c.send)
	count := observerCount(c.competitionID)
	connMu.Unlock()

	metrics.ObserverConnections.Dec()
	PublishObserverConnections(count, c.competitionID)
	logger.Debug.Printf("[unregisterConnection] Observer left competition=%s remaining=%d", c.competitionID, count)
}

// observerCount counts connections of one competition. Callers hold connMu.
func observerCount(competitionID string) int {
	n := 0
	for c := range connections {
		if c.competitionID == competitionID {
			n++
		}
	}
	return n
}

// handleIncoming processes an inbound observer message. Observers are read
// only; the one request they can make is a fresh snapshot.
func handleIncoming(c *Connection, om ObserverMessage) {
	switch om.Action {
	case "snapshot":
		c.sendSnapshot()
	default:
		logger.Debug.Printf("[handleIncoming] Unhandled action: %s", om.Action)
	}
}
