// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one WebSocket connection. It carries the opaque connection id
// used as the registry key, the buffered outbound channel serviced by the
// write pump, and the session reference once the connection has joined.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	addr string

	// session is set by the join handler and read during teardown; both run
	// on the read pump goroutine, so no lock is needed.
	session *Session

	mu     sync.Mutex
	send   chan []byte
	closed bool

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient wraps a WebSocket connection for the hub, assigning it a fresh
// connection id and applying the configured read limit and rate limit.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		hub:            hub,
		addr:           addr,
		send:           make(chan []byte, 256),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the opaque connection id used as the registry key.
func (c *Client) ID() string {
	return c.id
}

// trySend queues an encoded frame for the write pump without blocking.
// Returns false when the outbound channel is closed or full; the caller
// treats that as a failed delivery.
func (c *Client) trySend(raw []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- raw:
		return true
	default:
		return false
	}
}

// sendPayload encodes a payload and queues it for this connection only.
func (c *Client) sendPayload(payload any) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to encode payload for %s: %v", c.addr, err)
		return false
	}
	return c.trySend(raw)
}

// closeSend shuts the outbound channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures the read deadline and pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warnf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Warnf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// logReadError classifies a terminal read error for the logs.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warnf("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		logger.Infof("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		logger.Infof("Client %s connection closed: %v", c.addr, err)
	default:
		logger.Warnf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// checkRateLimit reports whether the next inbound frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		logger.Warnf("Rate limit exceeded for %s (%d frames per %s); discarding frame",
			c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump reads frames until the connection closes or errors, dispatching
// each one through the protocol handler. Frames are processed strictly in
// order: a frame's handling, including any broadcasts it triggers, completes
// before the next frame is read.
func (c *Client) readPump() {
	defer func() {
		c.teardown()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("Error closing connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if !c.checkRateLimit() {
			continue
		}
		c.dispatch(raw)
	}
}

// writePump services the outbound channel, writing one frame per WebSocket
// message, and keeps the connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("Error closing connection in writePump: %v", err)
		}
	}()

	for {
		select {
		case raw, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Warnf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					logger.Warnf("Error writing close message to %s: %v", c.addr, err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("Error writing message to %s: %v", c.addr, err)
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Warnf("Error setting write deadline for ping to %s: %v", c.addr, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("Error writing ping message to %s: %v", c.addr, err)
				}
				return
			}
		}
	}
}
