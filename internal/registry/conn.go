// ABOUTME: Conn wraps a websocket and serializes outbound writes via a buffered channel
// ABOUTME: A full buffer closes the connection so slow consumers stay bounded

package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes beyond the RFC 6455 set.
const (
	// CloseSessionReplaced signals a newer connection took over the user's slot.
	CloseSessionReplaced = 4001
	// CloseShutdown signals the whole relay is going away.
	CloseShutdown = websocket.CloseGoingAway
)

const (
	defaultSendBuffer   = 128
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// ConnOptions tunes a connection's buffering and timing. Zero values select
// the defaults.
type ConnOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Conn wraps a websocket and coordinates outbound writes via a buffered
// channel drained by a single write loop, so Send is safe for concurrent use
// and never blocks on the peer.
type Conn struct {
	ID     string
	UserID int64

	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	pingInterval time.Duration
	once         sync.Once
	closed       chan struct{}
}

// NewConn constructs a Conn for the given user. The send buffer bounds how
// many undelivered payloads may queue before the connection is dropped.
func NewConn(userID int64, ws *websocket.Conn, opts ConnOptions) *Conn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	return &Conn{
		ID:           uuid.NewString(),
		UserID:       userID,
		ws:           ws,
		send:         make(chan []byte, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		closed:       make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Conn) Start() {
	go c.writeLoop()
}

// ReadMessage blocks until the next inbound frame arrives or the connection
// fails.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Close terminates the connection and stops the write loop.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.ws.SetWriteDeadline(deadline)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Conn) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
