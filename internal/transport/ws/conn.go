// Package ws is the Conn capability (spec §1): framed bidirectional
// JSON messages with open/close events, over a gorilla/websocket
// connection.
//
// Grounded on internal/adapters/ws_controller.go's WSConnection
// (buffered send channel, TrySend/ErrBackpressure, write/read pump
// goroutines, sync.Once close) generalized from binary Frame payloads
// to JSON messages, plus PufferBlow-media-sfu's explicit ping ticker.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	readLimit    = 1 << 20
)

// rawConn is the subset of *websocket.Conn this package depends on, so
// a fake can stand in for tests.
type rawConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
}

// Conn is one participant's persistent bidirectional message stream.
// Exactly one read pump and one write pump run per Conn; SendJSON is
// safe to call from any goroutine, including after Close.
type Conn struct {
	id   string
	conn rawConn
	send chan []byte
	once sync.Once

	closeHandler func()
}

func New(conn rawConn) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 256),
	}
}

func (c *Conn) ID() string { return c.id }

// OnClose registers a callback invoked exactly once when this
// connection's pumps exit, for whatever reason (remote close, write
// failure, forced Close()).
func (c *Conn) OnClose(fn func()) { c.closeHandler = fn }

// SendJSON marshals v and enqueues it for delivery. Non-blocking: if
// the outbound buffer is full, returns ErrBackpressure rather than
// stalling the caller (spec §7's Transient classification covers the
// failure this guards against). After Close it returns an error
// instead of enqueueing.
func (c *Conn) SendJSON(v any) (err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// Close closes c.send; a send racing with it would panic.
	defer func() {
		if recover() != nil {
			err = errors.New("connection closed")
		}
	}()
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close idempotently tears the connection down.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.send)
		err = c.conn.Close()
		if c.closeHandler != nil {
			c.closeHandler()
		}
	})
	return err
}

// WritePump pumps queued frames to the network plus a ping ticker,
// until the send channel closes or a write fails.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads frames and forwards each to onMessage until the
// connection errors or closes, then calls Close, so the handler given
// to OnClose runs exactly once after the loop exits; that handler is
// where the caller should trigger Peer teardown (spec §4.5: connection
// close drives Connected -> Disconnected).
func (c *Conn) ReadPump(onMessage func([]byte)) {
	defer c.Close()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Str("module", "transport.ws").Str("conn", c.id).Err(err).Msg("connection closed unexpectedly")
			}
			return
		}
		onMessage(data)
	}
}
