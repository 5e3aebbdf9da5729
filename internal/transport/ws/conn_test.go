package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeRawConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	messages [][]byte
	readErr  error
	readIdx  int
}

func (c *fakeRawConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readIdx < len(c.messages) {
		m := c.messages[c.readIdx]
		c.readIdx++
		return websocket.TextMessage, m, nil
	}
	if c.readErr != nil {
		return 0, nil, c.readErr
	}
	return 0, nil, errors.New("no more messages")
}

func (c *fakeRawConn) WriteMessage(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeRawConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeRawConn) SetWriteDeadline(t time.Time) error { return nil }
func (c *fakeRawConn) SetReadLimit(limit int64)            {}
func (c *fakeRawConn) SetPongHandler(h func(string) error) {}
func (c *fakeRawConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestSendJSONBackpressure(t *testing.T) {
	raw := &fakeRawConn{}
	c := New(raw)

	// fill the buffered channel (capacity 256) directly rather than the
	// network to exercise the backpressure path deterministically.
	for i := 0; i < 256; i++ {
		if err := c.SendJSON(map[string]int{"i": i}); err != nil {
			t.Fatalf("unexpected error filling buffer at %d: %v", i, err)
		}
	}

	if err := c.SendJSON(map[string]int{"i": 256}); err != ErrBackpressure {
		t.Errorf("SendJSON on full buffer = %v, want ErrBackpressure", err)
	}
}

func TestCloseIsIdempotentAndInvokesHandlerOnce(t *testing.T) {
	raw := &fakeRawConn{}
	c := New(raw)

	calls := 0
	c.OnClose(func() { calls++ })

	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	if calls != 1 {
		t.Errorf("closeHandler invoked %d times, want 1", calls)
	}
	if !raw.closed {
		t.Error("expected underlying raw conn to be closed")
	}
}

func TestReadPumpForwardsMessagesAndClosesOnError(t *testing.T) {
	raw := &fakeRawConn{
		messages: [][]byte{[]byte(`{"type":"ping"}`), []byte(`{"type":"pong"}`)},
		readErr:  errors.New("eof"),
	}
	c := New(raw)

	var got [][]byte
	c.ReadPump(func(data []byte) {
		got = append(got, data)
	})

	if len(got) != 2 {
		t.Fatalf("onMessage invoked %d times, want 2", len(got))
	}
	if !raw.closed {
		t.Error("expected ReadPump to close the connection on read error")
	}
}
