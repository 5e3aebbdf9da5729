package signaling

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/nimbusrtc/sfucore/internal/transport/ws"
)

// fakeRawConn satisfies the unexported rawConn method set internal/transport/ws
// requires, so tests can drive a real *ws.Conn without a network socket.
type fakeRawConn struct {
	mu      sync.Mutex
	written [][]byte
}

func (c *fakeRawConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
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
func (c *fakeRawConn) Close() error                        { return nil }

func (c *fakeRawConn) lastWritten() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.written) == 0 {
		return nil
	}
	return c.written[len(c.written)-1]
}

func newTestDispatcher() (*Dispatcher, *session, *fakeRawConn) {
	reg := registry.New()
	worker := &fakeWorker{}
	rooms := NewRoomManager(reg, worker, 800, -80)
	d := NewDispatcher(reg, rooms)

	raw := &fakeRawConn{}
	conn := ws.New(raw)
	go conn.WritePump()
	sess := &session{conn: conn}
	return d, sess, raw
}

func TestHandleFrameMalformedJSON(t *testing.T) {
	d, sess, raw := newTestDispatcher()
	d.handleFrame(sess, []byte("not json"))

	time.Sleep(10 * time.Millisecond)
	var resp errorResponse
	if err := json.Unmarshal(raw.lastWritten(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != ErrInvalidRequest.Message {
		t.Errorf("Error = %q, want %q", resp.Error, ErrInvalidRequest.Message)
	}
}

func TestHandleFrameUnknownTypeIsPong(t *testing.T) {
	d, sess, raw := newTestDispatcher()
	d.handleFrame(sess, []byte(`{"type":"somethingElse"}`))

	time.Sleep(10 * time.Millisecond)
	var resp pongResponse
	if err := json.Unmarshal(raw.lastWritten(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Type != "pong" {
		t.Errorf("Type = %q, want pong", resp.Type)
	}
}

func TestHandleFrameCreateThenJoinRoom(t *testing.T) {
	d, sess, raw := newTestDispatcher()

	createReq, _ := json.Marshal(Request{Type: "createRoom", ReqID: "1", RoomID: "room-1"})
	d.handleFrame(sess, createReq)
	time.Sleep(10 * time.Millisecond)

	var createResp createRoomResponse
	if err := json.Unmarshal(raw.lastWritten(), &createResp); err != nil {
		t.Fatalf("unmarshal createRoom response: %v", err)
	}
	if !createResp.Success {
		t.Fatal("expected createRoom to succeed")
	}

	joinReq, _ := json.Marshal(Request{Type: "joinRoom", ReqID: "2", RoomID: "room-1", PeerID: "peer-1", DisplayName: "Alice"})
	d.handleFrame(sess, joinReq)
	time.Sleep(10 * time.Millisecond)

	var joinResp joinRoomResponse
	if err := json.Unmarshal(raw.lastWritten(), &joinResp); err != nil {
		t.Fatalf("unmarshal joinRoom response: %v", err)
	}
	if joinResp.Type != "joinRoomResponse" {
		t.Errorf("Type = %q, want joinRoomResponse", joinResp.Type)
	}

	if _, _, ok := sess.get(); !ok {
		t.Error("expected joinRoom to attach a peer to the session")
	}
}

func TestHandleFrameJoinRoomRejectsMissingFields(t *testing.T) {
	d, sess, raw := newTestDispatcher()

	joinReq, _ := json.Marshal(Request{Type: "joinRoom", ReqID: "1"})
	d.handleFrame(sess, joinReq)
	time.Sleep(10 * time.Millisecond)

	var resp errorResponse
	if err := json.Unmarshal(raw.lastWritten(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != ErrInvalidRequest.Message {
		t.Errorf("Error = %q, want %q", resp.Error, ErrInvalidRequest.Message)
	}
}
