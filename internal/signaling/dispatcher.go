package signaling

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nimbusrtc/sfucore/internal/peer"
	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/nimbusrtc/sfucore/internal/room"
	"github.com/nimbusrtc/sfucore/internal/transport/ws"
	"github.com/rs/zerolog/log"
)

// Dispatcher is the per-connection loop of spec §4.1: parse, route,
// respond, and fire asynchronous notifications as a side effect.
// Requests on a single connection are processed strictly in arrival
// order because ws.Conn.ReadPump delivers frames to handleFrame
// one at a time on the same goroutine.
type Dispatcher struct {
	reg   *registry.Registry
	rooms *RoomManager
}

func NewDispatcher(reg *registry.Registry, rooms *RoomManager) *Dispatcher {
	return &Dispatcher{reg: reg, rooms: rooms}
}

// session is the mutable per-connection state a Dispatcher threads
// through handlers: at most one Peer, attached once joinRoom succeeds.
type session struct {
	conn *ws.Conn

	mu   sync.Mutex
	peer *peer.Peer
	room *room.Room
}

func (s *session) attach(p *peer.Peer, r *room.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = p
	s.room = r
}

func (s *session) get() (*peer.Peer, *room.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer, s.room, s.peer != nil
}

// Serve runs a single connection's read/write pumps until it closes,
// driving Peer teardown on exit (spec §4.5: any connection close moves
// Connected -> Disconnected unconditionally).
func (d *Dispatcher) Serve(conn *ws.Conn) {
	sess := &session{conn: conn}

	conn.OnClose(func() {
		d.onDisconnect(sess)
	})

	go func() {
		defer d.recoverConn(conn)
		conn.WritePump()
	}()
	conn.ReadPump(func(data []byte) {
		d.handleFrameSafely(sess, data)
	})
}

// handleFrameSafely isolates one malformed or unexpected frame from
// crashing the whole process: a panic here only ends this connection's
// read loop, same as any other fatal transport error (spec §7's Fatal
// classification), instead of taking every other peer down with it.
func (d *Dispatcher) handleFrameSafely(sess *session, data []byte) {
	defer d.recoverConn(sess.conn)
	d.handleFrame(sess, data)
}

func (d *Dispatcher) recoverConn(conn *ws.Conn) {
	if r := recover(); r != nil {
		log.Error().Str("module", "signaling").Str("conn", conn.ID()).Interface("panic", r).Msg("recovered from panic, closing connection")
		_ = conn.Close()
	}
}

func (d *Dispatcher) onDisconnect(sess *session) {
	p, r, ok := sess.get()
	if !ok {
		return
	}
	log.Info().Str("module", "signaling").Str("peer", string(p.ID)).Msg("connection closed, cleaning up peer")
	r.CleanupPeer(d.reg, p.ID)
}

func (d *Dispatcher) handleFrame(sess *session, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		d.reply(sess, errorResponse{Error: ErrInvalidRequest.Message})
		return
	}

	ctx := context.Background()

	var (
		resp any
		err  error
	)
	switch req.Type {
	case "createRoom":
		resp, err = d.handleCreateRoom(ctx, sess, req)
	case "joinRoom":
		resp, err = d.handleJoinRoom(ctx, sess, req)
	case "createWebRtcTransport":
		resp, err = d.handleCreateWebRtcTransport(ctx, sess, req)
	case "connectWebRtcTransport":
		resp, err = d.handleConnectWebRtcTransport(ctx, sess, req)
	case "produce":
		resp, err = d.handleProduce(ctx, sess, req)
	case "consume":
		resp, err = d.handleConsume(ctx, sess, req)
	case "pauseProducer":
		resp, err = d.handlePauseProducer(ctx, sess, req)
	case "resumeProducer":
		resp, err = d.handleResumeProducer(ctx, sess, req)
	case "setProducerMuted":
		resp, err = d.handleSetProducerMuted(ctx, sess, req)
	case "closeProducer":
		resp, err = d.handleCloseProducer(ctx, sess, req)
	default:
		resp, err = pongResponse{Type: "pong"}, nil
	}

	if err != nil {
		e := asError(err)
		log.Debug().Str("module", "signaling").Str("type", req.Type).Str("kind", string(e.Kind)).Str("reqId", req.ReqID).Msg("request failed")
		d.reply(sess, errorResponse{ReqID: req.ReqID, Error: e.Message})
		return
	}
	d.reply(sess, resp)
}

func (d *Dispatcher) reply(sess *session, v any) {
	if err := sess.conn.SendJSON(v); err != nil {
		log.Debug().Str("module", "signaling").Err(err).Msg("reply send failed")
	}
}

// currentPeer resolves the caller's bound Peer/Room, or ErrPeerNotFound
// if joinRoom has not yet completed on this connection.
func (d *Dispatcher) currentPeer(sess *session) (*peer.Peer, *room.Room, error) {
	p, r, ok := sess.get()
	if !ok {
		return nil, nil, ErrPeerNotFound
	}
	return p, r, nil
}
