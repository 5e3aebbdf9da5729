// Package registry is the Session Registry (spec §3): the process-wide
// coordination point tying a live connection to its peer, its peer to
// its room, and a room id to the live Room. One mutex protects all
// three indices so a lookup never observes them out of sync with each
// other.
//
// Grounded on internal/app/registry.go's RWMutex-guarded map shape,
// generalized to also index rooms by id, which the teacher's registry
// never needed because it kept exactly one active room.
package registry

import (
	"sync"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/rs/zerolog/log"
)

// Conn is the minimal shape the registry needs from a connection to key
// its connection->peer index. internal/transport/ws.Conn satisfies it.
type Conn interface {
	ID() string
}

// RoomHandle is the minimal shape the registry needs from a Room:
// enough to route requests to it and to ask whether it has emptied out.
type RoomHandle interface {
	ID() domain.RoomID
	PeerCount() int
}

type peerEntry struct {
	peerID domain.PeerID
	roomID domain.RoomID
}

// Registry holds the three coordinated indices described in spec §3.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]*peerEntry
	byPeer   map[domain.PeerID]domain.RoomID
	byRoomID map[domain.RoomID]RoomHandle
}

func New() *Registry {
	return &Registry{
		byConn:   make(map[string]*peerEntry),
		byPeer:   make(map[domain.PeerID]domain.RoomID),
		byRoomID: make(map[domain.RoomID]RoomHandle),
	}
}

// BindConn records that conn now speaks for peerID in roomID.
func (r *Registry) BindConn(conn Conn, peerID domain.PeerID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[conn.ID()] = &peerEntry{peerID: peerID, roomID: roomID}
	r.byPeer[peerID] = roomID
	log.Info().Str("module", "registry").Str("peer", string(peerID)).Str("room", string(roomID)).Msg("peer bound")
}

// PeerOf resolves the peer and room a connection is currently bound to.
func (r *Registry) PeerOf(conn Conn) (domain.PeerID, domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[conn.ID()]
	if !ok {
		return "", "", false
	}
	return e.peerID, e.roomID, true
}

// RoomOf resolves the room a peer is currently a member of.
func (r *Registry) RoomOf(peerID domain.PeerID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.byPeer[peerID]
	return roomID, ok
}

// UnbindConn removes the connection->peer and peer->room entries for
// conn. Idempotent: unbinding a conn that isn't bound is a no-op.
func (r *Registry) UnbindConn(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(r.byConn, conn.ID())
	delete(r.byPeer, e.peerID)
	log.Info().Str("module", "registry").Str("peer", string(e.peerID)).Msg("peer unbound")
}

// PutRoom registers a live Room under its id.
func (r *Registry) PutRoom(room RoomHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRoomID[room.ID()] = room
	log.Info().Str("module", "registry").Str("room", string(room.ID())).Msg("room registered")
}

// Room looks up a live Room by id.
func (r *Registry) Room(roomID domain.RoomID) (RoomHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byRoomID[roomID]
	return room, ok
}

// ListRooms returns a snapshot of every currently registered room, used
// by the read-only /rooms introspection endpoint.
func (r *Registry) ListRooms() []RoomHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomHandle, 0, len(r.byRoomID))
	for _, room := range r.byRoomID {
		out = append(out, room)
	}
	return out
}

// DropRoom removes a room from the registry. Callers are expected to
// have already confirmed the room has no peers left (spec §4.2's
// last-peer-leaves-closes-room invariant).
func (r *Registry) DropRoom(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRoomID, roomID)
	log.Info().Str("module", "registry").Str("room", string(roomID)).Msg("room dropped")
}

// PeerIDTaken reports whether a peer id is already bound to a room,
// used to enforce spec §9's resolved PeerIdTaken behaviour on join.
func (r *Registry) PeerIDTaken(peerID domain.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPeer[peerID]
	return ok
}
