package registry

import (
	"testing"

	"github.com/nimbusrtc/sfucore/internal/domain"
)

type fakeConn struct{ id string }

func (c fakeConn) ID() string { return c.id }

type fakeRoom struct {
	id    domain.RoomID
	peers int
}

func (r fakeRoom) ID() domain.RoomID { return r.id }
func (r fakeRoom) PeerCount() int    { return r.peers }

func TestBindAndResolve(t *testing.T) {
	reg := New()
	conn := fakeConn{id: "conn-1"}

	reg.BindConn(conn, "peer-1", "room-1")

	peerID, roomID, ok := reg.PeerOf(conn)
	if !ok || peerID != "peer-1" || roomID != "room-1" {
		t.Fatalf("PeerOf = (%q, %q, %v), want (peer-1, room-1, true)", peerID, roomID, ok)
	}

	roomID, ok = reg.RoomOf("peer-1")
	if !ok || roomID != "room-1" {
		t.Fatalf("RoomOf = (%q, %v), want (room-1, true)", roomID, ok)
	}

	if !reg.PeerIDTaken("peer-1") {
		t.Error("expected peer-1 to be taken")
	}
	if reg.PeerIDTaken("peer-2") {
		t.Error("expected peer-2 to be free")
	}
}

func TestUnbindConnIsIdempotent(t *testing.T) {
	reg := New()
	conn := fakeConn{id: "conn-1"}
	reg.BindConn(conn, "peer-1", "room-1")

	reg.UnbindConn(conn)
	if _, _, ok := reg.PeerOf(conn); ok {
		t.Error("expected conn to be unbound")
	}
	if reg.PeerIDTaken("peer-1") {
		t.Error("expected peer-1 to be freed after unbind")
	}

	// second unbind is a no-op, not a panic
	reg.UnbindConn(conn)
}

func TestUnboundConnLookupFails(t *testing.T) {
	reg := New()
	if _, _, ok := reg.PeerOf(fakeConn{id: "ghost"}); ok {
		t.Error("expected lookup of an unbound conn to fail")
	}
}

func TestRoomLifecycle(t *testing.T) {
	reg := New()
	room := fakeRoom{id: "room-1", peers: 2}
	reg.PutRoom(room)

	got, ok := reg.Room("room-1")
	if !ok || got.ID() != "room-1" {
		t.Fatalf("Room(room-1) = (%v, %v), want (room-1, true)", got, ok)
	}

	rooms := reg.ListRooms()
	if len(rooms) != 1 {
		t.Fatalf("ListRooms() returned %d rooms, want 1", len(rooms))
	}

	reg.DropRoom("room-1")
	if _, ok := reg.Room("room-1"); ok {
		t.Error("expected room to be dropped")
	}
	if len(reg.ListRooms()) != 0 {
		t.Error("expected no rooms after drop")
	}
}
