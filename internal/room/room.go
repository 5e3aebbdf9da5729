// Package room implements the Room entity (spec §3, §4.2): it owns a
// router, an audio-level observer, and the set of peers in the room,
// and is responsible for broadcast fan-out and self-destruction on
// emptiness.
//
// Grounded on internal/core/room_impl.go's owner-of-collection shape.
package room

import (
	"sync"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/mw"
	"github.com/nimbusrtc/sfucore/internal/peer"
	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/rs/zerolog/log"
)

// Room owns one router/observer pair and the peers currently joined to
// it (spec §3).
type Room struct {
	id       domain.RoomID
	router   mw.Router
	observer mw.AudioLevelObserver

	mu    sync.RWMutex
	peers map[domain.PeerID]*peer.Peer
	bus   *Bus
}

func New(id domain.RoomID, router mw.Router, observer mw.AudioLevelObserver) *Room {
	r := &Room{
		id:       id,
		router:   router,
		observer: observer,
		peers:    make(map[domain.PeerID]*peer.Peer),
	}
	r.bus = NewBus(r)
	observer.OnVolumes(func(peerID string, volume float64) {
		r.bus.Broadcast(AudioLevel{Type: "audioLevel", PeerID: peerID, Volume: volume}, "")
	})
	observer.Start()
	return r
}

func (r *Room) ID() domain.RoomID            { return r.id }
func (r *Room) Router() mw.Router            { return r.router }
func (r *Room) Observer() mw.AudioLevelObserver { return r.observer }

// PeerCount satisfies internal/registry.RoomHandle.
func (r *Room) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// AddPeer attaches a newly joined peer to the room.
func (r *Room) AddPeer(p *peer.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.ID] = p
}

func (r *Room) Peer(id domain.PeerID) (*peer.Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	return p, ok
}

// Peers returns a snapshot of every peer currently joined, used for the
// joinRoom response's peers[] array.
func (r *Room) Peers() []*peer.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*peer.Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// FindProducer locates a producer by id across every peer in the room,
// used to resolve `consume` requests (spec §4.1).
func (r *Room) FindProducer(id domain.ProducerID) (*peer.Producer, domain.PeerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.peers {
		if rec, ok := p.Producer(id); ok {
			return rec, p.ID, true
		}
	}
	return nil, "", false
}

// Broadcast delivers a notification to every peer except the one whose
// id equals except (pass "" to exclude no one). Snapshot-under-lock,
// dispatch-outside-lock, fire-and-forget (spec §5).
func (r *Room) Broadcast(notification any, except domain.PeerID) {
	r.bus.Broadcast(notification, except)
}

// CleanupPeer executes spec §4.3's full teardown protocol for peerID:
// close the peer's own resources (which broadcasts producerClosed per
// producer as a side effect), broadcast peerLeft, remove it from this
// room and the registry, and collapse the room itself if it is now
// empty.
//
// Concurrent calls for the same peerID collapse to one execution: the
// grab-and-delete on r.peers below is itself the idempotency guard, so
// a second caller sees ok=false and returns immediately.
func (r *Room) CleanupPeer(reg *registry.Registry, peerID domain.PeerID) {
	r.mu.Lock()
	p, ok := r.peers[peerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.peers, peerID)
	remaining := len(r.peers)
	r.mu.Unlock()

	// p.Cleanup() closes every producer the peer owns, which fires each
	// producer's OnTransportClose callback (wired in handleProduce) and
	// broadcasts producerClosed on our behalf; broadcasting it again
	// here would double it up.
	if !p.Cleanup().Performed {
		return
	}

	reg.UnbindConn(p.Conn())

	r.bus.Broadcast(PeerLeft{Type: "peerLeft", PeerID: string(peerID), DisplayName: p.DisplayName}, peerID)

	log.Info().Str("module", "room").Str("room", string(r.id)).Str("peer", string(peerID)).Int("remaining", remaining).Msg("peer removed")

	if remaining == 0 {
		r.observer.Close()
		r.router.Close()
		reg.DropRoom(r.id)
		log.Info().Str("module", "room").Str("room", string(r.id)).Msg("room collapsed")
	}
}
