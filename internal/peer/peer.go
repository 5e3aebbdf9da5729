// Package peer implements the Peer entity (spec §4.3): the set of
// transports, producers and consumers one connected participant owns,
// plus its idempotent teardown.
//
// Grounded on internal/core/member_impl.go's meta+conn pairing and
// internal/orch/orchestrator_room.go's KickBySID/cleanupMembership/
// cleanupMedia split, merged here into one cohesive type since this
// spec keeps send/recv transports and producers/consumers on a single
// entity rather than spreading them across member/session/orchestrator.
package peer

import (
	"sync"
	"sync/atomic"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/mw"
	"github.com/rs/zerolog/log"
)

// Conn is the minimal bidirectional message-stream capability a Peer
// needs from its transport layer.
type Conn interface {
	ID() string
	SendJSON(v any) error
	Close() error
}

// Producer is this Peer's record of an uplink stream it originates
// (spec §3's Producer record).
type Producer struct {
	ID     domain.ProducerID
	Source domain.Source
	Kind   domain.Kind
	Handle mw.Producer

	mu     sync.Mutex
	paused bool
	muted  bool
}

func (p *Producer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Producer) SetPaused(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = v
}

func (p *Producer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Producer) SetMuted(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = v
}

// Consumer is this Peer's record of a downlink stream bound to exactly
// one upstream Producer (spec §3's Consumer record). Map keys in Peer
// are the upstream producerId, not this id, so a producer-close event
// evicts in O(1).
type Consumer struct {
	ID         domain.ConsumerID
	PeerID     domain.PeerID
	ProducerID domain.ProducerID
	Handle     mw.Consumer
}

// Peer owns everything one connected participant has created in its
// Room: its transports, the producers it sends, the consumers it
// receives.
type Peer struct {
	ID          domain.PeerID
	DisplayName string
	RoomID      domain.RoomID
	conn        Conn

	state atomic.Value // domain.PeerState

	mu            sync.RWMutex
	sendTransport mw.Transport
	recvTransport mw.Transport
	producers     map[domain.ProducerID]*Producer
	consumers     map[domain.ProducerID]*Consumer

	cleanupOnce sync.Once
}

func New(id domain.PeerID, displayName string, roomID domain.RoomID, conn Conn) *Peer {
	p := &Peer{
		ID:          id,
		DisplayName: displayName,
		RoomID:      roomID,
		conn:        conn,
		producers:   make(map[domain.ProducerID]*Producer),
		consumers:   make(map[domain.ProducerID]*Consumer),
	}
	p.state.Store(domain.PeerNew)
	return p
}

func (p *Peer) Conn() Conn { return p.conn }

func (p *Peer) State() domain.PeerState { return p.state.Load().(domain.PeerState) }

func (p *Peer) SetState(s domain.PeerState) {
	p.state.Store(s)
}

// Send delivers a single notification or response to this peer's
// connection. Failures are the caller's to tolerate (spec §4.2: a
// closed-peer delivery is a silent no-op from the Room's perspective).
func (p *Peer) Send(v any) error {
	return p.conn.SendJSON(v)
}

func (p *Peer) SetSendTransport(t mw.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendTransport = t
}

func (p *Peer) SetRecvTransport(t mw.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recvTransport = t
}

func (p *Peer) SendTransport() mw.Transport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sendTransport
}

func (p *Peer) RecvTransport() mw.Transport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.recvTransport
}

// TransportByID finds either owned transport by id, used to route
// connectWebRtcTransport.
func (p *Peer) TransportByID(id string) (mw.Transport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.sendTransport != nil && p.sendTransport.ID() == id {
		return p.sendTransport, true
	}
	if p.recvTransport != nil && p.recvTransport.ID() == id {
		return p.recvTransport, true
	}
	return nil, false
}

func (p *Peer) AddProducer(rec *Producer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.producers[rec.ID] = rec
}

func (p *Peer) Producer(id domain.ProducerID) (*Producer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.producers[id]
	return rec, ok
}

func (p *Peer) RemoveProducer(id domain.ProducerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.producers, id)
}

// Producers returns a point-in-time snapshot, used for the joinRoom
// response's producers[] array (spec §4.1, §8 invariant 7).
func (p *Peer) Producers() []*Producer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Producer, 0, len(p.producers))
	for _, rec := range p.producers {
		out = append(out, rec)
	}
	return out
}

func (p *Peer) AddConsumer(rec *Consumer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumers[rec.ProducerID] = rec
}

// ConsumerByUpstream looks a consumer up by the upstream producerId it
// was created against (spec §3's keying requirement).
func (p *Peer) ConsumerByUpstream(upstream domain.ProducerID) (*Consumer, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.consumers[upstream]
	return rec, ok
}

func (p *Peer) RemoveConsumerByUpstream(upstream domain.ProducerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.consumers, upstream)
}

func (p *Peer) Consumers() []*Consumer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Consumer, 0, len(p.consumers))
	for _, rec := range p.consumers {
		out = append(out, rec)
	}
	return out
}

// CleanupResult tells the Room whether this call actually performed the
// teardown, since a concurrent second caller collapses to a no-op.
type CleanupResult struct {
	Performed bool
}

// Cleanup executes steps 1-3 of spec §4.3's teardown protocol: close
// every producer, close every consumer, close both transports. Safe to
// call concurrently; only the first caller actually performs the work
// (Performed=false tells the Room this is a collapsed no-op).
func (p *Peer) Cleanup() CleanupResult {
	var result CleanupResult
	p.cleanupOnce.Do(func() {
		result.Performed = true

		p.mu.Lock()
		producers := make([]*Producer, 0, len(p.producers))
		for _, rec := range p.producers {
			producers = append(producers, rec)
		}
		p.producers = map[domain.ProducerID]*Producer{}

		consumers := make([]*Consumer, 0, len(p.consumers))
		for _, rec := range p.consumers {
			consumers = append(consumers, rec)
		}
		p.consumers = map[domain.ProducerID]*Consumer{}

		send, recv := p.sendTransport, p.recvTransport
		p.sendTransport, p.recvTransport = nil, nil
		p.mu.Unlock()

		for _, rec := range producers {
			rec.Handle.Close()
		}
		for _, rec := range consumers {
			rec.Handle.Close()
		}
		if send != nil {
			send.Close()
		}
		if recv != nil {
			recv.Close()
		}

		p.SetState(domain.PeerDisconnected)
		log.Info().Str("module", "peer").Str("peer", string(p.ID)).Int("producers", len(producers)).Int("consumers", len(consumers)).Msg("peer cleanup")
	})
	return result
}
