package mw

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// pionProducer is an uplink stream: one RTPReceiver/TrackRemote pair
// plus the relay that fans its packets out to consumers. Grounded on
// internal/app/sfu/relay_manager.go's registration of a producer
// against its relay.
type pionProducer struct {
	id     string
	kind   string
	peerID string

	receiver *webrtc.RTPReceiver
	remote   *webrtc.TrackRemote
	relay    *relay

	mu               sync.Mutex
	paused           bool
	closed           bool
	onTransportClose func()
	closeListeners   map[string]func()
}

func newProducer(kind, peerID string, receiver *webrtc.RTPReceiver) *pionProducer {
	remote := receiver.Track()
	rl := newRelay(remote)
	rl.start()

	p := &pionProducer{
		id:             uuid.NewString(),
		kind:           kind,
		peerID:         peerID,
		receiver:       receiver,
		remote:         remote,
		relay:          rl,
		closeListeners: make(map[string]func()),
	}
	return p
}

func (p *pionProducer) ID() string     { return p.id }
func (p *pionProducer) Kind() string   { return p.kind }
func (p *pionProducer) PeerID() string { return p.peerID }

func (p *pionProducer) Pause(ctx context.Context) error {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	p.relay.setPaused(true)
	log.Info().Str("module", "mw.producer").Str("producer", p.id).Msg("producer paused")
	return nil
}

func (p *pionProducer) Resume(ctx context.Context) error {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.relay.setPaused(false)
	log.Info().Str("module", "mw.producer").Str("producer", p.id).Msg("producer resumed")
	return nil
}

func (p *pionProducer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *pionProducer) OnTransportClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTransportClose = fn
}

func (p *pionProducer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	fn := p.onTransportClose
	listeners := make([]func(), 0, len(p.closeListeners))
	for _, l := range p.closeListeners {
		listeners = append(listeners, l)
	}
	p.closeListeners = map[string]func(){}
	p.mu.Unlock()

	p.relay.stop()
	_ = p.receiver.Stop()

	for _, l := range listeners {
		l()
	}
	if fn != nil {
		fn()
	}
	log.Info().Str("module", "mw.producer").Str("producer", p.id).Msg("producer closed")
}

func (p *pionProducer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pionProducer) track() *webrtc.TrackRemote { return p.remote }

func (p *pionProducer) subscribe(consumerID string, track *webrtc.TrackLocalStaticRTP, onClose func()) {
	p.relay.addSub(consumerID, track)
	p.mu.Lock()
	p.closeListeners[consumerID] = onClose
	p.mu.Unlock()
}

func (p *pionProducer) unsubscribe(consumerID string) {
	p.relay.removeSub(consumerID)
	p.mu.Lock()
	delete(p.closeListeners, consumerID)
	p.mu.Unlock()
}

func (p *pionProducer) muteSubscriber(consumerID string, muted bool) {
	p.relay.muteSub(consumerID, muted)
}

func (p *pionProducer) tapRTP(fn func(pkt *rtp.Packet)) {
	p.relay.onPacket = fn
}
