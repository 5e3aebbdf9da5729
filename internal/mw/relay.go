package mw

import (
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// outState is the tri-state every relay subscriber carries, grounded on
// internal/app/sfu/outtrack.go's Ok/Muted/Delete lifecycle: a consumer
// stops receiving packets the instant it is muted or deleted, because
// the relay loop checks each subscriber's atomic state before every
// write; muting never modifies the subscriber map.
type outState int32

const (
	outOk outState = iota
	outMuted
	outDeleted
)

type outSub struct {
	id    string
	track *webrtc.TrackLocalStaticRTP
	state atomic.Int32
}

func newOutSub(id string, track *webrtc.TrackLocalStaticRTP) *outSub {
	s := &outSub{id: id, track: track}
	s.state.Store(int32(outOk))
	return s
}

func (s *outSub) setMuted(m bool) {
	if m {
		s.state.Store(int32(outMuted))
	} else {
		s.state.Store(int32(outOk))
	}
}

func (s *outSub) delete() { s.state.Store(int32(outDeleted)) }

// relay is the single reader of a Producer's RTPReceiver: one goroutine
// pulls RTP packets off the wire and fans them out to every subscribed
// OutTrack, tolerating per-subscriber write failure. Grounded on
// internal/app/sfu/relay.go's read-once/fan-out-many shape, generalized
// from the teacher's fixed relay_manager registration to a map keyed by
// consumer id behind an RWMutex, snapshotted under the read lock for
// every packet.
type relay struct {
	remote *webrtc.TrackRemote

	mu   sync.RWMutex
	subs map[string]*outSub

	pausedFlag atomic.Bool

	// onPacket lets an AudioLevelObserver tap every packet this relay
	// reads without becoming another reader of the TrackRemote.
	onPacket func(pkt *rtp.Packet)

	done chan struct{}
	once sync.Once
}

func newRelay(remote *webrtc.TrackRemote) *relay {
	return &relay{
		remote: remote,
		subs:   make(map[string]*outSub),
		done:   make(chan struct{}),
	}
}

func (rl *relay) start() {
	go rl.loop()
}

func (rl *relay) loop() {
	for {
		select {
		case <-rl.done:
			return
		default:
		}

		pkt, _, err := rl.remote.ReadRTP()
		if err != nil {
			return
		}

		if rl.onPacket != nil {
			rl.onPacket(pkt)
		}
		if rl.pausedFlag.Load() {
			continue
		}

		rl.mu.RLock()
		subs := make([]*outSub, 0, len(rl.subs))
		for _, s := range rl.subs {
			subs = append(subs, s)
		}
		rl.mu.RUnlock()

		for _, s := range subs {
			switch outState(s.state.Load()) {
			case outOk:
				if err := s.track.WriteRTP(pkt); err != nil {
					log.Debug().Str("module", "mw.relay").Str("consumer", s.id).Err(err).Msg("relay write failed")
				}
			case outMuted, outDeleted:
				continue
			}
		}
	}
}

func (rl *relay) setPaused(p bool) { rl.pausedFlag.Store(p) }

func (rl *relay) addSub(id string, track *webrtc.TrackLocalStaticRTP) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.subs[id] = newOutSub(id, track)
}

func (rl *relay) muteSub(id string, muted bool) {
	rl.mu.RLock()
	s, ok := rl.subs[id]
	rl.mu.RUnlock()
	if ok {
		s.setMuted(muted)
	}
}

func (rl *relay) removeSub(id string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if s, ok := rl.subs[id]; ok {
		s.delete()
		delete(rl.subs, id)
	}
}

func (rl *relay) stop() {
	rl.once.Do(func() { close(rl.done) })
}
