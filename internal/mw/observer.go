package mw

import (
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

// pionAudioLevelObserver implements spec §4.2's periodic loudest-speaker
// report: every tick it reports the single producer with the highest
// recent dBFS reading above threshold, attributed to its owning peer,
// or nothing when no reading is above threshold. No teacher equivalent
// exists; built against the ssrc-audio-level extension decoded in
// codecs.go, fed through the same relay tap every RTP packet passes.
type pionAudioLevelObserver struct {
	interval  time.Duration
	threshold float64

	mu        sync.Mutex
	producers map[string]Producer
	levels    map[string]float64

	onVolumes func(peerID string, volume float64)
	stop      chan struct{}
	once      sync.Once
}

func newAudioLevelObserver(intervalMs, thresholdDBFS int) *pionAudioLevelObserver {
	return &pionAudioLevelObserver{
		interval:  time.Duration(intervalMs) * time.Millisecond,
		threshold: float64(thresholdDBFS),
		producers: make(map[string]Producer),
		levels:    make(map[string]float64),
		stop:      make(chan struct{}),
	}
}

func (o *pionAudioLevelObserver) AddProducer(p Producer) {
	if p.Kind() != "audio" {
		return
	}
	o.mu.Lock()
	o.producers[p.ID()] = p
	o.mu.Unlock()

	p.tapRTP(func(pkt *rtp.Packet) {
		dbfs, ok := decodeAudioLevel(pkt, audioLevelExtensionID)
		if !ok {
			return
		}
		o.mu.Lock()
		o.levels[p.ID()] = dbfs
		o.mu.Unlock()
	})
}

func (o *pionAudioLevelObserver) RemoveProducer(p Producer) {
	o.mu.Lock()
	delete(o.producers, p.ID())
	delete(o.levels, p.ID())
	o.mu.Unlock()
}

func (o *pionAudioLevelObserver) OnVolumes(fn func(peerID string, volume float64)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onVolumes = fn
}

func (o *pionAudioLevelObserver) Start() {
	go o.loop()
}

func (o *pionAudioLevelObserver) loop() {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *pionAudioLevelObserver) tick() {
	o.mu.Lock()
	var loudestID string
	loudest := o.threshold
	for id, dbfs := range o.levels {
		if dbfs > loudest {
			loudest = dbfs
			loudestID = id
		}
	}
	var peerID string
	if loudestID != "" {
		if p, ok := o.producers[loudestID]; ok {
			peerID = p.PeerID()
		}
	}
	fn := o.onVolumes
	o.mu.Unlock()

	if fn != nil && peerID != "" {
		fn(peerID, loudest)
	}
}

func (o *pionAudioLevelObserver) Close() {
	o.once.Do(func() {
		close(o.stop)
		log.Info().Str("module", "mw.observer").Msg("audio level observer closed")
	})
}
