package mw

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// pionConsumer is a downlink stream bound to exactly one upstream
// Producer. Grounded on internal/app/sfu/outtrack.go: a consumer is
// just an id plus the local track its relay subscription writes into.
type pionConsumer struct {
	id         string
	producerID string
	kind       string
	local      *webrtc.TrackLocalStaticRTP
	sender     *webrtc.RTPSender
	source     Producer

	mu              sync.Mutex
	closed          bool
	onProducerClose func()
}

func newConsumer(producerID, kind string, local *webrtc.TrackLocalStaticRTP, sender *webrtc.RTPSender, source Producer) *pionConsumer {
	return &pionConsumer{
		id:         uuid.NewString(),
		producerID: producerID,
		kind:       kind,
		local:      local,
		sender:     sender,
		source:     source,
	}
}

func (c *pionConsumer) ID() string         { return c.id }
func (c *pionConsumer) ProducerID() string { return c.producerID }
func (c *pionConsumer) Kind() string       { return c.kind }

func (c *pionConsumer) RtpParameters() RtpParameters {
	params := c.sender.GetParameters()
	codecs := make([]RtpCodecParameters, 0, len(params.Codecs))
	for _, cd := range params.Codecs {
		codecs = append(codecs, RtpCodecParameters{
			MimeType:    cd.MimeType,
			PayloadType: uint8(cd.PayloadType),
			ClockRate:   cd.ClockRate,
			Channels:    cd.Channels,
		})
	}
	return RtpParameters{Codecs: codecs}
}

func (c *pionConsumer) OnProducerClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProducerClose = fn
}

func (c *pionConsumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.source != nil {
		c.source.unsubscribe(c.id)
	}
	_ = c.sender.Stop()
	log.Info().Str("module", "mw.consumer").Str("consumer", c.id).Msg("consumer closed")
}

func (c *pionConsumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// notifyProducerClosed is registered by Transport.Consume through the
// source Producer's subscribe and invoked by that Producer's Close, so
// the owning Peer's OnProducerClose listener can evict its consumer
// record in turn (spec §4.3).
func (c *pionConsumer) notifyProducerClosed() {
	c.mu.Lock()
	fn := c.onProducerClose
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
