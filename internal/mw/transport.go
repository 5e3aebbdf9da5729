package mw

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// pionTransport realizes spec §4.4's CreateWebRtcTransport contract
// on pion's ORTC surface (ICEGatherer + ICETransport + DTLSTransport)
// rather than the teacher's SDP/PeerConnection usage
// (internal/adapters/rtc/connection.go): mediasoup-style WebRtcTransports
// never negotiate SDP, which the ORTC primitives model directly. See
// DESIGN.md for the rationale.
type pionTransport struct {
	id        string
	direction string
	api       *webrtc.API

	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport

	iceParams webrtc.ICEParameters
	iceCands  []webrtc.ICECandidate

	mu        sync.Mutex
	producers map[string]*pionProducer
	consumers map[string]*pionConsumer
	closed    bool
	onClose   func()
}

func newTransport(ctx context.Context, api *webrtc.API, cfg WorkerConfig, direction string) (*pionTransport, error) {
	gatherer, err := api.NewICEGatherer(webrtc.ICEGatherOptions{})
	if err != nil {
		return nil, err
	}

	ice := api.NewICETransport(gatherer)

	cert, err := selfSignedCertificate()
	if err != nil {
		return nil, err
	}
	dtls, err := api.NewDTLSTransport(ice, []webrtc.Certificate{cert})
	if err != nil {
		return nil, err
	}

	if err := gatherer.Gather(); err != nil {
		return nil, err
	}
	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		return nil, err
	}
	iceCands, err := gatherer.GetLocalCandidates()
	if err != nil {
		return nil, err
	}

	// A mediasoup-style WebRtcTransport is ICE-lite: it starts
	// listening for the remote ICE-agent's binding requests as soon
	// as it is created, using its own advertised local credentials.
	// The client never sends its remote ICE parameters to this
	// adapter (spec §4.1's connectWebRtcTransport only carries
	// dtlsParameters), so there is nothing else to start ICE with
	// here.
	if err := ice.Start(gatherer, iceParams, nil); err != nil {
		return nil, err
	}

	t := &pionTransport{
		id:        uuid.NewString(),
		direction: direction,
		api:       api,
		gatherer:  gatherer,
		ice:       ice,
		dtls:      dtls,
		iceParams: iceParams,
		iceCands:  iceCands,
		producers: make(map[string]*pionProducer),
		consumers: make(map[string]*pionConsumer),
	}
	return t, nil
}

func selfSignedCertificate() (webrtc.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return webrtc.Certificate{}, err
	}
	cert, err := webrtc.GenerateCertificate(key)
	if err != nil {
		return webrtc.Certificate{}, err
	}
	return *cert, nil
}

func (t *pionTransport) ID() string { return t.id }

func (t *pionTransport) IceParameters() IceParameters {
	return IceParameters{
		UsernameFragment: t.iceParams.UsernameFragment,
		Password:         t.iceParams.Password,
		IceLite:          true,
	}
}

func (t *pionTransport) IceCandidates() []IceCandidate {
	out := make([]IceCandidate, 0, len(t.iceCands))
	for _, c := range t.iceCands {
		out = append(out, IceCandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			IP:         c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
		})
	}
	return out
}

func (t *pionTransport) DtlsParameters() DtlsParameters {
	params, err := t.dtls.GetLocalParameters()
	if err != nil {
		return DtlsParameters{}
	}
	fps := make([]DtlsFingerprint, 0, len(params.Fingerprints))
	for _, fp := range params.Fingerprints {
		fps = append(fps, DtlsFingerprint{Algorithm: fp.Algorithm, Value: fp.Value})
	}
	return DtlsParameters{Fingerprints: fps}
}

func (t *pionTransport) SctpParameters() SctpParameters {
	// This adapter doesn't exercise SCTP/data channels; returned for
	// wire-shape parity with a real mediasoup transport payload.
	return SctpParameters{}
}

func (t *pionTransport) Connect(ctx context.Context, dtls DtlsParameters) error {
	fps := make([]webrtc.DTLSFingerprint, 0, len(dtls.Fingerprints))
	for _, fp := range dtls.Fingerprints {
		fps = append(fps, webrtc.DTLSFingerprint{Algorithm: fp.Algorithm, Value: fp.Value})
	}
	role := webrtc.DTLSRoleServer
	if dtls.Role == "server" {
		role = webrtc.DTLSRoleClient
	}
	return t.dtls.Start(webrtc.DTLSParameters{Role: role, Fingerprints: fps})
}

func (t *pionTransport) Produce(ctx context.Context, opts ProducerOptions) (Producer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errClosed("transport")
	}
	t.mu.Unlock()

	kind := webrtc.RTPCodecTypeAudio
	if opts.Kind == "video" {
		kind = webrtc.RTPCodecTypeVideo
	}

	receiver, err := t.api.NewRTPReceiver(kind, t.dtls)
	if err != nil {
		return nil, err
	}

	encodings := make([]webrtc.RTPDecodingParameters, 0, max(1, len(opts.RtpParameters.Encodings)))
	if len(opts.RtpParameters.Encodings) == 0 {
		encodings = append(encodings, webrtc.RTPDecodingParameters{})
	}
	for _, e := range opts.RtpParameters.Encodings {
		encodings = append(encodings, webrtc.RTPDecodingParameters{
			RTPCodingParameters: webrtc.RTPCodingParameters{SSRC: webrtc.SSRC(e.Ssrc)},
		})
	}
	if err := receiver.Receive(webrtc.RTPReceiveParameters{Encodings: encodings}); err != nil {
		return nil, err
	}

	p := newProducer(opts.Kind, opts.PeerID, receiver)

	t.mu.Lock()
	t.producers[p.ID()] = p
	t.mu.Unlock()

	log.Info().Str("module", "mw.transport").Str("transport", t.id).Str("producer", p.ID()).Str("kind", opts.Kind).Msg("producer created")
	return p, nil
}

func (t *pionTransport) Consume(ctx context.Context, opts ConsumerOptions) (Consumer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errClosed("transport")
	}
	t.mu.Unlock()

	if opts.Source == nil || opts.Source.Closed() {
		return nil, errNotFound("producer")
	}
	src := opts.Source.track()

	local, err := webrtc.NewTrackLocalStaticRTP(src.Codec().RTPCodecCapability, uuid.NewString(), "sfucore")
	if err != nil {
		return nil, err
	}

	sender, err := t.api.NewRTPSender(local, t.dtls)
	if err != nil {
		return nil, err
	}
	if err := sender.Send(webrtc.RTPSendParameters{
		RTPParameters: sender.GetParameters().RTPParameters,
		Encodings:     []webrtc.RTPEncodingParameters{{}},
	}); err != nil {
		return nil, err
	}

	c := newConsumer(opts.ProducerID, src.Kind().String(), local, sender, opts.Source)
	opts.Source.subscribe(c.ID(), local, c.notifyProducerClosed)

	t.mu.Lock()
	t.consumers[c.ID()] = c
	t.mu.Unlock()

	log.Info().Str("module", "mw.transport").Str("transport", t.id).Str("consumer", c.ID()).Str("producer_id", opts.ProducerID).Msg("consumer created")
	return c, nil
}

func (t *pionTransport) OnClose(fn func()) { t.onClose = fn }

func (t *pionTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	producers := make([]*pionProducer, 0, len(t.producers))
	for _, p := range t.producers {
		producers = append(producers, p)
	}
	consumers := make([]*pionConsumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.mu.Unlock()

	for _, p := range producers {
		p.Close()
	}
	for _, c := range consumers {
		c.Close()
	}
	_ = t.dtls.Stop()
	_ = t.ice.Stop()
	_ = t.gatherer.Close()

	if t.onClose != nil {
		t.onClose()
	}
	log.Info().Str("module", "mw.transport").Str("transport", t.id).Msg("transport closed")
}

func (t *pionTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func errNotFound(what string) error {
	return &notFoundError{what: what}
}

type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return e.what + " not found" }
