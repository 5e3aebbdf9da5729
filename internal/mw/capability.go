// Package mw is the MediaWorker Adapter (spec §4.4): a thin capability
// abstraction over the external media engine. Everything above this
// package talks to routers, transports, producers and consumers only
// through these interfaces, never through the pion/webrtc types they
// happen to be implemented with today.
package mw

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RtpCapabilities advertises the codecs and RTP header extensions a
// Router supports, so clients can negotiate compatible producers.
type RtpCapabilities struct {
	Codecs             []RtpCodecCapability `json:"codecs"`
	HeaderExtensions   []RtpHeaderExtension `json:"headerExtensions,omitempty"`
}

type RtpCodecCapability struct {
	Kind         string `json:"kind"`
	MimeType     string `json:"mimeType"`
	ClockRate    uint32 `json:"clockRate"`
	Channels     uint16 `json:"channels,omitempty"`
	PayloadType  uint8  `json:"preferredPayloadType,omitempty"`
}

type RtpHeaderExtension struct {
	Kind string `json:"kind"`
	URI  string `json:"uri"`
	ID   int    `json:"preferredId"`
}

// RtpParameters describes how a client is sending (produce) or wants
// to receive (consume) a single RTP stream, opaque to this adapter
// beyond what it needs to hand to pion.
type RtpParameters struct {
	Codecs         []RtpCodecParameters `json:"codecs"`
	Encodings      []RtpEncodingParameters `json:"encodings,omitempty"`
	Mid            string                  `json:"mid,omitempty"`
}

type RtpCodecParameters struct {
	MimeType    string `json:"mimeType"`
	PayloadType uint8  `json:"payloadType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
}

// RtpEncodingParameters is the simulcast/bitrate hint attached to a
// produce request. The adapter never synthesizes these; they are a
// verbatim input (spec §4.4).
type RtpEncodingParameters struct {
	Rid            string `json:"rid,omitempty"`
	Ssrc           uint32 `json:"ssrc,omitempty"`
	MaxBitrate     int    `json:"maxBitrate,omitempty"`
	ScalabilityMode string `json:"scalabilityMode,omitempty"`
}

// IceParameters and IceCandidate mirror the ICE-lite, non-SDP shape a
// mediasoup-style WebRtcTransport returns from CreateWebRtcTransport.
type IceParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	IceLite          bool   `json:"iceLite"`
}

type IceCandidate struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	IP         string `json:"ip"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

// DtlsParameters carries the DTLS fingerprint(s) and role exchanged on
// transport creation/connect.
type DtlsParameters struct {
	Role         string              `json:"role,omitempty"`
	Fingerprints []DtlsFingerprint   `json:"fingerprints"`
}

type DtlsFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// SctpParameters is returned for parity with mediasoup's transport
// payload; this adapter does not exercise data channels itself.
type SctpParameters struct {
	Port           uint16 `json:"port"`
	OS             uint16 `json:"os"`
	MIS            uint16 `json:"mis"`
	MaxMessageSize uint32 `json:"maxMessageSize"`
}

// ProducerOptions is the input to Transport.Produce.
type ProducerOptions struct {
	Kind          string
	PeerID        string
	RtpParameters RtpParameters
	AppData       map[string]any
}

// ConsumerOptions is the input to Transport.Consume. Source carries the
// actual upstream Producer: the Room/Peer layer owns the peerId->Producer
// bookkeeping (spec §4.2/§4.3), so this adapter is handed the producer
// directly instead of re-deriving it from an id.
type ConsumerOptions struct {
	ProducerID      string
	Source          Producer
	RtpCapabilities RtpCapabilities
	Paused          bool
}

// Worker is the process-wide media engine handle: created once at
// startup and shared by every Router (spec §4.4).
type Worker interface {
	CreateRouter(ctx context.Context) (Router, error)
	Close()
}

// Router routes RTP for a single Room.
type Router interface {
	ID() string
	RtpCapabilities() RtpCapabilities
	CreateWebRtcTransport(ctx context.Context, direction string) (Transport, error)
	CreateAudioLevelObserver(interval int, threshold int) (AudioLevelObserver, error)
	Close()
	Closed() bool
}

// Transport is a DTLS/ICE channel between one client and the router.
type Transport interface {
	ID() string
	IceParameters() IceParameters
	IceCandidates() []IceCandidate
	DtlsParameters() DtlsParameters
	SctpParameters() SctpParameters
	Connect(ctx context.Context, dtls DtlsParameters) error
	Produce(ctx context.Context, opts ProducerOptions) (Producer, error)
	Consume(ctx context.Context, opts ConsumerOptions) (Consumer, error)
	OnClose(func())
	Close()
	Closed() bool
}

// Producer is an uplink media stream from a peer to the router.
type Producer interface {
	ID() string
	Kind() string
	// PeerID is the owning peer's id, stamped into AppData at creation
	// (spec §9 Open Question 2) so worker-initiated events and the
	// audio-level observer can attribute a producer without a reverse
	// lookup through the router.
	PeerID() string
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Paused() bool
	OnTransportClose(func())
	Close()
	Closed() bool

	// track exposes the underlying remote track so an
	// AudioLevelObserver or a Consumer relay can attach to it. Not
	// part of the mediasoup-shaped public capability; internal to
	// this adapter's own implementations.
	track() *webrtc.TrackRemote

	// subscribe/unsubscribe/muteSubscriber register a Consumer's
	// OutTrack against this producer's relay (internal/app/sfu's
	// relay/outtrack split). Internal wiring, not part of the
	// mediasoup-shaped capability. onClose is invoked exactly once, when
	// this producer closes, so the Consumer can notify its own
	// OnProducerClose listener (spec §4.4, §8 invariant 5).
	subscribe(consumerID string, track *webrtc.TrackLocalStaticRTP, onClose func())
	unsubscribe(consumerID string)
	muteSubscriber(consumerID string, muted bool)

	// tapRTP installs the AudioLevelObserver's per-packet hook on this
	// producer's relay, so the observer reads levels without becoming
	// a second reader of the TrackRemote.
	tapRTP(fn func(pkt *rtp.Packet))
}

// Consumer is a downlink media stream from the router to a peer, bound
// to exactly one upstream Producer.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() string
	RtpParameters() RtpParameters
	OnProducerClose(func())
	Close()
	Closed() bool
}

// AudioLevelObserver periodically reports the loudest active audio
// producer above a dBFS threshold (spec §4.2).
type AudioLevelObserver interface {
	AddProducer(p Producer)
	RemoveProducer(p Producer)
	OnVolumes(func(peerID string, volume float64))
	Start()
	Close()
}
