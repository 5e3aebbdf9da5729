// Package signaling is the Signaling Dispatcher (spec §4.1): per-
// connection parsing of JSON request frames, routing to a typed
// handler, and correlated response emission plus asynchronous
// server-initiated notifications.
//
// Grounded on the teacher's envelope-then-dispatch shape
// (internal/adapters/signal/signal.go) and PufferBlow-media-sfu's flat
// signalMessage struct carrying every request's optional fields.
package signaling

import "github.com/nimbusrtc/sfucore/internal/mw"

// Request is the wire shape of every client->server frame. Only the
// fields relevant to Type are populated; the rest are the zero value.
type Request struct {
	Type        string `json:"type"`
	ReqID       string `json:"reqId,omitempty"`
	RoomID      string `json:"roomId,omitempty"`
	PeerID      string `json:"peerId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	Direction      string               `json:"direction,omitempty"`
	TransportID    string               `json:"transportId,omitempty"`
	DtlsParameters *mw.DtlsParameters   `json:"dtlsParameters,omitempty"`

	Kind            string              `json:"kind,omitempty"`
	Source          string              `json:"source,omitempty"`
	RtpParameters   *mw.RtpParameters   `json:"rtpParameters,omitempty"`
	RtpCapabilities *mw.RtpCapabilities `json:"rtpCapabilities,omitempty"`
	ProducerID      string              `json:"producerId,omitempty"`
	Muted           *bool               `json:"muted,omitempty"`
}

// errorResponse is the shape spec §6 mandates for a failed request:
// `{reqId?, error: <human-readable string>}`.
type errorResponse struct {
	ReqID string `json:"reqId,omitempty"`
	Error string `json:"error"`
}

type pongResponse struct {
	Type string `json:"type"`
}

type createRoomResponse struct {
	Type    string `json:"type"`
	ReqID   string `json:"reqId,omitempty"`
	Success bool   `json:"success"`
}

type peerSnapshot struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	ConnectionState string `json:"connectionState"`
}

type producerSnapshot struct {
	ID          string `json:"id"`
	PeerID      string `json:"peerId"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	DisplayName string `json:"displayName"`
}

type joinRoomResponse struct {
	Type            string             `json:"type"`
	ReqID           string             `json:"reqId,omitempty"`
	RtpCapabilities mw.RtpCapabilities `json:"rtpCapabilities"`
	Peers           []peerSnapshot     `json:"peers"`
	Producers       []producerSnapshot `json:"producers"`
}

type createTransportResponse struct {
	Type            string             `json:"type"`
	ReqID           string             `json:"reqId,omitempty"`
	ID              string             `json:"id"`
	IceParameters   mw.IceParameters   `json:"iceParameters"`
	IceCandidates   []mw.IceCandidate  `json:"iceCandidates"`
	DtlsParameters  mw.DtlsParameters  `json:"dtlsParameters"`
	SctpParameters  mw.SctpParameters  `json:"sctpParameters"`
}

type successResponse struct {
	Type    string `json:"type"`
	ReqID   string `json:"reqId,omitempty"`
	Success bool   `json:"success"`
}

type produceResponse struct {
	Type  string `json:"type"`
	ReqID string `json:"reqId,omitempty"`
	ID    string `json:"id"`
}

type consumeResponse struct {
	Type          string            `json:"type"`
	ReqID         string            `json:"reqId,omitempty"`
	ID            string            `json:"id"`
	ProducerID    string            `json:"producerId"`
	Kind          string            `json:"kind"`
	RtpParameters mw.RtpParameters  `json:"rtpParameters"`
	PeerID        string            `json:"peerId"`
	DisplayName   string            `json:"displayName"`
	Source        string            `json:"source"`
}
