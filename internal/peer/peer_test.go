package peer

import (
	"context"
	"testing"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/mw"
)

type fakeConn struct {
	sent   []any
	closed bool
}

func (c *fakeConn) ID() string { return "conn-1" }
func (c *fakeConn) SendJSON(v any) error {
	c.sent = append(c.sent, v)
	return nil
}
func (c *fakeConn) Close() error { c.closed = true; return nil }

type fakeTransport struct {
	id     string
	closed bool
}

func (t *fakeTransport) ID() string                        { return t.id }
func (t *fakeTransport) IceParameters() mw.IceParameters    { return mw.IceParameters{} }
func (t *fakeTransport) IceCandidates() []mw.IceCandidate   { return nil }
func (t *fakeTransport) DtlsParameters() mw.DtlsParameters  { return mw.DtlsParameters{} }
func (t *fakeTransport) SctpParameters() mw.SctpParameters  { return mw.SctpParameters{} }
func (t *fakeTransport) Connect(ctx context.Context, d mw.DtlsParameters) error { return nil }
func (t *fakeTransport) Produce(ctx context.Context, opts mw.ProducerOptions) (mw.Producer, error) {
	return nil, nil
}
func (t *fakeTransport) Consume(ctx context.Context, opts mw.ConsumerOptions) (mw.Consumer, error) {
	return nil, nil
}
func (t *fakeTransport) OnClose(func()) {}
func (t *fakeTransport) Close()         { t.closed = true }
func (t *fakeTransport) Closed() bool   { return t.closed }

type fakeConsumer struct {
	id     string
	closed bool
}

func (c *fakeConsumer) ID() string                   { return c.id }
func (c *fakeConsumer) ProducerID() string            { return "upstream-1" }
func (c *fakeConsumer) Kind() string                  { return "audio" }
func (c *fakeConsumer) RtpParameters() mw.RtpParameters { return mw.RtpParameters{} }
func (c *fakeConsumer) OnProducerClose(func())        {}
func (c *fakeConsumer) Close()                        { c.closed = true }
func (c *fakeConsumer) Closed() bool                  { return c.closed }

func newTestPeer() (*Peer, *fakeConn) {
	conn := &fakeConn{}
	p := New("peer-1", "Alice", "room-1", conn)
	return p, conn
}

func TestNewPeerStartsInNewState(t *testing.T) {
	p, _ := newTestPeer()
	if p.State() != domain.PeerNew {
		t.Errorf("initial state = %v, want PeerNew", p.State())
	}
}

func TestPeerStateTransitions(t *testing.T) {
	p, _ := newTestPeer()
	p.SetState(domain.PeerConnected)
	if p.State() != domain.PeerConnected {
		t.Errorf("state after SetState = %v, want PeerConnected", p.State())
	}
}

func TestPeerSendDelegatesToConn(t *testing.T) {
	p, conn := newTestPeer()
	if err := p.Send(map[string]string{"type": "pong"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("conn received %d messages, want 1", len(conn.sent))
	}
}

func TestTransportByID(t *testing.T) {
	p, _ := newTestPeer()
	send := &fakeTransport{id: "t-send"}
	recv := &fakeTransport{id: "t-recv"}
	p.SetSendTransport(send)
	p.SetRecvTransport(recv)

	if got, ok := p.TransportByID("t-send"); !ok || got != send {
		t.Error("expected t-send to resolve to the send transport")
	}
	if got, ok := p.TransportByID("t-recv"); !ok || got != recv {
		t.Error("expected t-recv to resolve to the recv transport")
	}
	if _, ok := p.TransportByID("nonexistent"); ok {
		t.Error("expected lookup of unknown transport id to fail")
	}
}

func TestProducerAccounting(t *testing.T) {
	p, _ := newTestPeer()
	rec := &Producer{ID: "prod-1", Source: domain.SourceMic, Kind: domain.KindAudio}
	p.AddProducer(rec)

	got, ok := p.Producer("prod-1")
	if !ok || got != rec {
		t.Fatal("expected to find prod-1")
	}
	if len(p.Producers()) != 1 {
		t.Fatalf("Producers() len = %d, want 1", len(p.Producers()))
	}

	p.RemoveProducer("prod-1")
	if _, ok := p.Producer("prod-1"); ok {
		t.Error("expected prod-1 to be removed")
	}
	if len(p.Producers()) != 0 {
		t.Error("expected no producers after removal")
	}
}

func TestConsumerAccountingKeyedByUpstream(t *testing.T) {
	p, _ := newTestPeer()
	rec := &Consumer{ID: "cons-1", ProducerID: "upstream-1"}
	p.AddConsumer(rec)

	got, ok := p.ConsumerByUpstream("upstream-1")
	if !ok || got != rec {
		t.Fatal("expected to find consumer by upstream producer id")
	}

	p.RemoveConsumerByUpstream("upstream-1")
	if _, ok := p.ConsumerByUpstream("upstream-1"); ok {
		t.Error("expected consumer to be removed")
	}
}

func TestCleanupClosesTransportsAndConsumers(t *testing.T) {
	p, conn := newTestPeer()
	send := &fakeTransport{id: "t-send"}
	recv := &fakeTransport{id: "t-recv"}
	p.SetSendTransport(send)
	p.SetRecvTransport(recv)

	cons := &fakeConsumer{id: "cons-1"}
	p.AddConsumer(&Consumer{ID: "cons-1", ProducerID: "upstream-1", Handle: cons})

	result := p.Cleanup()
	if !result.Performed {
		t.Fatal("expected first Cleanup call to perform the teardown")
	}
	if !send.closed || !recv.closed {
		t.Error("expected both transports to be closed")
	}
	if !cons.closed {
		t.Error("expected consumer handle to be closed")
	}
	if p.State() != domain.PeerDisconnected {
		t.Errorf("state after Cleanup = %v, want PeerDisconnected", p.State())
	}
	if len(p.Consumers()) != 0 {
		t.Error("expected consumers to be cleared")
	}
	_ = conn
}

func TestCleanupIsIdempotent(t *testing.T) {
	p, _ := newTestPeer()
	first := p.Cleanup()
	second := p.Cleanup()

	if !first.Performed {
		t.Error("expected first Cleanup call to perform teardown")
	}
	if second.Performed {
		t.Error("expected second Cleanup call to be a no-op")
	}
}
