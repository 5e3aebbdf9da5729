package mw

import (
	"context"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// fakeProducer satisfies Producer without any real pion transport, so
// observer.go's tick logic can be exercised in isolation.
type fakeProducer struct {
	id     string
	kind   string
	peerID string
	tap    func(pkt *rtp.Packet)
}

func (f *fakeProducer) ID() string     { return f.id }
func (f *fakeProducer) Kind() string   { return f.kind }
func (f *fakeProducer) PeerID() string { return f.peerID }
func (f *fakeProducer) Pause(ctx context.Context) error  { return nil }
func (f *fakeProducer) Resume(ctx context.Context) error { return nil }
func (f *fakeProducer) Paused() bool                     { return false }
func (f *fakeProducer) OnTransportClose(func())          {}
func (f *fakeProducer) Close()                           {}
func (f *fakeProducer) Closed() bool                      { return false }
func (f *fakeProducer) track() *webrtc.TrackRemote        { return nil }
func (f *fakeProducer) subscribe(string, *webrtc.TrackLocalStaticRTP, func()) {}
func (f *fakeProducer) unsubscribe(string)                              {}
func (f *fakeProducer) muteSubscriber(string, bool)                     {}
func (f *fakeProducer) tapRTP(fn func(pkt *rtp.Packet))                 { f.tap = fn }

func TestObserverReportsLoudestAboveThreshold(t *testing.T) {
	o := newAudioLevelObserver(800, -80)

	quiet := &fakeProducer{id: "p-quiet", kind: "audio", peerID: "peer-quiet"}
	loud := &fakeProducer{id: "p-loud", kind: "audio", peerID: "peer-loud"}
	o.AddProducer(quiet)
	o.AddProducer(loud)

	o.levels["p-quiet"] = -90
	o.levels["p-loud"] = -10

	var gotPeer string
	var gotVolume float64
	o.OnVolumes(func(peerID string, volume float64) {
		gotPeer = peerID
		gotVolume = volume
	})

	o.tick()

	if gotPeer != "peer-loud" {
		t.Errorf("reported peer = %q, want peer-loud", gotPeer)
	}
	if gotVolume != -10 {
		t.Errorf("reported volume = %v, want -10", gotVolume)
	}
}

func TestObserverSkipsBelowThreshold(t *testing.T) {
	o := newAudioLevelObserver(800, -80)
	p := &fakeProducer{id: "p1", kind: "audio", peerID: "peer-1"}
	o.AddProducer(p)
	o.levels["p1"] = -95

	called := false
	o.OnVolumes(func(string, float64) { called = true })
	o.tick()

	if called {
		t.Error("expected no callback when every level is below threshold")
	}
}

func TestObserverIgnoresVideoProducers(t *testing.T) {
	o := newAudioLevelObserver(800, -80)
	p := &fakeProducer{id: "p1", kind: "video", peerID: "peer-1"}
	o.AddProducer(p)

	if _, ok := o.producers["p1"]; ok {
		t.Error("expected a video producer to be rejected by AddProducer")
	}
}

func TestObserverRemoveProducerClearsLevel(t *testing.T) {
	o := newAudioLevelObserver(800, -80)
	p := &fakeProducer{id: "p1", kind: "audio", peerID: "peer-1"}
	o.AddProducer(p)
	o.levels["p1"] = -5

	o.RemoveProducer(p)

	if _, ok := o.levels["p1"]; ok {
		t.Error("expected level entry to be removed")
	}
	if _, ok := o.producers["p1"]; ok {
		t.Error("expected producer entry to be removed")
	}
}

func TestObserverCloseIsIdempotent(t *testing.T) {
	o := newAudioLevelObserver(800, -80)
	o.Close()
	o.Close() // must not panic on double-close
}
