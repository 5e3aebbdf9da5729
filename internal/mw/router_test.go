package mw

import (
	"context"
	"testing"
)

func newTestRouter(t *testing.T) Router {
	t.Helper()
	w, err := NewWorker(DefaultWorkerConfig())
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	t.Cleanup(w.Close)

	r, err := w.CreateRouter(context.Background())
	if err != nil {
		t.Fatalf("CreateRouter: %v", err)
	}
	return r
}

func TestRouterCloseIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	r.Close()
	r.Close() // must not panic on double-close

	if !r.Closed() {
		t.Error("expected router to report closed")
	}
}

func TestCreateWebRtcTransportFailsAfterClose(t *testing.T) {
	r := newTestRouter(t)
	r.Close()

	if _, err := r.CreateWebRtcTransport(context.Background(), "send"); err == nil {
		t.Error("expected CreateWebRtcTransport to fail once the router is closed")
	}
}

func TestCreateAudioLevelObserverReturnsUsableObserver(t *testing.T) {
	r := newTestRouter(t)
	o, err := r.CreateAudioLevelObserver(800, -80)
	if err != nil {
		t.Fatalf("CreateAudioLevelObserver: %v", err)
	}
	defer o.Close()

	called := false
	o.OnVolumes(func(string, float64) { called = true })
	_ = called // exercised by observer_test.go's tick-level tests; this only checks wiring doesn't panic
}
