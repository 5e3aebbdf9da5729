package mw

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// pionRouter owns one router per Room: the shared pion API, the fixed
// RtpCapabilities derived at registration time, and every transport
// created against it. Closing a router closes every transport it
// created, mirroring spec §3's "audioObserver and router share the
// Room's lifetime" invariant.
//
// Grounded on internal/core/room_impl.go's owner-of-collection shape
// (RWMutex-guarded map + per-entity cleanup), applied here to
// transports instead of peers.
type pionRouter struct {
	id  string
	api *webrtc.API
	cfg WorkerConfig
	rc  RtpCapabilities

	mu         sync.Mutex
	transports map[string]*pionTransport
	closed     bool
}

func newRouter(api *webrtc.API, caps RtpCapabilities, cfg WorkerConfig) *pionRouter {
	return &pionRouter{
		id:         uuid.NewString(),
		api:        api,
		cfg:        cfg,
		rc:         caps,
		transports: make(map[string]*pionTransport),
	}
}

func (r *pionRouter) ID() string                      { return r.id }
func (r *pionRouter) RtpCapabilities() RtpCapabilities { return r.rc }

func (r *pionRouter) CreateWebRtcTransport(ctx context.Context, direction string) (Transport, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errClosed("router")
	}
	r.mu.Unlock()

	t, err := newTransport(ctx, r.api, r.cfg, direction)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		t.Close()
		return nil, errClosed("router")
	}
	r.transports[t.ID()] = t
	r.mu.Unlock()

	t.OnClose(func() {
		r.mu.Lock()
		delete(r.transports, t.ID())
		r.mu.Unlock()
	})

	log.Info().Str("module", "mw.router").Str("router", r.id).Str("transport", t.ID()).Str("direction", direction).Msg("transport created")
	return t, nil
}

func (r *pionRouter) CreateAudioLevelObserver(interval int, threshold int) (AudioLevelObserver, error) {
	return newAudioLevelObserver(interval, threshold), nil
}

func (r *pionRouter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	transports := make([]*pionTransport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = map[string]*pionTransport{}
	r.mu.Unlock()

	for _, t := range transports {
		t.Close()
	}
	log.Info().Str("module", "mw.router").Str("router", r.id).Msg("router closed")
}

func (r *pionRouter) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
