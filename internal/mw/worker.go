package mw

import (
	"context"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WorkerConfig holds the process-level media constants from spec §4.4
// and §6: listen/announced IPs, the RTC UDP port range, and the
// initial outgoing bitrate hint. NewWorker applies the port range and
// the announced IP; ListenIP is only logged, and InitialOutgoingBitrate
// is stored but not applied to any transport.
type WorkerConfig struct {
	ListenIP                 string
	AnnouncedIP              string
	RTCMinPort               uint16
	RTCMaxPort               uint16
	InitialOutgoingBitrate   int
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ListenIP:               "0.0.0.0",
		AnnouncedIP:            "127.0.0.1",
		RTCMinPort:             40000,
		RTCMaxPort:             49999,
		InitialOutgoingBitrate: 800000,
	}
}

// pionWorker is the single process-wide media worker (spec §4.4): one
// shared pion API instance and setting engine reused by every Router.
// Grounded on PufferBlow-media-sfu's newServer(), which builds exactly
// one webrtc.SettingEngine + webrtc.API pair for the whole process.
type pionWorker struct {
	cfg           WorkerConfig
	settingEngine webrtc.SettingEngine

	mu     sync.Mutex
	closed bool
}

func NewWorker(cfg WorkerConfig) (Worker, error) {
	se := webrtc.SettingEngine{}
	if err := se.SetEphemeralUDPPortRange(cfg.RTCMinPort, cfg.RTCMaxPort); err != nil {
		return nil, err
	}
	se.SetNAT1To1IPs([]string{cfg.AnnouncedIP}, webrtc.ICECandidateTypeHost)

	log.Info().
		Str("module", "mw.worker").
		Str("listen_ip", cfg.ListenIP).
		Str("announced_ip", cfg.AnnouncedIP).
		Uint16("rtc_min_port", cfg.RTCMinPort).
		Uint16("rtc_max_port", cfg.RTCMaxPort).
		Msg("media worker started")

	return &pionWorker{cfg: cfg, settingEngine: se}, nil
}

func (w *pionWorker) CreateRouter(ctx context.Context) (Router, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, errClosed("worker")
	}
	w.mu.Unlock()

	me := &webrtc.MediaEngine{}
	caps, err := registerCodecs(me)
	if err != nil {
		return nil, err
	}

	ir := &interceptor.Registry{}
	if err := registerAudioLevelInterceptor(me, ir); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(me),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(w.settingEngine),
	)

	return newRouter(api, caps, w.cfg), nil
}

func (w *pionWorker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	log.Info().Str("module", "mw.worker").Msg("media worker closed")
}
