package signaling

import (
	"context"
	"sync"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/mw"
	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/nimbusrtc/sfucore/internal/room"
)

// RoomManager materializes a Room on first reference and hands back the
// existing one on every subsequent reference (spec §4.1: createRoom and
// joinRoom both "idempotently materialize Room(id)"; S6 requires
// concurrent createRoom calls to produce exactly one Router).
//
// Grounded on internal/core/room_impl.go's single-owner construction,
// generalized with one mutex serializing the get-or-create race that
// the teacher's single-room process never had to handle.
type RoomManager struct {
	reg    *registry.Registry
	worker mw.Worker

	observerIntervalMs    int
	observerThresholdDBFS int

	mu sync.Mutex
}

func NewRoomManager(reg *registry.Registry, worker mw.Worker, observerIntervalMs, observerThresholdDBFS int) *RoomManager {
	return &RoomManager{
		reg:                   reg,
		worker:                worker,
		observerIntervalMs:    observerIntervalMs,
		observerThresholdDBFS: observerThresholdDBFS,
	}
}

func (rm *RoomManager) GetOrCreate(ctx context.Context, id domain.RoomID) (*room.Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if handle, ok := rm.reg.Room(id); ok {
		return handle.(*room.Room), nil
	}

	router, err := rm.worker.CreateRouter(ctx)
	if err != nil {
		return nil, err
	}
	observer, err := router.CreateAudioLevelObserver(rm.observerIntervalMs, rm.observerThresholdDBFS)
	if err != nil {
		router.Close()
		return nil, err
	}

	r := room.New(id, router, observer)
	rm.reg.PutRoom(r)
	return r, nil
}

// Get looks an existing room up without creating one.
func (rm *RoomManager) Get(id domain.RoomID) (*room.Room, bool) {
	handle, ok := rm.reg.Room(id)
	if !ok {
		return nil, false
	}
	return handle.(*room.Room), true
}
