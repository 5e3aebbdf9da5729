package signaling

import (
	"context"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/peer"
	"github.com/nimbusrtc/sfucore/internal/room"
)

func (d *Dispatcher) handleCreateRoom(ctx context.Context, sess *session, req Request) (any, error) {
	if req.RoomID == "" {
		return nil, ErrInvalidRequest
	}
	if _, err := d.rooms.GetOrCreate(ctx, domain.RoomID(req.RoomID)); err != nil {
		return nil, err
	}
	return createRoomResponse{Type: "createRoomResponse", ReqID: req.ReqID, Success: true}, nil
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, sess *session, req Request) (any, error) {
	if req.RoomID == "" || req.PeerID == "" {
		return nil, ErrInvalidRequest
	}
	if _, _, bound := sess.get(); bound {
		return nil, ErrPeerAlreadyBound
	}

	r, err := d.rooms.GetOrCreate(ctx, domain.RoomID(req.RoomID))
	if err != nil {
		return nil, err
	}

	peerID := domain.PeerID(req.PeerID)
	if _, exists := r.Peer(peerID); exists || d.reg.PeerIDTaken(peerID) {
		return nil, ErrPeerIDTaken
	}

	p := peer.New(peerID, req.DisplayName, r.ID(), sess.conn)
	p.SetState(domain.PeerConnecting)

	r.AddPeer(p)
	d.reg.BindConn(sess.conn, p.ID, r.ID())
	sess.attach(p, r)

	r.Broadcast(room.PeerJoined{Type: "peerJoined", PeerID: req.PeerID, DisplayName: req.DisplayName}, p.ID)

	others := r.Peers()
	peers := make([]peerSnapshot, 0, len(others))
	producers := make([]producerSnapshot, 0)
	for _, other := range others {
		if other.ID == p.ID {
			continue
		}
		peers = append(peers, peerSnapshot{
			ID:              string(other.ID),
			DisplayName:     other.DisplayName,
			ConnectionState: other.State().String(),
		})
		for _, rec := range other.Producers() {
			producers = append(producers, producerSnapshot{
				ID:          string(rec.ID),
				PeerID:      string(other.ID),
				Kind:        string(rec.Kind),
				Source:      string(rec.Source),
				DisplayName: other.DisplayName,
			})
		}
	}

	p.SetState(domain.PeerConnected)

	return joinRoomResponse{
		Type:            "joinRoomResponse",
		ReqID:           req.ReqID,
		RtpCapabilities: r.Router().RtpCapabilities(),
		Peers:           peers,
		Producers:       producers,
	}, nil
}
