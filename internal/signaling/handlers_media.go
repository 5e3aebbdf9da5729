package signaling

import (
	"context"

	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/nimbusrtc/sfucore/internal/mw"
	"github.com/nimbusrtc/sfucore/internal/peer"
	"github.com/nimbusrtc/sfucore/internal/room"
)

func (d *Dispatcher) handleProduce(ctx context.Context, sess *session, req Request) (any, error) {
	p, r, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	st := p.SendTransport()
	if st == nil {
		return nil, ErrSendTransportMissing
	}

	kind := domain.Kind(req.Kind)
	if !kind.Valid() {
		return nil, ErrInvalidRequest
	}
	source := domain.Source(req.Source)
	if source == "" {
		source = domain.DefaultSource(kind)
	}

	var rtpParams mw.RtpParameters
	if req.RtpParameters != nil {
		rtpParams = *req.RtpParameters
	}

	handle, err := st.Produce(ctx, mw.ProducerOptions{
		Kind:          req.Kind,
		PeerID:        string(p.ID),
		RtpParameters: rtpParams,
	})
	if err != nil {
		return nil, err
	}

	rec := &peer.Producer{
		ID:     domain.ProducerID(handle.ID()),
		Source: source,
		Kind:   kind,
		Handle: handle,
	}
	p.AddProducer(rec)

	if kind == domain.KindAudio {
		r.Observer().AddProducer(handle)
	}

	handle.OnTransportClose(func() {
		p.RemoveProducer(rec.ID)
		r.Broadcast(room.ProducerClosed{Type: "producerClosed", PeerID: string(p.ID), ProducerID: string(rec.ID)}, p.ID)
	})

	r.Broadcast(room.NewProducer{
		Type:        "newProducer",
		ID:          string(rec.ID),
		PeerID:      string(p.ID),
		Kind:        string(kind),
		Source:      string(source),
		DisplayName: p.DisplayName,
	}, p.ID)

	return produceResponse{Type: "produceResponse", ReqID: req.ReqID, ID: string(rec.ID)}, nil
}

func (d *Dispatcher) handleConsume(ctx context.Context, sess *session, req Request) (any, error) {
	p, r, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	rt := p.RecvTransport()
	if rt == nil {
		return nil, ErrRecvTransportMissing
	}
	if req.ProducerID == "" {
		return nil, ErrInvalidRequest
	}

	producerID := domain.ProducerID(req.ProducerID)
	rec, ownerID, ok := r.FindProducer(producerID)
	if !ok {
		return nil, ErrProducerNotFound
	}
	if ownerID == p.ID {
		return nil, ErrSelfConsume
	}

	var caps mw.RtpCapabilities
	if req.RtpCapabilities != nil {
		caps = *req.RtpCapabilities
	}

	handle, err := rt.Consume(ctx, mw.ConsumerOptions{
		ProducerID:      string(producerID),
		Source:          rec.Handle,
		RtpCapabilities: caps,
	})
	if err != nil {
		return nil, err
	}

	consumerRec := &peer.Consumer{
		ID:         domain.ConsumerID(handle.ID()),
		PeerID:     ownerID,
		ProducerID: producerID,
		Handle:     handle,
	}
	p.AddConsumer(consumerRec)

	handle.OnProducerClose(func() {
		p.RemoveConsumerByUpstream(producerID)
	})

	ownerPeer, _ := r.Peer(ownerID)
	displayName := ""
	if ownerPeer != nil {
		displayName = ownerPeer.DisplayName
	}

	return consumeResponse{
		Type:          "consumeResponse",
		ReqID:         req.ReqID,
		ID:            string(consumerRec.ID),
		ProducerID:    string(producerID),
		Kind:          string(rec.Kind),
		RtpParameters: handle.RtpParameters(),
		PeerID:        string(ownerID),
		DisplayName:   displayName,
		Source:        string(rec.Source),
	}, nil
}

func (d *Dispatcher) handlePauseProducer(ctx context.Context, sess *session, req Request) (any, error) {
	p, _, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	rec, ok := p.Producer(domain.ProducerID(req.ProducerID))
	if !ok {
		return nil, ErrProducerNotOwned
	}
	if err := rec.Handle.Pause(ctx); err != nil {
		return nil, err
	}
	rec.SetPaused(true)
	return successResponse{Type: "pauseProducerResponse", ReqID: req.ReqID, Success: true}, nil
}

func (d *Dispatcher) handleResumeProducer(ctx context.Context, sess *session, req Request) (any, error) {
	p, _, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	rec, ok := p.Producer(domain.ProducerID(req.ProducerID))
	if !ok {
		return nil, ErrProducerNotOwned
	}
	if err := rec.Handle.Resume(ctx); err != nil {
		return nil, err
	}
	rec.SetPaused(false)
	return successResponse{Type: "resumeProducerResponse", ReqID: req.ReqID, Success: true}, nil
}

func (d *Dispatcher) handleSetProducerMuted(ctx context.Context, sess *session, req Request) (any, error) {
	p, r, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	rec, ok := p.Producer(domain.ProducerID(req.ProducerID))
	if !ok {
		return nil, ErrProducerNotOwned
	}
	if req.Muted == nil {
		return nil, ErrInvalidRequest
	}
	rec.SetMuted(*req.Muted)

	r.Broadcast(room.ProducerMuted{Type: "producerMuted", ProducerID: string(rec.ID), Muted: *req.Muted}, p.ID)

	return successResponse{Type: "setProducerMutedResponse", ReqID: req.ReqID, Success: true}, nil
}

func (d *Dispatcher) handleCloseProducer(ctx context.Context, sess *session, req Request) (any, error) {
	p, _, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	rec, ok := p.Producer(domain.ProducerID(req.ProducerID))
	if !ok {
		return nil, ErrProducerNotOwned
	}
	// rec.Handle.Close() invokes the OnTransportClose callback wired in
	// handleProduce, which removes the record from p and broadcasts
	// producerClosed; doing either of those here as well would double
	// it up for this same close.
	rec.Handle.Close()

	return successResponse{Type: "closeProducerResponse", ReqID: req.ReqID, Success: true}, nil
}
