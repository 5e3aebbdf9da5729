package signaling

import "context"

func (d *Dispatcher) handleCreateWebRtcTransport(ctx context.Context, sess *session, req Request) (any, error) {
	p, r, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	if req.Direction != "send" && req.Direction != "recv" {
		return nil, ErrInvalidRequest
	}

	t, err := r.Router().CreateWebRtcTransport(ctx, req.Direction)
	if err != nil {
		return nil, err
	}

	if req.Direction == "send" {
		p.SetSendTransport(t)
	} else {
		p.SetRecvTransport(t)
	}

	return createTransportResponse{
		Type:           "createWebRtcTransportResponse",
		ReqID:          req.ReqID,
		ID:             t.ID(),
		IceParameters:  t.IceParameters(),
		IceCandidates:  t.IceCandidates(),
		DtlsParameters: t.DtlsParameters(),
		SctpParameters: t.SctpParameters(),
	}, nil
}

func (d *Dispatcher) handleConnectWebRtcTransport(ctx context.Context, sess *session, req Request) (any, error) {
	p, _, err := d.currentPeer(sess)
	if err != nil {
		return nil, err
	}
	if req.TransportID == "" || req.DtlsParameters == nil {
		return nil, ErrInvalidRequest
	}

	t, ok := p.TransportByID(req.TransportID)
	if !ok {
		return nil, ErrTransportNotFound
	}

	if err := t.Connect(ctx, *req.DtlsParameters); err != nil {
		return nil, err
	}

	return successResponse{Type: "connectWebRtcTransportResponse", ReqID: req.ReqID, Success: true}, nil
}
