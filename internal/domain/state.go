package domain

// PeerState is the lifecycle state of a Peer (spec §4.5).
type PeerState string

const (
	PeerNew          PeerState = "new"
	PeerConnecting   PeerState = "connecting"
	PeerConnected    PeerState = "connected"
	PeerDisconnected PeerState = "disconnected"
)

func (s PeerState) String() string { return string(s) }
