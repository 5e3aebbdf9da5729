package room

import (
	"github.com/nimbusrtc/sfucore/internal/domain"
	"github.com/rs/zerolog/log"
)

// Bus is the Broadcast Bus (spec §2, §4.2): snapshot the recipient set
// under the Room's coordination domain, then dispatch outside of it,
// tolerating per-recipient failure. Grounded on the teacher's
// roomImpl.Broadcast snapshot-then-unlock shape, generalized to accept
// an exclusion id instead of a fixed origin socket.
type Bus struct {
	room *Room
}

func NewBus(r *Room) *Bus {
	return &Bus{room: r}
}

// Broadcast delivers notification to every peer in the room except the
// one identified by except ("" excludes no one). A send failure to one
// recipient never prevents delivery to the rest, and never propagates
// to the caller (spec §7's Transient classification): that peer will
// be cleaned up by its own disconnect handler.
func (b *Bus) Broadcast(notification any, except domain.PeerID) {
	recipients := b.room.Peers()
	for _, p := range recipients {
		if except != "" && p.ID == except {
			continue
		}
		if err := p.Send(notification); err != nil {
			log.Debug().Str("module", "room.bus").Str("peer", string(p.ID)).Err(err).Msg("broadcast delivery failed")
		}
	}
}

// Notification payloads, shaped per spec §6.

type PeerJoined struct {
	Type        string `json:"type"`
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
}

type PeerLeft struct {
	Type        string `json:"type"`
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
}

type NewProducer struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	PeerID      string `json:"peerId"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	DisplayName string `json:"displayName"`
}

type ProducerClosed struct {
	Type       string `json:"type"`
	PeerID     string `json:"peerId"`
	ProducerID string `json:"producerId"`
}

type ProducerMuted struct {
	Type       string `json:"type"`
	ProducerID string `json:"producerId"`
	Muted      bool   `json:"muted"`
}

type AudioLevel struct {
	Type   string  `json:"type"`
	PeerID string  `json:"peerId"`
	Volume float64 `json:"volume"`
}
