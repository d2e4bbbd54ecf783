package public

import (
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
)

// newData is the payload for adding a block or submitting a transaction.
type newData struct {
	Data string `json:"data" validate:"required"`
}

type chain struct {
	Chain   []database.Block `json:"chain"`
	Length  int              `json:"length"`
	IsValid bool             `json:"is_valid"`
}

type addedBlock struct {
	Block   database.Block `json:"block"`
	Message string         `json:"message"`
}

type validation struct {
	IsValid     bool   `json:"is_valid"`
	ChainLength int    `json:"chain_length"`
	Error       string `json:"error,omitempty"`
}

// PeerInfo is the view of a registered peer returned by the API.
type PeerInfo struct {
	ID              string    `json:"id"`
	Address         string    `json:"address"`
	State           string    `json:"state"`
	ProtocolVersion uint32    `json:"protocol_version"`
	UserAgent       string    `json:"user_agent"`
	StartHeight     uint64    `json:"start_height"`
	Services        uint64    `json:"services"`
	LastSeen        time.Time `json:"last_seen"`
	LatencyMS       *uint64   `json:"latency_ms,omitempty"`
}

// ToPeerInfos converts the registered peers to their API view.
func ToPeerInfos(peers []peer.Peer) []PeerInfo {
	infos := make([]PeerInfo, len(peers))
	for i, p := range peers {
		infos[i] = PeerInfo{
			ID:              p.ID,
			Address:         p.Address,
			State:           p.State().String(),
			ProtocolVersion: p.ProtocolVersion,
			UserAgent:       p.UserAgent,
			StartHeight:     p.StartHeight,
			Services:        p.Services,
			LastSeen:        p.LastSeen,
		}

		if ms, ok := p.Latency(); ok {
			infos[i].LatencyMS = &ms
		}
	}

	return infos
}
