package state

import (
	"math/rand"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
)

// ErrTooManyPeers is returned when the registry is already at capacity.
var ErrTooManyPeers = peer.ErrRegistryFull

// StartHandshake registers an outbound connection and returns the version
// message that must be sent to open the handshake.
func (s *State) StartHandshake(peerID string, address string) (protocol.Message, error) {
	if err := s.AcceptPeer(peerID, address); err != nil {
		return nil, err
	}

	version := s.newVersion(peerID, address)

	var markErr error
	err := s.registry.UpdatePeer(peerID, func(p *peer.Peer) {
		markErr = p.MarkVersionSent()
	})
	if err != nil {
		return nil, err
	}
	if markErr != nil {
		return nil, markErr
	}

	s.evHandler("state: StartHandshake: peer[%s]: addr[%s]", peerID, address)

	return version, nil
}

// AcceptPeer registers an inbound connection. The remote node is expected
// to open the handshake.
func (s *State) AcceptPeer(peerID string, address string) error {
	return s.registry.AddPeerMax(peer.New(peerID, address), s.maxPeers)
}

// DisconnectPeer forgets everything about the peer. It is called when the
// connection is gone.
func (s *State) DisconnectPeer(peerID string) {
	s.mu.Lock()
	delete(s.nonces, peerID)
	delete(s.pending, peerID)
	s.mu.Unlock()

	if s.registry.RemovePeer(peerID) {
		s.evHandler("state: DisconnectPeer: peer[%s]", peerID)
	}
}

// IsKnownAddress reports whether the address belongs to this node or to a
// registered peer.
func (s *State) IsKnownAddress(address string) bool {
	return address == s.host || s.registry.HasAddress(address)
}

// ConnectKnownPeers dials every configured peer address that does not have
// a registered connection.
func (s *State) ConnectKnownPeers() {
	for _, address := range s.knownPeers {
		if s.IsKnownAddress(address) {
			continue
		}
		if s.registry.Count() >= s.maxPeers {
			return
		}

		s.evHandler("state: ConnectKnownPeers: dial addr[%s]", address)
		s.connect(address)
	}
}

// PingPeers sends a ping to every connected peer and remembers the nonce
// so the pong can be matched.
func (s *State) PingPeers() int {
	var sent int
	for _, p := range s.registry.GetConnectedPeers() {
		nonce := rand.Uint64()

		err := s.registry.UpdatePeer(p.ID, func(p *peer.Peer) {
			p.MarkPingSent(nonce)
		})
		if err != nil {
			continue
		}

		s.send(p.ID, protocol.Ping{Nonce: nonce})
		sent++
	}

	return sent
}

// CleanupStalePeers removes peers that have been silent too long without
// completing the handshake and closes their connections.
func (s *State) CleanupStalePeers() []string {
	removed := s.registry.CleanupStalePeers()

	for _, id := range removed {
		s.evHandler("state: CleanupStalePeers: peer[%s]: stale", id)

		s.mu.Lock()
		delete(s.nonces, id)
		delete(s.pending, id)
		s.mu.Unlock()

		if s.Network != nil {
			s.Network.Disconnect(id)
		}
	}

	return removed
}

// =============================================================================

// newVersion builds our side of the handshake. The nonce is remembered
// against the peer so a connection back to ourselves can be detected.
func (s *State) newVersion(peerID string, addrRecv string) protocol.Version {
	nonce := rand.Uint64()

	s.mu.Lock()
	s.nonces[peerID] = nonce
	s.mu.Unlock()

	return protocol.Version{
		Version:     peer.ProtocolVersion,
		Services:    peer.ServiceNetwork,
		Timestamp:   uint64(time.Now().Unix()),
		AddrRecv:    addrRecv,
		AddrFrom:    s.host,
		Nonce:       nonce,
		UserAgent:   peer.UserAgent,
		StartHeight: s.db.Latest().Index,
	}
}

// isLocalNonce reports whether the nonce belongs to a version this node
// sent and has not finished processing.
func (s *State) isLocalNonce(nonce uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.nonces {
		if n == nonce {
			return true
		}
	}

	return false
}
