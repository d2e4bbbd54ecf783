package peer

import (
	"errors"
	"sort"
	"sync"
)

// Set of error variables for registry operations.
var (
	ErrPeerExists   = errors.New("peer already exists")
	ErrPeerNotFound = errors.New("peer not found")
	ErrRegistryFull = errors.New("too many peers")
)

// Registry represents the directory of known peers keyed by peer id. Every
// operation is atomic, sequences of operations are not. Use UpdatePeer for
// a read-modify-write.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]Peer),
	}
}

// AddPeer adds a new peer to the registry. The id must not be in use.
func (r *Registry) AddPeer(p Peer) error {
	return r.AddPeerMax(p, 0)
}

// AddPeerMax adds a new peer unless the registry already holds limit peers.
// A limit of zero or less means no limit.
func (r *Registry) AddPeerMax(p Peer, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[p.ID]; exists {
		return ErrPeerExists
	}

	if limit > 0 && len(r.peers) >= limit {
		return ErrRegistryFull
	}

	r.peers[p.ID] = p

	return nil
}

// GetPeer returns a copy of the peer for the specified id.
func (r *Registry) GetPeer(id string) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.peers[id]
	if !exists {
		return Peer{}, ErrPeerNotFound
	}

	return p, nil
}

// RemovePeer removes the peer and reports whether it was present.
func (r *Registry) RemovePeer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.peers[id]
	delete(r.peers, id)

	return exists
}

// UpdatePeer applies the mutation to the peer while holding the exclusive
// lock.
func (r *Registry) UpdatePeer(id string, mutate func(p *Peer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.peers[id]
	if !exists {
		return ErrPeerNotFound
	}

	mutate(&p)
	r.peers[id] = p

	return nil
}

// Count returns the number of known peers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.peers)
}

// ConnectedCount returns the number of peers that completed the handshake.
func (r *Registry) ConnectedCount() int {
	return len(r.GetConnectedPeers())
}

// Copy returns all known peers ordered by id.
func (r *Registry) Copy() []Peer {
	return r.filter(func(Peer) bool { return true })
}

// GetConnectedPeers returns the peers that completed the handshake, ordered
// by id.
func (r *Registry) GetConnectedPeers() []Peer {
	return r.filter(Peer.IsConnected)
}

// HasAddress reports whether any known peer uses the address.
func (r *Registry) HasAddress(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.peers {
		if p.Address == address {
			return true
		}
	}

	return false
}

// CleanupStalePeers removes every peer that is stale and not connected. A
// connected peer is never removed here no matter how long it has been
// silent. The ids of the removed peers are returned.
func (r *Registry) CleanupStalePeers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, p := range r.peers {
		if p.IsStale() && !p.IsConnected() {
			delete(r.peers, id)
			removed = append(removed, id)
		}
	}

	sort.Strings(removed)

	return removed
}

// GetPeerAddresses returns up to max addresses of connected peers.
func (r *Registry) GetPeerAddresses(max int) []string {
	var addrs []string
	for _, p := range r.GetConnectedPeers() {
		if len(addrs) >= max {
			break
		}
		addrs = append(addrs, p.Address)
	}

	return addrs
}

// =============================================================================

func (r *Registry) filter(keep func(Peer) bool) []Peer {
	r.mu.RLock()
	peers := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if keep(p) {
			peers = append(peers, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })

	return peers
}
