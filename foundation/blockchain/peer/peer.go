// Package peer maintains the peer related information such as the set
// of known peers, their handshake status and liveness.
package peer

import (
	"errors"
	"time"
)

// Set of values advertised by this node during the handshake.
const (
	ProtocolVersion uint32 = 70015
	UserAgent              = "/minichain:0.1.0/"
	ServiceNetwork  uint64 = 1 // Node serves full blocks.
)

// StaleTimeout is how long a peer can go without activity before it is
// considered stale.
const StaleTimeout = 120 * time.Second

// ErrAlreadyConnected is returned when a transition would move a connected
// peer back in the handshake.
var ErrAlreadyConnected = errors.New("peer already connected")

// =============================================================================

// HandshakeState represents how far the version handshake has progressed.
// The state only ever moves forward.
type HandshakeState int

// Set of handshake states.
const (
	NotConnected HandshakeState = iota
	VersionSent
	Connected
)

// String implements the Stringer interface.
func (hs HandshakeState) String() string {
	switch hs {
	case NotConnected:
		return "not_connected"
	case VersionSent:
		return "version_sent"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (hs HandshakeState) MarshalText() ([]byte, error) {
	return []byte(hs.String()), nil
}

// =============================================================================

// Peer represents information about a remote node in the network.
type Peer struct {
	ID              string
	Address         string
	ProtocolVersion uint32
	UserAgent       string
	StartHeight     uint64
	Services        uint64
	LastSeen        time.Time

	state      HandshakeState
	latencyMS  uint64
	hasLatency bool
	pingNonce  uint64
	pingSent   time.Time
	pingActive bool
}

// New constructs a peer that has not started the handshake.
func New(id string, address string) Peer {
	return Peer{
		ID:       id,
		Address:  address,
		LastSeen: time.Now(),
		state:    NotConnected,
	}
}

// State returns the current handshake state.
func (p Peer) State() HandshakeState {
	return p.state
}

// MarkVersionSent records that our version message went out.
func (p *Peer) MarkVersionSent() error {
	if p.state == Connected {
		return ErrAlreadyConnected
	}

	p.state = VersionSent
	p.LastSeen = time.Now()

	return nil
}

// MarkConnected completes the handshake and records the capabilities the
// remote node advertised. It is allowed from any state.
func (p *Peer) MarkConnected(protocolVersion uint32, userAgent string, startHeight uint64, services uint64) {
	p.state = Connected
	p.ProtocolVersion = protocolVersion
	p.UserAgent = userAgent
	p.StartHeight = startHeight
	p.Services = services
	p.LastSeen = time.Now()
}

// IsConnected reports whether the handshake has completed.
func (p Peer) IsConnected() bool {
	return p.state == Connected
}

// IsStale reports whether the peer has been silent for longer than the
// StaleTimeout, regardless of the handshake state.
func (p Peer) IsStale() bool {
	return time.Since(p.LastSeen) > StaleTimeout
}

// Touch records activity from the peer.
func (p *Peer) Touch() {
	p.LastSeen = time.Now()
}

// UpdateLatency records a round trip estimate and the activity.
func (p *Peer) UpdateLatency(ms uint64) {
	p.latencyMS = ms
	p.hasLatency = true
	p.LastSeen = time.Now()
}

// Latency returns the last round trip estimate in milliseconds if one has
// been measured.
func (p Peer) Latency() (uint64, bool) {
	return p.latencyMS, p.hasLatency
}

// MarkPingSent records the nonce of the ping that is now outstanding. Any
// earlier outstanding ping is forgotten.
func (p *Peer) MarkPingSent(nonce uint64) {
	p.pingNonce = nonce
	p.pingSent = time.Now()
	p.pingActive = true
}

// ReceivePong matches a pong against the outstanding ping. On a match the
// latency is updated and true is returned. A pong that does not match is
// still counted as activity.
func (p *Peer) ReceivePong(nonce uint64) bool {
	if !p.pingActive || p.pingNonce != nonce {
		p.Touch()
		return false
	}

	p.pingActive = false
	p.UpdateLatency(uint64(time.Since(p.pingSent).Milliseconds()))

	return true
}
