package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
)

// HandleMessage processes a message received from the specified peer and
// returns the messages that must be sent back to that peer. Messages that
// need to reach other peers are sent through the registered Network. A
// returned error describes why the message was refused; ErrSelfConnection
// means the connection must be closed.
func (s *State) HandleMessage(peerID string, msg protocol.Message) ([]protocol.Message, error) {
	if err := s.registry.UpdatePeer(peerID, (*peer.Peer).Touch); err != nil {
		return nil, fmt.Errorf("peer[%s]: %w", peerID, err)
	}

	// These messages are allowed before the handshake completes.
	switch m := msg.(type) {
	case protocol.Version:
		return s.handleVersion(peerID, m)

	case protocol.Verack:
		return s.handleVerack(peerID)

	case protocol.Ping:
		return []protocol.Message{protocol.Pong{Nonce: m.Nonce}}, nil

	case protocol.Pong:
		s.handlePong(peerID, m)
		return nil, nil

	case protocol.Reject:
		s.evHandler("state: HandleMessage: peer[%s]: rejected: %s", peerID, m)
		return nil, nil
	}

	p, err := s.registry.GetPeer(peerID)
	if err != nil {
		return nil, err
	}

	if !p.IsConnected() {
		return reject(msg.Command(), protocol.RejectNotConnected, "handshake not complete"), ErrNotConnected
	}

	switch m := msg.(type) {
	case protocol.GetAddr:
		return s.handleGetAddr(p), nil

	case protocol.Addr:
		s.handleAddr(m)
		return nil, nil

	case protocol.Inv:
		return s.handleInv(m)

	case protocol.GetData:
		return s.handleGetData(m), nil

	case protocol.GetHeaders:
		return s.handleGetHeaders(m), nil

	case protocol.Headers:
		return s.handleHeaders(m)

	case protocol.GetBlocks:
		return s.handleGetBlocks(m), nil

	case protocol.Block:
		return s.handleBlock(peerID, m)

	case protocol.Tx:
		return s.handleTx(peerID, m)

	case protocol.MemPool:
		return s.handleMemPool(), nil
	}

	return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, msg.Command())
}

// =============================================================================

func (s *State) handleVersion(peerID string, v protocol.Version) ([]protocol.Message, error) {
	if s.isLocalNonce(v.Nonce) {
		s.evHandler("state: handleVersion: peer[%s]: connected to self", peerID)
		return reject(protocol.CmdVersion, protocol.RejectDuplicate, "connected to self"), ErrSelfConnection
	}

	p, err := s.registry.GetPeer(peerID)
	if err != nil {
		return nil, err
	}

	if p.IsConnected() {
		return reject(protocol.CmdVersion, protocol.RejectDuplicate, "duplicate version"), peer.ErrAlreadyConnected
	}

	s.mu.Lock()
	s.pending[peerID] = v
	s.mu.Unlock()

	s.evHandler("state: handleVersion: peer[%s]: version[%d]: agent[%s]: height[%d]", peerID, v.Version, v.UserAgent, v.StartHeight)

	var replies []protocol.Message

	// An inbound connection learns our version only now.
	if p.State() == peer.NotConnected {
		replies = append(replies, s.newVersion(peerID, v.AddrFrom))
	}

	err = s.registry.UpdatePeer(peerID, func(p *peer.Peer) {
		if v.AddrFrom != "" {
			p.Address = v.AddrFrom
		}
		if p.State() == peer.NotConnected {
			p.MarkVersionSent()
		}
	})
	if err != nil {
		return nil, err
	}

	return append(replies, protocol.Verack{}), nil
}

func (s *State) handleVerack(peerID string) ([]protocol.Message, error) {
	s.mu.Lock()
	v, ok := s.pending[peerID]
	delete(s.pending, peerID)
	delete(s.nonces, peerID)
	s.mu.Unlock()

	if !ok {
		return reject(protocol.CmdVerack, protocol.RejectInvalid, "verack before version"), nil
	}

	err := s.registry.UpdatePeer(peerID, func(p *peer.Peer) {
		p.MarkConnected(v.Version, v.UserAgent, v.StartHeight, v.Services)
	})
	if err != nil {
		return nil, err
	}

	s.evHandler("state: handleVerack: peer[%s]: connected", peerID)

	replies := []protocol.Message{protocol.GetAddr{}}
	if v.StartHeight > s.db.Latest().Index {
		replies = append(replies, s.getHeaders())
	}

	return replies, nil
}

func (s *State) handlePong(peerID string, m protocol.Pong) {
	var matched bool
	err := s.registry.UpdatePeer(peerID, func(p *peer.Peer) {
		matched = p.ReceivePong(m.Nonce)
	})
	if err != nil {
		s.evHandler("state: handlePong: peer[%s]: ERROR: %s", peerID, err)
		return
	}

	if !matched {
		s.evHandler("state: handlePong: peer[%s]: unexpected nonce[%d]", peerID, m.Nonce)
	}
}

func (s *State) handleGetAddr(from peer.Peer) []protocol.Message {
	var addrs []string
	for _, addr := range s.registry.GetPeerAddresses(protocol.MaxAddrs + 1) {
		if addr != from.Address && len(addrs) < protocol.MaxAddrs {
			addrs = append(addrs, addr)
		}
	}

	return []protocol.Message{protocol.Addr{Addresses: addrs}}
}

func (s *State) handleAddr(m protocol.Addr) {
	for _, addr := range m.Addresses {
		if addr == "" || s.IsKnownAddress(addr) {
			continue
		}
		if s.registry.Count() >= s.maxPeers {
			return
		}

		s.evHandler("state: handleAddr: new addr[%s]", addr)
		s.connect(addr)
	}
}

func (s *State) handleTx(peerID string, m protocol.Tx) ([]protocol.Message, error) {
	added, err := s.mempool.Upsert(m.Transaction)
	if err != nil {
		return reject(protocol.CmdTx, protocol.RejectInvalid, err.Error()), err
	}

	if added {
		s.evHandler("state: handleTx: peer[%s]: tx[%s]", peerID, m.Transaction.TxID)
		s.broadcast(protocol.Inv{Vectors: []protocol.InventoryVector{protocol.TxInv(m.Transaction)}}, peerID)
	}

	return nil, nil
}

func (s *State) handleMemPool() []protocol.Message {
	txs := s.mempool.Copy()
	if len(txs) == 0 {
		return nil
	}

	if len(txs) > protocol.MaxInvVects {
		txs = txs[:protocol.MaxInvVects]
	}

	vectors := make([]protocol.InventoryVector, len(txs))
	for i, tx := range txs {
		vectors[i] = protocol.TxInv(tx)
	}

	return []protocol.Message{protocol.Inv{Vectors: vectors}}
}

// =============================================================================

// reject builds the single reject reply for a refused message.
func reject(cmd protocol.Command, code uint8, reason string) []protocol.Message {
	return []protocol.Message{protocol.Reject{Message: string(cmd), CCode: code, Reason: reason}}
}

// isInvalidBlock reports whether the error means the block itself is bad
// as opposed to arriving at the wrong time.
func isInvalidBlock(err error) bool {
	return errors.Is(err, database.ErrInvalidHash) ||
		errors.Is(err, database.ErrInvalidPreviousHash) ||
		errors.Is(err, database.ErrInvalidIndex)
}
