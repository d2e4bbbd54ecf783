package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/peer"
	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
	"github.com/ardanlabs/minichain/foundation/blockchain/signature"
)

// Set of error variables for chain sync.
var (
	ErrHeadersNotLinked = errors.New("headers not linked")
	ErrMalformedHash    = errors.New("malformed hash")
)

// getHeaders builds the request for every block after our tip.
func (s *State) getHeaders() protocol.GetHeaders {
	return protocol.GetHeaders{
		Version:            peer.ProtocolVersion,
		BlockLocatorHashes: s.db.Locator(),
		HashStop:           signature.ZeroHash,
	}
}

// RequestSync asks the peer for the headers of blocks this node is missing.
func (s *State) RequestSync(peerID string) {
	s.send(peerID, s.getHeaders())
}

// =============================================================================

func (s *State) handleInv(m protocol.Inv) ([]protocol.Message, error) {
	var want []protocol.InventoryVector

	for _, iv := range m.Vectors {
		if !signature.IsHash(iv.Hash) {
			return reject(protocol.CmdInv, protocol.RejectMalformed, fmt.Sprintf("malformed hash: %q", iv.Hash)), ErrMalformedHash
		}

		switch iv.Type {
		case protocol.InvBlock:
			if !s.db.HasBlock(iv.Hash) {
				want = append(want, iv)
			}

		case protocol.InvTx:
			if _, exists := s.mempool.Get(iv.Hash); !exists {
				want = append(want, iv)
			}
		}
	}

	if len(want) == 0 {
		return nil, nil
	}

	return []protocol.Message{protocol.GetData{Vectors: want}}, nil
}

func (s *State) handleGetData(m protocol.GetData) []protocol.Message {
	var replies []protocol.Message

	for _, iv := range m.Vectors {
		if !signature.IsHash(iv.Hash) {
			replies = append(replies, reject(protocol.CmdGetData, protocol.RejectMalformed, fmt.Sprintf("malformed hash: %q", iv.Hash))...)
			continue
		}

		switch iv.Type {
		case protocol.InvBlock:
			block, err := s.db.BlockByHash(iv.Hash)
			if err != nil {
				replies = append(replies, reject(protocol.CmdGetData, protocol.RejectInvalid, fmt.Sprintf("block not found: %s", iv.Hash))...)
				continue
			}
			replies = append(replies, protocol.Block{Block: block})

		case protocol.InvTx:
			tx, exists := s.mempool.Get(iv.Hash)
			if !exists {
				replies = append(replies, reject(protocol.CmdGetData, protocol.RejectInvalid, fmt.Sprintf("tx not found: %s", iv.Hash))...)
				continue
			}
			replies = append(replies, protocol.Tx{Transaction: tx})

		default:
			replies = append(replies, reject(protocol.CmdGetData, protocol.RejectMalformed, fmt.Sprintf("unknown inventory type: %s", iv.Type))...)
		}
	}

	return replies
}

func (s *State) handleGetHeaders(m protocol.GetHeaders) []protocol.Message {
	blocks := s.db.BlocksAfter(m.BlockLocatorHashes, m.HashStop, protocol.MaxHeaders)

	return []protocol.Message{protocol.Headers{Headers: protocol.HeadersFor(blocks, s.db.Difficulty())}}
}

func (s *State) handleGetBlocks(m protocol.GetBlocks) []protocol.Message {
	blocks := s.db.BlocksAfter(m.BlockLocatorHashes, m.HashStop, protocol.MaxBlocksInv)
	if len(blocks) == 0 {
		return nil
	}

	vectors := make([]protocol.InventoryVector, len(blocks))
	for i, block := range blocks {
		vectors[i] = protocol.BlockInv(block)
	}

	return []protocol.Message{protocol.Inv{Vectors: vectors}}
}

// handleHeaders checks the headers form a chain off a block we know with
// solved proofs of work, then asks for the blocks we do not have.
func (s *State) handleHeaders(m protocol.Headers) ([]protocol.Message, error) {
	if len(m.Headers) == 0 {
		return nil, nil
	}

	for _, h := range m.Headers {
		if !signature.IsHash(h.Hash) || !signature.IsHash(h.PrevBlockHash) {
			return reject(protocol.CmdHeaders, protocol.RejectMalformed, fmt.Sprintf("malformed hash in header %d", h.Index)), ErrMalformedHash
		}
	}

	prevHash := m.Headers[0].PrevBlockHash
	if !s.db.HasBlock(prevHash) {
		return reject(protocol.CmdHeaders, protocol.RejectInvalid, "headers do not connect"), ErrHeadersNotLinked
	}

	var want []protocol.InventoryVector
	for _, h := range m.Headers {
		if h.PrevBlockHash != prevHash {
			return reject(protocol.CmdHeaders, protocol.RejectInvalid, "headers not linked"), ErrHeadersNotLinked
		}
		if !database.VerifyPOW(h.Hash, s.db.Difficulty()) {
			return reject(protocol.CmdHeaders, protocol.RejectInvalid, "proof of work not solved"), database.ErrInvalidHash
		}

		if !s.db.HasBlock(h.Hash) {
			want = append(want, protocol.InventoryVector{Type: protocol.InvBlock, Hash: h.Hash})
		}
		prevHash = h.Hash
	}

	s.evHandler("state: handleHeaders: headers[%d]: missing[%d]", len(m.Headers), len(want))

	var replies []protocol.Message
	if len(want) > 0 {
		replies = append(replies, protocol.GetData{Vectors: want})
	}

	// A full batch means the peer has more to give.
	if len(m.Headers) == protocol.MaxHeaders {
		replies = append(replies, protocol.GetHeaders{
			Version:            peer.ProtocolVersion,
			BlockLocatorHashes: []string{prevHash},
			HashStop:           signature.ZeroHash,
		})
	}

	return replies, nil
}

// handleBlock extends the chain with a block from a peer and relays the
// announcement to everyone else.
func (s *State) handleBlock(peerID string, m protocol.Block) ([]protocol.Message, error) {
	block := m.Block

	err := s.db.AcceptBlock(block)
	switch {
	case err == nil:

	case errors.Is(err, database.ErrBlockExists):
		return nil, nil

	case errors.Is(err, database.ErrChainAhead):
		s.evHandler("state: handleBlock: peer[%s]: blk[%d]: ahead of tip, requesting headers", peerID, block.Index)
		return []protocol.Message{s.getHeaders()}, nil

	case isInvalidBlock(err):
		s.evHandler("state: handleBlock: peer[%s]: blk[%d]: ERROR: %s", peerID, block.Index, err)
		return reject(protocol.CmdBlock, protocol.RejectInvalid, err.Error()), err

	default:
		return nil, err
	}

	s.evHandler("state: handleBlock: peer[%s]: blk[%d]: hash[%s]: accepted", peerID, block.Index, block.Hash)

	// The data was mined somewhere else.
	s.mempool.DeleteByData(block.Data)

	err = s.registry.UpdatePeer(peerID, func(p *peer.Peer) {
		if block.Index > p.StartHeight {
			p.StartHeight = block.Index
		}
	})
	if err != nil {
		s.evHandler("state: handleBlock: peer[%s]: ERROR: %s", peerID, err)
	}

	s.broadcast(protocol.Inv{Vectors: []protocol.InventoryVector{protocol.BlockInv(block)}}, peerID)

	return nil, nil
}
