// Package protocol defines the closed set of messages nodes exchange to
// handshake, discover peers, announce inventory, sync the chain, relay
// transactions and keep connections alive.
package protocol

import (
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Command names a message variant on the wire.
type Command string

// Set of commands. Every variant of the message set has exactly one.
const (
	CmdVersion    Command = "version"
	CmdVerack     Command = "verack"
	CmdGetAddr    Command = "getaddr"
	CmdAddr       Command = "addr"
	CmdInv        Command = "inv"
	CmdGetData    Command = "getdata"
	CmdGetHeaders Command = "getheaders"
	CmdHeaders    Command = "headers"
	CmdGetBlocks  Command = "getblocks"
	CmdBlock      Command = "block"
	CmdTx         Command = "tx"
	CmdMemPool    Command = "mempool"
	CmdPing       Command = "ping"
	CmdPong       Command = "pong"
	CmdReject     Command = "reject"
)

// Limits on the number of entries a single message can carry.
const (
	MaxAddrs     = 100
	MaxInvVects  = 50_000
	MaxHeaders   = 2_000
	MaxBlocksInv = 500
)

// Set of reject codes.
const (
	RejectMalformed    uint8 = 0x01
	RejectInvalid      uint8 = 0x10
	RejectObsolete     uint8 = 0x11
	RejectDuplicate    uint8 = 0x12
	RejectNonstandard  uint8 = 0x40
	RejectNotConnected uint8 = 0x41
)

// Message is implemented by every variant of the message set.
type Message interface {
	Command() Command
}

// =============================================================================
// Handshake

// Version is sent by the node that opens a connection. The nonce lets a node
// detect that it has connected to itself.
type Version struct {
	Version     uint32
	Services    uint64
	Timestamp   uint64 // Unix seconds.
	AddrRecv    string
	AddrFrom    string
	Nonce       uint64
	UserAgent   string
	StartHeight uint64
}

// Verack acknowledges a Version.
type Verack struct{}

// =============================================================================
// Discovery

// GetAddr asks a peer for the addresses it knows.
type GetAddr struct{}

// Addr carries up to MaxAddrs peer addresses.
type Addr struct {
	Addresses []string
}

// =============================================================================
// Inventory

// Inv announces content by type and hash without transferring it.
type Inv struct {
	Vectors []InventoryVector
}

// GetData requests the payloads of previously announced content.
type GetData struct {
	Vectors []InventoryVector
}

// =============================================================================
// Chain sync

// GetHeaders asks for the headers that follow the most recent locator hash
// the remote knows. A zero HashStop means no bound.
type GetHeaders struct {
	Version            uint32
	BlockLocatorHashes []string
	HashStop           string
}

// Headers carries block headers in chain order.
type Headers struct {
	Headers []database.BlockHeader
}

// GetBlocks asks for an inventory of the blocks that follow the most recent
// locator hash the remote knows.
type GetBlocks struct {
	Version            uint32
	BlockLocatorHashes []string
	HashStop           string
}

// Block carries a full block.
type Block struct {
	Block database.Block
}

// =============================================================================
// Relay

// Tx broadcasts a transaction.
type Tx struct {
	Transaction database.Transaction
}

// MemPool asks a peer for its pending transactions.
type MemPool struct{}

// =============================================================================
// Keepalive

// Ping checks a peer is alive. The matching Pong echoes the nonce.
type Ping struct {
	Nonce uint64
}

// Pong answers a Ping.
type Pong struct {
	Nonce uint64
}

// =============================================================================
// Error reporting

// Reject names a rejected message type, a code and a reason.
type Reject struct {
	Message string
	CCode   uint8
	Reason  string
}

// Error implements the error interface so a received reject can be
// reported like any other failure.
func (r Reject) Error() string {
	return fmt.Sprintf("%s rejected: code[0x%02x]: %s", r.Message, r.CCode, r.Reason)
}

// =============================================================================

// Command implements the Message interface.
func (Version) Command() Command { return CmdVersion }

// Command implements the Message interface.
func (Verack) Command() Command { return CmdVerack }

// Command implements the Message interface.
func (GetAddr) Command() Command { return CmdGetAddr }

// Command implements the Message interface.
func (Addr) Command() Command { return CmdAddr }

// Command implements the Message interface.
func (Inv) Command() Command { return CmdInv }

// Command implements the Message interface.
func (GetData) Command() Command { return CmdGetData }

// Command implements the Message interface.
func (GetHeaders) Command() Command { return CmdGetHeaders }

// Command implements the Message interface.
func (Headers) Command() Command { return CmdHeaders }

// Command implements the Message interface.
func (GetBlocks) Command() Command { return CmdGetBlocks }

// Command implements the Message interface.
func (Block) Command() Command { return CmdBlock }

// Command implements the Message interface.
func (Tx) Command() Command { return CmdTx }

// Command implements the Message interface.
func (MemPool) Command() Command { return CmdMemPool }

// Command implements the Message interface.
func (Ping) Command() Command { return CmdPing }

// Command implements the Message interface.
func (Pong) Command() Command { return CmdPong }

// Command implements the Message interface.
func (Reject) Command() Command { return CmdReject }
