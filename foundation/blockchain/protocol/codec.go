package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/rlp"
)

// Set of error variables for encoding and decoding.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrTooManyAddrs   = errors.New("too many addresses")
	ErrTooManyInv     = errors.New("too many inventory vectors")
	ErrTooManyHeaders = errors.New("too many headers")
)

// envelope is the outer RLP value of every message. The payload is the RLP
// encoding of the variant named by the command.
type envelope struct {
	Command string
	Payload rlp.RawValue
}

// Encode serializes the message. Framing the bytes on a connection is left
// to the transport.
func Encode(msg Message) ([]byte, error) {
	if err := checkLimits(msg); err != nil {
		return nil, err
	}

	payload, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Command(), err)
	}

	env := envelope{
		Command: string(msg.Command()),
		Payload: payload,
	}

	data, err := rlp.EncodeToBytes(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}

	return data, nil
}

// Decode deserializes bytes produced by Encode back into the message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var msg Message
	var err error

	switch Command(env.Command) {
	case CmdVersion:
		msg, err = decodeAs[Version](env.Payload)
	case CmdVerack:
		msg, err = decodeAs[Verack](env.Payload)
	case CmdGetAddr:
		msg, err = decodeAs[GetAddr](env.Payload)
	case CmdAddr:
		msg, err = decodeAs[Addr](env.Payload)
	case CmdInv:
		msg, err = decodeAs[Inv](env.Payload)
	case CmdGetData:
		msg, err = decodeAs[GetData](env.Payload)
	case CmdGetHeaders:
		msg, err = decodeAs[GetHeaders](env.Payload)
	case CmdHeaders:
		msg, err = decodeAs[Headers](env.Payload)
	case CmdGetBlocks:
		msg, err = decodeAs[GetBlocks](env.Payload)
	case CmdBlock:
		msg, err = decodeAs[Block](env.Payload)
	case CmdTx:
		msg, err = decodeAs[Tx](env.Payload)
	case CmdMemPool:
		msg, err = decodeAs[MemPool](env.Payload)
	case CmdPing:
		msg, err = decodeAs[Ping](env.Payload)
	case CmdPong:
		msg, err = decodeAs[Pong](env.Payload)
	case CmdReject:
		msg, err = decodeAs[Reject](env.Payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Command, err)
	}

	if err := checkLimits(msg); err != nil {
		return nil, err
	}

	return nilEmptyLists(msg), nil
}

// =============================================================================

// blockData is the wire form of a block. RLP has no time type so the
// timestamp travels in its canonical text form.
type blockData struct {
	Index     uint64
	TimeStamp string
	Data      string
	PrevHash  string
	Hash      string
	Nonce     uint64
}

// EncodeRLP implements the rlp.Encoder interface.
func (m Block) EncodeRLP(w io.Writer) error {
	bd := blockData{
		Index:     m.Block.Index,
		TimeStamp: database.FormatTime(m.Block.TimeStamp),
		Data:      m.Block.Data,
		PrevHash:  m.Block.PrevHash,
		Hash:      m.Block.Hash,
		Nonce:     m.Block.Nonce,
	}

	return rlp.Encode(w, bd)
}

// DecodeRLP implements the rlp.Decoder interface.
func (m *Block) DecodeRLP(s *rlp.Stream) error {
	var bd blockData
	if err := s.Decode(&bd); err != nil {
		return err
	}

	ts, err := database.ParseTime(bd.TimeStamp)
	if err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}

	m.Block = database.Block{
		Index:     bd.Index,
		TimeStamp: ts,
		Data:      bd.Data,
		PrevHash:  bd.PrevHash,
		Hash:      bd.Hash,
		Nonce:     bd.Nonce,
	}

	return nil
}

// =============================================================================

func decodeAs[T Message](payload []byte) (Message, error) {
	var msg T
	if err := rlp.DecodeBytes(payload, &msg); err != nil {
		return nil, err
	}

	return msg, nil
}

func checkLimits(msg Message) error {
	switch m := msg.(type) {
	case Addr:
		if len(m.Addresses) > MaxAddrs {
			return fmt.Errorf("%w: %d > %d", ErrTooManyAddrs, len(m.Addresses), MaxAddrs)
		}
	case Inv:
		if len(m.Vectors) > MaxInvVects {
			return fmt.Errorf("%w: %d > %d", ErrTooManyInv, len(m.Vectors), MaxInvVects)
		}
	case GetData:
		if len(m.Vectors) > MaxInvVects {
			return fmt.Errorf("%w: %d > %d", ErrTooManyInv, len(m.Vectors), MaxInvVects)
		}
	case Headers:
		if len(m.Headers) > MaxHeaders {
			return fmt.Errorf("%w: %d > %d", ErrTooManyHeaders, len(m.Headers), MaxHeaders)
		}
	}

	return nil
}

// nilEmptyLists restores the nil lists RLP turns into empty ones, so a
// decoded message equals the message that was encoded.
func nilEmptyLists(msg Message) Message {
	switch m := msg.(type) {
	case Addr:
		if len(m.Addresses) == 0 {
			m.Addresses = nil
		}
		return m
	case Inv:
		if len(m.Vectors) == 0 {
			m.Vectors = nil
		}
		return m
	case GetData:
		if len(m.Vectors) == 0 {
			m.Vectors = nil
		}
		return m
	case GetHeaders:
		if len(m.BlockLocatorHashes) == 0 {
			m.BlockLocatorHashes = nil
		}
		return m
	case Headers:
		if len(m.Headers) == 0 {
			m.Headers = nil
		}
		return m
	case GetBlocks:
		if len(m.BlockLocatorHashes) == 0 {
			m.BlockLocatorHashes = nil
		}
		return m
	}

	return msg
}
