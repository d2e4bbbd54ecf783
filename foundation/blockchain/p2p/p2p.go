// Package p2p moves protocol messages between nodes over websocket
// connections. Every message travels as a single binary frame.
package p2p

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/protocol"
	"github.com/ardanlabs/minichain/foundation/blockchain/state"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrUnknownPeer is returned when sending to a peer without a connection.
var ErrUnknownPeer = errors.New("no connection for peer")

// Set of defaults used when the configuration leaves a value unset.
const (
	DefaultPath           = "/v1/node/p2p"
	DefaultMaxMessageSize = 4 << 20
	DefaultWriteTimeout   = 10 * time.Second
	DefaultDialTimeout    = 5 * time.Second
)

// EventHandler defines a function that is called when events
// occur on a peer connection.
type EventHandler func(v string, args ...any)

// Node represents the behavior required to process the messages flowing
// over the connections.
type Node interface {
	StartHandshake(peerID string, address string) (protocol.Message, error)
	AcceptPeer(peerID string, address string) error
	DisconnectPeer(peerID string)
	HandleMessage(peerID string, msg protocol.Message) ([]protocol.Message, error)
}

// Config represents the configuration for the transport.
type Config struct {
	Node           Node
	Path           string
	MaxMessageSize int64
	WriteTimeout   time.Duration
	DialTimeout    time.Duration
	EvHandler      EventHandler
}

// Transport manages the websocket connections to every peer.
type Transport struct {
	node         Node
	path         string
	maxMsgSize   int64
	writeTimeout time.Duration
	dialer       websocket.Dialer
	upgrader     websocket.Upgrader
	evHandler    EventHandler

	mu    sync.RWMutex
	conns map[string]*conn
	wg    sync.WaitGroup
}

// New constructs a transport for the node.
func New(cfg Config) *Transport {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	maxMsgSize := cfg.MaxMessageSize
	if maxMsgSize <= 0 {
		maxMsgSize = DefaultMaxMessageSize
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}

	t := Transport{
		node:         cfg.Node,
		path:         path,
		maxMsgSize:   maxMsgSize,
		writeTimeout: writeTimeout,
		dialer: websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		evHandler: ev,
		conns:     make(map[string]*conn),
	}

	return &t
}

// Run constructs a transport and registers it with the state as the node
// network.
func Run(st *state.State, cfg Config) *Transport {
	cfg.Node = st
	t := New(cfg)

	st.Network = t

	return t
}

// =============================================================================
// These methods implement the state.Network interface.

// Connect dials the node at the address and opens the handshake. The
// connection is served in the background.
func (t *Transport) Connect(address string) error {
	url := fmt.Sprintf("ws://%s%s", address, t.path)

	ws, _, err := t.dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	c := t.add(uuid.NewString(), address, ws)

	version, err := t.node.StartHandshake(c.id, address)
	if err != nil {
		t.remove(c)
		return fmt.Errorf("handshake %s: %w", address, err)
	}

	if err := c.write(version); err != nil {
		t.node.DisconnectPeer(c.id)
		t.remove(c)
		return fmt.Errorf("handshake %s: %w", address, err)
	}

	t.evHandler("p2p: Connect: peer[%s]: addr[%s]: connected", c.id, address)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.serve(c)
	}()

	return nil
}

// Send writes the message to the peer's connection.
func (t *Transport) Send(peerID string, msg protocol.Message) error {
	t.mu.RLock()
	c, exists := t.conns[peerID]
	t.mu.RUnlock()

	if !exists {
		return ErrUnknownPeer
	}

	return c.write(msg)
}

// Disconnect closes the peer's connection. The serving goroutine cleans up
// once the read fails.
func (t *Transport) Disconnect(peerID string) {
	t.mu.RLock()
	c, exists := t.conns[peerID]
	t.mu.RUnlock()

	if exists {
		c.ws.Close()
	}
}

// Shutdown closes every connection and waits for the connections dialed
// by this node to finish.
func (t *Transport) Shutdown() {
	t.evHandler("p2p: shutdown: started")
	defer t.evHandler("p2p: shutdown: completed")

	t.mu.RLock()
	for _, c := range t.conns {
		c.ws.Close()
	}
	t.mu.RUnlock()

	t.wg.Wait()
}

// =============================================================================

// Accept upgrades an inbound request to a peer connection and serves it
// until the connection closes.
func (t *Transport) Accept(w http.ResponseWriter, r *http.Request) error {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := t.add(uuid.NewString(), r.RemoteAddr, ws)

	if err := t.node.AcceptPeer(c.id, r.RemoteAddr); err != nil {
		t.remove(c)
		return fmt.Errorf("accept %s: %w", r.RemoteAddr, err)
	}

	t.evHandler("p2p: Accept: peer[%s]: remote[%s]: connected", c.id, r.RemoteAddr)

	t.serve(c)

	return nil
}

// Count returns the number of open connections.
func (t *Transport) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.conns)
}

// =============================================================================

// serve reads messages off the connection and hands them to the node until
// the connection fails.
func (t *Transport) serve(c *conn) {
	defer func() {
		t.node.DisconnectPeer(c.id)
		t.remove(c)
		t.evHandler("p2p: serve: peer[%s]: disconnected", c.id)
	}()

	// An accepted connection still carries the read deadline of the http
	// server that upgraded it.
	c.ws.SetReadDeadline(time.Time{})
	c.ws.SetReadLimit(t.maxMsgSize)

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.evHandler("p2p: serve: peer[%s]: read: %s", c.id, err)
			}
			return
		}

		if mt != websocket.BinaryMessage {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			t.evHandler("p2p: serve: peer[%s]: decode: ERROR: %s", c.id, err)
			c.write(protocol.Reject{CCode: protocol.RejectMalformed, Reason: err.Error()})
			continue
		}

		replies, err := t.node.HandleMessage(c.id, msg)
		for _, reply := range replies {
			if werr := c.write(reply); werr != nil {
				t.evHandler("p2p: serve: peer[%s]: write: ERROR: %s", c.id, werr)
				return
			}
		}

		if err != nil {
			t.evHandler("p2p: serve: peer[%s]: %s: %s", c.id, msg.Command(), err)
			if errors.Is(err, state.ErrSelfConnection) {
				return
			}
		}
	}
}

func (t *Transport) add(id string, address string, ws *websocket.Conn) *conn {
	c := conn{
		id:           id,
		address:      address,
		ws:           ws,
		writeTimeout: t.writeTimeout,
	}

	t.mu.Lock()
	t.conns[id] = &c
	t.mu.Unlock()

	return &c
}

func (t *Transport) remove(c *conn) {
	t.mu.Lock()
	delete(t.conns, c.id)
	t.mu.Unlock()

	c.ws.Close()
}

// =============================================================================

// conn is a single peer connection. Writes are serialized since the
// websocket package allows one concurrent writer.
type conn struct {
	id           string
	address      string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu sync.Mutex
}

func (c *conn) write(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}
