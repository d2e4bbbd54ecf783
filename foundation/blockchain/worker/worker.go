// Package worker implements mining and peer maintenance for the blockchain.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/minichain/foundation/blockchain/state"
)

// DefaultPeerInterval represents the interval of pinging peers, sweeping
// stale ones and redialing the configured peers.
const DefaultPeerInterval = 30 * time.Second

// =============================================================================

// Config represents the configuration for the background operations.
type Config struct {
	PeerInterval  time.Duration
	DisableMining bool
	EvHandler     state.EventHandler
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state         *state.State
	wg            sync.WaitGroup
	ticker        *time.Ticker
	shut          chan struct{}
	startMining   chan bool
	disableMining bool
	evHandler     state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) *Worker {
	peerInterval := cfg.PeerInterval
	if peerInterval <= 0 {
		peerInterval = DefaultPeerInterval
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		state:         st,
		ticker:        time.NewTicker(peerInterval),
		shut:          make(chan struct{}),
		startMining:   make(chan bool, 1),
		disableMining: cfg.DisableMining,
		evHandler:     ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Reach out to the configured peers before starting any support G's.
	w.state.ConnectKnownPeers()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// Pick up anything submitted before the worker was running.
	w.SignalStartMining()

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	if w.disableMining {
		w.evHandler("worker: SignalStartMining: mining turned off")
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
