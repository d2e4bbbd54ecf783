package worker

// peerOperations handles keeping the peer set alive.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation pings connected peers, drops peers that never finished
// the handshake and redials configured peers we lost.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	pinged := w.state.PingPeers()
	w.evHandler("worker: runPeersOperation: pinged[%d]", pinged)

	for _, id := range w.state.CleanupStalePeers() {
		w.evHandler("worker: runPeersOperation: removed stale peer[%s]", id)
	}

	w.state.ConnectKnownPeers()
}
