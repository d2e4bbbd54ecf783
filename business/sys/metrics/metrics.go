// Package metrics constructs the metrics the application will track.
package metrics

import (
	"expvar"
	"runtime"
	"sync/atomic"
)

// This holds the single instance of the metrics value needed for collecting
// metrics. The expvar package is already based on a singleton for the
// different metrics that are registered with the package so there isn't
// much choice here.
var m *metrics

// metrics represents the set of metrics we gather. These fields are safe to
// be accessed concurrently thanks to expvar. No extra abstraction is required.
type metrics struct {
	goroutines *expvar.Int
	requests   *expvar.Int
	errors     *expvar.Int
	panics     *expvar.Int
	chain      atomic.Pointer[ChainFunc]
}

// ChainFunc reports the current chain length and number of connected peers.
type ChainFunc func() (blocks int, peers int)

// init constructs the metrics value that will be used to capture metrics.
// The metrics value is stored in a package level variable since everything
// inside of expvar is registered as a singleton.
func init() {
	m = &metrics{
		goroutines: expvar.NewInt("goroutines"),
		requests:   expvar.NewInt("requests"),
		errors:     expvar.NewInt("errors"),
		panics:     expvar.NewInt("panics"),
	}

	// The chain values are read from the node each time the metrics are
	// served so they are never stale.
	expvar.Publish("blocks", expvar.Func(func() any {
		blocks, _ := readChain()
		return blocks
	}))
	expvar.Publish("peers", expvar.Func(func() any {
		_, peers := readChain()
		return peers
	}))
}

// AddGoroutines refreshes the goroutine metric every 100 requests.
func AddGoroutines() {
	if m.requests.Value()%100 == 0 {
		m.goroutines.Set(int64(runtime.NumGoroutine()))
	}
}

// AddRequests increments the request metric by 1.
func AddRequests() {
	m.requests.Add(1)
}

// AddErrors increments the errors metric by 1.
func AddErrors() {
	m.errors.Add(1)
}

// AddPanics increments the panics metric by 1.
func AddPanics() {
	m.panics.Add(1)
}

// PublishChain sets the function the blocks and peers metrics are read from.
func PublishChain(f ChainFunc) {
	m.chain.Store(&f)
}

func readChain() (int, int) {
	f := m.chain.Load()
	if f == nil || *f == nil {
		return 0, 0
	}

	return (*f)()
}
