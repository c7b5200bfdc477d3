// Package interrupt provides the cooperative shutdown flag shared by the
// traversal engine and the pipeline. It is passed explicitly through the
// call chain, never accessed as ambient global state.
package interrupt

import "sync/atomic"

// Flag is a two-stage, idempotent shutdown signal. The first Trigger
// requests a graceful drain: no new work is dispatched, in-flight tasks
// run to completion. A second Trigger forces abandonment of in-flight
// collection. The zero value is ready to use.
type Flag struct {
	stop  atomic.Bool
	force atomic.Bool
}

// Trigger advances the flag one stage and reports whether this call was
// the first (graceful) trigger.
func (f *Flag) Trigger() (first bool) {
	if f.stop.CompareAndSwap(false, true) {
		return true
	}
	f.force.Store(true)
	return false
}

// Stopped reports whether a graceful shutdown has been requested.
func (f *Flag) Stopped() bool { return f.stop.Load() }

// Forced reports whether in-flight work should be abandoned.
func (f *Flag) Forced() bool { return f.force.Load() }
