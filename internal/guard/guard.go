// Package guard provides the busy-flag mutual exclusion used around
// operations that move value in or out of custody. Unlike a mutex, a
// second entry observed while the flag is set fails immediately instead
// of queueing: an escrow implementation that calls back into the engine
// mid-transfer is rejected rather than allowed to act on half-updated
// state.
package guard

import "sync/atomic"

// Guard is a single-owner busy flag. The zero value is ready to use.
type Guard struct {
	busy atomic.Bool
}

// Enter attempts to set the busy flag. It reports false if the guard is
// already held; the caller must abort the operation in that case.
func (g *Guard) Enter() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Exit clears the busy flag. Must be deferred immediately after a
// successful Enter so the flag is released on every path.
func (g *Guard) Exit() {
	g.busy.Store(false)
}

// Held reports whether the guard is currently held.
func (g *Guard) Held() bool {
	return g.busy.Load()
}
