package sweep

// This file contains the scoped interrupt region used by every run
// loop. SIGINT is captured only for the duration of a run and the
// previous disposition is restored on Close. The renderer worker
// ignores SIGINT on its side, so Ctrl-C lands here: the loop observes
// the flag after the current point, marks the run interrupted, and
// drains to a normal close instead of aborting.

import (
	"os"
	"os/signal"
)

type interruptRegion struct {
	ch      chan os.Signal
	tripped bool
}

func notifyInterrupt() *interruptRegion {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return &interruptRegion{ch: ch}
}

// Requested reports whether an interrupt arrived since the region
// opened. Once tripped it stays tripped.
func (r *interruptRegion) Requested() bool {
	if !r.tripped {
		select {
		case <-r.ch:
			r.tripped = true
		default:
		}
	}
	return r.tripped
}

// Close stops signal delivery and restores the default disposition.
func (r *interruptRegion) Close() {
	signal.Stop(r.ch)
}
