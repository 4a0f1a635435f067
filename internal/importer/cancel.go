package importer

import (
	"sync/atomic"

	"github.com/Zukunftsmusik/pss-fleet-data-importer-go/signalwatcher"
)

// Cancel is the single process-wide cancellation handle (§4.7). Once set it
// stays set for the remainder of the process's lifetime; there is no reset
// within a cycle. It must be constructed explicitly and passed in, never
// discovered through a package-level global (DESIGN NOTES §9).
type Cancel struct {
	flag atomic.Bool
}

// NewCancel returns a handle that is not yet cancelled.
func NewCancel() *Cancel {
	return &Cancel{}
}

// WatchSIGINT wires the handle to the process's SIGINT signal, so that an
// operator hitting Ctrl-C sets it exactly once.
func (c *Cancel) WatchSIGINT() {
	signalwatcher.Watch(func(signalwatcher.Signal) {
		c.Set()
	})
}

// Set marks the handle cancelled. Idempotent.
func (c *Cancel) Set() {
	c.flag.Store(true)
}

// Cancelled reports whether the handle has been set.
func (c *Cancel) Cancelled() bool {
	return c.flag.Load()
}
