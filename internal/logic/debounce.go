package logic

import (
	"math"
	"sync/atomic"
	"time"
)

// noEdge marks a Debouncer that has not seen an edge yet.
const noEdge = math.MinInt64

// EdgeOutcome is what happened to a single edge.
type EdgeOutcome int

const (
	EdgeAccepted EdgeOutcome = iota
	EdgeSuppressed
	EdgeDropped
)

func (o EdgeOutcome) String() string {
	switch o {
	case EdgeAccepted:
		return "accepted"
	case EdgeSuppressed:
		return "suppressed"
	case EdgeDropped:
		return "dropped"
	}
	return "unknown"
}

// Debouncer decides whether an edge starts a new press.
//
// Every edge restarts the window, including suppressed ones, so a train of
// bounces keeps postponing acceptance until the line has been quiet for the
// whole window. Safe for concurrent use; Observe does not block or allocate.
type Debouncer struct {
	window   time.Duration
	lastEdge atomic.Int64
}

// NewDebouncer creates a Debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	d := &Debouncer{window: window}
	d.lastEdge.Store(noEdge)
	return d
}

// Observe records an edge at now and reports whether it is accepted.
func (d *Debouncer) Observe(now time.Duration) bool {
	prev := d.lastEdge.Swap(int64(now))
	if prev == noEdge {
		return true
	}
	return now-time.Duration(prev) > d.window
}

// LastEdge returns the timestamp of the most recent edge, accepted or not.
// ok is false if no edge has been observed.
func (d *Debouncer) LastEdge() (ts time.Duration, ok bool) {
	v := d.lastEdge.Load()
	if v == noEdge {
		return 0, false
	}
	return time.Duration(v), true
}

// Window returns the debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
