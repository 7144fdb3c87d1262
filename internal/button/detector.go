// Package button turns falling edges on a button line into classified
// presses. A Detector runs in the GPIO event context and hands accepted edges
// to a Classifier goroutine over a bounded channel.
package button

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

// Edge is the token handed from the detector to the classifier.
type Edge struct {
	Pin int
	// At is the accept timestamp, used as the press start.
	At time.Duration
}

// DetectorStats are cumulative edge outcomes.
type DetectorStats struct {
	Accepted   uint64
	Suppressed uint64
	Dropped    uint64
}

// Detector debounces edges and queues accepted ones.
//
// Queueing never blocks: if the classifier has not consumed depth pending
// edges, the new edge is dropped and counted. The debounce timestamp is still
// updated in that case.
type Detector struct {
	pin      int
	debounce *logic.Debouncer
	edges    chan Edge

	accepted   atomic.Uint64
	suppressed atomic.Uint64
	dropped    atomic.Uint64
}

// NewDetector creates a Detector for pin with the given window and queue depth.
func NewDetector(pin int, window time.Duration, depth int) *Detector {
	if depth <= 0 {
		depth = logic.DefaultQueueDepth
	}
	return &Detector{
		pin:      pin,
		debounce: logic.NewDebouncer(window),
		edges:    make(chan Edge, depth),
	}
}

// OnEdge handles one falling edge at now. It does not block.
func (d *Detector) OnEdge(now time.Duration) logic.EdgeOutcome {
	if !d.debounce.Observe(now) {
		d.suppressed.Add(1)
		return logic.EdgeSuppressed
	}
	select {
	case d.edges <- Edge{Pin: d.pin, At: now}:
		d.accepted.Add(1)
		return logic.EdgeAccepted
	default:
		d.dropped.Add(1)
		return logic.EdgeDropped
	}
}

// HandleEdge is OnEdge with the signature of gpio.EdgeHandler.
func (d *Detector) HandleEdge(ts time.Duration) {
	d.OnEdge(ts)
}

// Edges returns the receive side of the handoff channel.
func (d *Detector) Edges() <-chan Edge {
	return d.edges
}

// Drain discards queued edges and returns how many were discarded.
func (d *Detector) Drain() int {
	n := 0
	for {
		select {
		case <-d.edges:
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of queued edges.
func (d *Detector) Pending() int {
	return len(d.edges)
}

// LastEdge returns the most recent edge timestamp, for diagnostics.
func (d *Detector) LastEdge() (time.Duration, bool) {
	return d.debounce.LastEdge()
}

// Stats returns cumulative edge outcomes.
func (d *Detector) Stats() DetectorStats {
	return DetectorStats{
		Accepted:   d.accepted.Load(),
		Suppressed: d.suppressed.Load(),
		Dropped:    d.dropped.Load(),
	}
}
