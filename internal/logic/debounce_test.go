package logic

import (
	"testing"
	"time"
)

func TestDebouncerFirstEdgeAccepted(t *testing.T) {
	d := NewDebouncer(400 * time.Millisecond)

	if _, ok := d.LastEdge(); ok {
		t.Error("new debouncer should report no last edge")
	}
	if !d.Observe(0) {
		t.Error("first edge at t=0 should be accepted")
	}
	ts, ok := d.LastEdge()
	if !ok || ts != 0 {
		t.Errorf("LastEdge: got (%v, %v), want (0, true)", ts, ok)
	}
}

// Edges at t=0 and t=50ms: only t=0 is accepted.
func TestDebouncerBounceSuppressed(t *testing.T) {
	d := NewDebouncer(400 * time.Millisecond)

	if !d.Observe(0) {
		t.Error("edge at 0ms should be accepted")
	}
	if d.Observe(50 * time.Millisecond) {
		t.Error("edge at 50ms should be suppressed")
	}
	ts, _ := d.LastEdge()
	if ts != 50*time.Millisecond {
		t.Errorf("suppressed edge must still update last edge: got %v", ts)
	}
}

func TestDebouncerSpacedEdgesAllAccepted(t *testing.T) {
	tests := []struct {
		name    string
		spacing time.Duration
	}{
		{"just over window", 400*time.Millisecond + time.Microsecond},
		{"half second", 500 * time.Millisecond},
		{"several seconds", 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(400 * time.Millisecond)
			accepted := 0
			for i := 0; i < 20; i++ {
				if d.Observe(time.Duration(i) * tt.spacing) {
					accepted++
				}
			}
			if accepted != 20 {
				t.Errorf("expected 20 accepted, got %d", accepted)
			}
		})
	}
}

func TestDebouncerBurstAcceptsOne(t *testing.T) {
	tests := []struct {
		name    string
		spacing time.Duration
		n       int
	}{
		{"exactly window", 400 * time.Millisecond, 10},
		{"1ms bounce", time.Millisecond, 50},
		{"300ms apart", 300 * time.Millisecond, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(400 * time.Millisecond)
			start := 10 * time.Second
			accepted := 0
			for i := 0; i < tt.n; i++ {
				if d.Observe(start + time.Duration(i)*tt.spacing) {
					accepted++
				}
			}
			if accepted != 1 {
				t.Errorf("burst of %d: expected 1 accepted, got %d", tt.n, accepted)
			}
		})
	}
}

// A burst keeps restarting the window, so the first quiet edge must wait a
// full window after the last bounce, not after the accepted edge.
func TestDebouncerWindowRestartsOnSuppressed(t *testing.T) {
	d := NewDebouncer(400 * time.Millisecond)

	d.Observe(0)
	d.Observe(300 * time.Millisecond)
	if d.Observe(600 * time.Millisecond) {
		t.Error("edge 300ms after a suppressed edge should be suppressed")
	}
	if !d.Observe(1001 * time.Millisecond) {
		t.Error("edge 401ms after last bounce should be accepted")
	}
}

func TestEdgeOutcomeString(t *testing.T) {
	tests := map[EdgeOutcome]string{
		EdgeAccepted:    "accepted",
		EdgeSuppressed:  "suppressed",
		EdgeDropped:     "dropped",
		EdgeOutcome(42): "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(o), got, want)
		}
	}
}
