package obs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/press-sensor/internal/button"
	"github.com/sweeney/press-sensor/internal/logic"
)

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Observe(logic.PressEvent{Button: "PWR", Classification: logic.ShortPress, Duration: 200 * time.Millisecond, DurationKnown: true})
	m.Observe(logic.PressEvent{Button: "PWR", Classification: logic.LongPress, Duration: time.Second})
	m.Observe(logic.PressEvent{Button: "UP", Classification: logic.ShortPress, Duration: 80 * time.Millisecond, DurationKnown: true})

	if got := testutil.ToFloat64(m.PressesTotal.WithLabelValues("PWR", "SHORT_PRESS")); got != 1 {
		t.Errorf("PWR short: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PressesTotal.WithLabelValues("PWR", "LONG_PRESS")); got != 1 {
		t.Errorf("PWR long: got %v, want 1", got)
	}
	// Threshold-mode long press has no known duration and is not observed.
	if got := testutil.CollectAndCount(m.PressDurationMS); got != 2 {
		t.Errorf("duration series: got %d, want 2", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetMQTTConnected(true)
	if got := testutil.ToFloat64(m.MQTTConnected); got != 1 {
		t.Errorf("connected: got %v", got)
	}
	m.SetMQTTConnected(false)
	if got := testutil.ToFloat64(m.MQTTConnected); got != 0 {
		t.Errorf("disconnected: got %v", got)
	}
}

func TestWatchDetector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	det := button.NewDetector(21, 400*time.Millisecond, 1)
	m.WatchDetector("PWR", det)

	det.OnEdge(0)                       // accepted
	det.OnEdge(50 * time.Millisecond)   // suppressed
	det.OnEdge(1000 * time.Millisecond) // dropped, queue depth 1

	tests := []struct {
		outcome string
		want    float64
	}{
		{"accepted", 1},
		{"suppressed", 1},
		{"dropped", 1},
	}
	for _, tt := range tests {
		got := gatheredValue(t, reg, "press_edges_total", map[string]string{"button": "PWR", "outcome": tt.outcome})
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.outcome, got, tt.want)
		}
	}
	if got := gatheredValue(t, reg, "press_queue_pending", map[string]string{"button": "PWR"}); got != 1 {
		t.Errorf("pending: got %v, want 1", got)
	}
}

func TestWatchDetectorMultipleButtons(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.WatchDetector("UP", button.NewDetector(5, 400*time.Millisecond, 10))
	m.WatchDetector("DOWN", button.NewDetector(6, 400*time.Millisecond, 10))

	if got, err := testutil.GatherAndCount(reg, "press_edges_total"); err != nil || got != 6 {
		t.Errorf("edge series: got %d (%v), want 6", got, err)
	}
}

type stubSleeper struct{ err error }

func (s stubSleeper) EnterLowPower(ctx context.Context, pin, level int) error { return s.err }

func TestInstrumentSleeper(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	ok := m.InstrumentSleeper("PWR", stubSleeper{})
	if err := ok.EnterLowPower(context.Background(), 21, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("EBUSY")
	bad := m.InstrumentSleeper("PWR", stubSleeper{err: boom})
	if err := bad.EnterLowPower(context.Background(), 21, 0); !errors.Is(err, boom) {
		t.Fatalf("error not passed through: %v", err)
	}

	if got := testutil.ToFloat64(m.SleepTotal.WithLabelValues("PWR", "success")); got != 1 {
		t.Errorf("success: got %v", got)
	}
	if got := testutil.ToFloat64(m.SleepTotal.WithLabelValues("PWR", "fail")); got != 1 {
		t.Errorf("fail: got %v", got)
	}
}
