// Package obs exposes Prometheus metrics for press classification.
package obs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/press-sensor/internal/button"
	"github.com/sweeney/press-sensor/internal/logic"
)

type Metrics struct {
	PressesTotal    *prometheus.CounterVec   // button, classification
	PressDurationMS *prometheus.HistogramVec // button; only presses with a known duration
	SleepTotal      *prometheus.CounterVec   // button, result=success|fail
	MQTTConnected   prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics creates and registers the metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PressesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "press_classified_total",
				Help: "Total classified press sessions by button and classification",
			},
			[]string{"button", "classification"},
		),
		PressDurationMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "press_duration_ms",
				Help:    "Measured press duration (ms)",
				Buckets: prometheus.ExponentialBuckets(25, 2, 10), // 25ms .. ~12.8s
			},
			[]string{"button"},
		),
		SleepTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "press_sleep_total",
				Help: "Sleep transitions by button and result",
			},
			[]string{"button", "result"},
		),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "press_mqtt_connected",
			Help: "1 if the MQTT client is connected",
		}),
		reg: reg,
	}

	reg.MustRegister(
		m.PressesTotal,
		m.PressDurationMS,
		m.SleepTotal,
		m.MQTTConnected,
	)

	return m
}

// Observe records a classified press.
func (m *Metrics) Observe(ev logic.PressEvent) {
	m.PressesTotal.WithLabelValues(ev.Button, string(ev.Classification)).Inc()
	if ev.DurationKnown {
		m.PressDurationMS.WithLabelValues(ev.Button).Observe(float64(ev.Duration.Milliseconds()))
	}
}

// SetMQTTConnected updates the connection gauge.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.MQTTConnected.Set(1)
	} else {
		m.MQTTConnected.Set(0)
	}
}

// WatchDetector exports a detector's edge counters. Values are read from the
// detector's atomics at scrape time so the edge path never touches Prometheus.
func (m *Metrics) WatchDetector(name string, d *button.Detector) {
	labels := prometheus.Labels{"button": name}
	outcome := func(o logic.EdgeOutcome, read func(button.DetectorStats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "press_edges_total",
			Help:        "Falling edges seen by the detector, by outcome",
			ConstLabels: prometheus.Labels{"button": name, "outcome": o.String()},
		}, func() float64 { return float64(read(d.Stats())) })
	}

	m.reg.MustRegister(
		outcome(logic.EdgeAccepted, func(s button.DetectorStats) uint64 { return s.Accepted }),
		outcome(logic.EdgeSuppressed, func(s button.DetectorStats) uint64 { return s.Suppressed }),
		outcome(logic.EdgeDropped, func(s button.DetectorStats) uint64 { return s.Dropped }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "press_queue_pending",
			Help:        "Edges waiting in the button queue",
			ConstLabels: labels,
		}, func() float64 { return float64(d.Pending()) }),
	)
}

// InstrumentSleeper wraps s so each transition is counted for the button.
func (m *Metrics) InstrumentSleeper(name string, s button.Sleeper) button.Sleeper {
	return &sleepRecorder{name: name, next: s, m: m}
}

type sleepRecorder struct {
	name string
	next button.Sleeper
	m    *Metrics
}

func (r *sleepRecorder) EnterLowPower(ctx context.Context, pin, level int) error {
	err := r.next.EnterLowPower(ctx, pin, level)
	result := "success"
	if err != nil {
		result = "fail"
	}
	r.m.SleepTotal.WithLabelValues(r.name, result).Inc()
	return err
}
