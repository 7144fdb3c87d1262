package button

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/press-sensor/internal/clock"
	"github.com/sweeney/press-sensor/internal/gpio"
	"github.com/sweeney/press-sensor/internal/logic"
)

// Monitor is one registered button: its input, detector and classifier.
type Monitor struct {
	cfg        Config
	in         gpio.Input
	detector   *Detector
	classifier *Classifier
}

// Register creates the handoff channel, installs the detector as the input's
// edge handler and prepares the classifier. Call Run to start the worker.
func Register(cfg Config, in gpio.Input, clk clock.Clock, sink Sink, sleeper Sleeper, logger *slog.Logger) (*Monitor, error) {
	cfg = cfg.withDefaults()
	det := NewDetector(cfg.Pin, cfg.DebounceWindow, cfg.QueueDepth)
	if err := in.Watch(det.HandleEdge); err != nil {
		return nil, fmt.Errorf("watch %s (pin %d): %w", cfg.Name, cfg.Pin, err)
	}
	return &Monitor{
		cfg:        cfg,
		in:         in,
		detector:   det,
		classifier: NewClassifier(cfg, det, in, clk, sink, sleeper, logger),
	}, nil
}

// Run runs the classifier until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	return m.classifier.Run(ctx)
}

// Name returns the configured button name.
func (m *Monitor) Name() string {
	return m.cfg.Name
}

// Pin returns the monitored pin.
func (m *Monitor) Pin() int {
	return m.cfg.Pin
}

// Pressed reads the current level.
func (m *Monitor) Pressed() (bool, error) {
	return m.in.Pressed()
}

// Counts returns cumulative outcomes.
func (m *Monitor) Counts() logic.EventCounts {
	return m.classifier.Counts()
}

// Detector exposes edge statistics for metrics.
func (m *Monitor) Detector() *Detector {
	return m.detector
}

// LastEdge returns the last edge timestamp for diagnostics.
func (m *Monitor) LastEdge() (time.Duration, bool) {
	return m.detector.LastEdge()
}

// Close releases the input.
func (m *Monitor) Close() error {
	return m.in.Close()
}
