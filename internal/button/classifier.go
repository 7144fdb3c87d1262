package button

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/press-sensor/internal/clock"
	"github.com/sweeney/press-sensor/internal/gpio"
	"github.com/sweeney/press-sensor/internal/logic"
)

// maxReadErrors is how many consecutive level read failures abandon a session.
const maxReadErrors = 5

// Sink receives classified presses.
type Sink interface {
	Emit(ctx context.Context, ev logic.PressEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev logic.PressEvent)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev logic.PressEvent) {
	f(ctx, ev)
}

// Sleeper enters low power and arms wake on pin reaching level.
// On real hardware it returns after resume; an error means sleep was not entered.
type Sleeper interface {
	EnterLowPower(ctx context.Context, pin, level int) error
}

// Config configures one monitored button.
type Config struct {
	Name string
	Pin  int

	DebounceWindow     time.Duration
	LongPressThreshold time.Duration
	PollInterval       time.Duration
	QueueDepth         int
	Mode               logic.ClassifyMode

	SleepOnLongPress bool
	WakeLevel        int
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = logic.DefaultDebounceWindow
	}
	if c.LongPressThreshold <= 0 {
		c.LongPressThreshold = logic.DefaultLongPressThreshold
	}
	if c.PollInterval <= 0 {
		c.PollInterval = logic.DefaultPollInterval
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = logic.DefaultQueueDepth
	}
	if c.Mode == "" {
		c.Mode = logic.ClassifyOnThreshold
	}
	return c
}

// Classifier waits for accepted edges and measures each press.
// It handles one session at a time.
type Classifier struct {
	cfg     Config
	det     *Detector
	in      gpio.Input
	clock   clock.Clock
	sink    Sink
	sleeper Sleeper
	logger  *slog.Logger

	// wallNow stamps emitted events; replaced in tests.
	wallNow func() time.Time

	short     atomic.Uint64
	long      atomic.Uint64
	sleeps    atomic.Uint64 // completed transitions only
	coalesced atomic.Uint64
}

// NewClassifier creates a Classifier. sleeper may be nil.
func NewClassifier(cfg Config, det *Detector, in gpio.Input, clk clock.Clock, sink Sink, sleeper Sleeper, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		cfg:     cfg.withDefaults(),
		det:     det,
		in:      in,
		clock:   clk,
		sink:    sink,
		sleeper: sleeper,
		logger:  logger.With("button", cfg.Name, "pin", cfg.Pin),
		wallNow: time.Now,
	}
}

// Run processes edges until ctx is canceled.
func (c *Classifier) Run(ctx context.Context) error {
	c.logger.Info("classifier started", "mode", c.cfg.Mode, "long_press", c.cfg.LongPressThreshold)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("classifier stopping")
			return nil
		case e := <-c.det.Edges():
			c.session(ctx, e)
			if n := c.det.Drain(); n > 0 {
				c.coalesced.Add(uint64(n))
				c.logger.Debug("discarded queued edges", "count", n)
			}
		}
	}
}

// session polls the level until the press resolves.
func (c *Classifier) session(ctx context.Context, e Edge) {
	s := logic.NewSession(e.At, c.cfg.LongPressThreshold, c.cfg.Mode)
	readErrors := 0

	for {
		pressed, err := c.in.Pressed()
		now := c.clock.Now()
		if err != nil {
			readErrors++
			c.logger.Warn("level read error", "error", err, "consecutive", readErrors)
			if readErrors >= maxReadErrors {
				c.logger.Error("abandoning press session", "error", err)
				return
			}
		} else {
			readErrors = 0
			if r, ok := s.Observe(now, !pressed); ok {
				c.resolve(ctx, e, r)
				return
			}
		}

		if err := c.clock.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return
		}
	}
}

func (c *Classifier) resolve(ctx context.Context, e Edge, r logic.Result) {
	ev := logic.PressEvent{
		ID:             uuid.NewString(),
		Button:         c.cfg.Name,
		Pin:            c.cfg.Pin,
		Classification: r.Classification,
		Start:          e.At,
		End:            r.End,
		Duration:       r.Duration,
		DurationKnown:  r.DurationKnown,
		Timestamp:      c.wallNow(),
	}

	switch r.Classification {
	case logic.ShortPress:
		c.short.Add(1)
	case logic.LongPress:
		c.long.Add(1)
	}
	c.logger.Info("press classified", "class", r.Classification, "duration", r.Duration, "id", ev.ID)

	if c.sink != nil {
		c.sink.Emit(ctx, ev)
	}

	if r.Classification != logic.LongPress || !c.cfg.SleepOnLongPress || c.sleeper == nil {
		return
	}
	c.logger.Info("entering low power", "wake_pin", c.cfg.Pin, "wake_level", c.cfg.WakeLevel)
	if err := c.sleeper.EnterLowPower(ctx, c.cfg.Pin, c.cfg.WakeLevel); err != nil {
		// Not retried; the worker re-arms.
		c.logger.Error("sleep transition failed", "error", err)
		return
	}
	c.sleeps.Add(1)
	c.logger.Info("resumed from low power")
}

// Counts returns cumulative outcomes for this button.
func (c *Classifier) Counts() logic.EventCounts {
	ds := c.det.Stats()
	return logic.EventCounts{
		Short:      int(c.short.Load()),
		Long:       int(c.long.Load()),
		Suppressed: int(ds.Suppressed),
		Dropped:    int(ds.Dropped),
		Sleeps:     int(c.sleeps.Load()),
	}
}

// Coalesced returns how many queued edges were discarded after sessions.
func (c *Classifier) Coalesced() uint64 {
	return c.coalesced.Load()
}
