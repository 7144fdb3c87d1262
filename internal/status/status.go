// Package status provides a thread-safe status tracker for the press-sensor daemon.
// It is read by the HTTP handlers and by the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	DebounceMs   int64
	LongPressMs  int64
	ClassifyMode string
	HeartbeatMs  int64
	Broker       string
	HTTPPort     string
}

// ButtonInfo identifies a monitored button.
type ButtonInfo struct {
	Name string
	Pin  int
}

// ButtonStatus is the tracked state of one button.
type ButtonStatus struct {
	ButtonInfo
	Pressed      bool
	PressedKnown bool
	Counts       logic.EventCounts
	// Last is the most recent classified press, nil before the first.
	Last *logic.PressEvent
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Buttons       []ButtonStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Counts returns counts summed over all buttons.
func (s Snapshot) Counts() logic.EventCounts {
	var total logic.EventCounts
	for _, b := range s.Buttons {
		total = total.Add(b.Counts)
	}
	return total
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
	now   func() time.Time
}

// NewTracker creates a Tracker for the given buttons.
func NewTracker(startTime time.Time, cfg Config, buttons []ButtonInfo) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Buttons:   make([]ButtonStatus, len(buttons)),
		},
		index: make(map[string]int, len(buttons)),
		now:   time.Now,
	}
	for i, b := range buttons {
		t.snap.Buttons[i] = ButtonStatus{ButtonInfo: b}
		t.index[b.Name] = i
	}
	return t
}

// RecordPress stores ev as the button's last press. Unknown buttons are ignored.
func (t *Tracker) RecordPress(ev logic.PressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[ev.Button]
	if !ok {
		return
	}
	t.snap.Buttons[i].Last = &ev
}

// UpdateButton sets the live level and counters of a button.
func (t *Tracker) UpdateButton(name string, pressed, known bool, counts logic.EventCounts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[name]
	if !ok {
		return
	}
	b := &t.snap.Buttons[i]
	b.Pressed = pressed
	b.PressedKnown = known
	b.Counts = counts
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Buttons = make([]ButtonStatus, len(t.snap.Buttons))
	for i, b := range t.snap.Buttons {
		if b.Last != nil {
			last := *b.Last
			b.Last = &last
		}
		s.Buttons[i] = b
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
