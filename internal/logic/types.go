// Package logic contains pure business logic for button press classification.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable as a monotonic time.Duration offset.
package logic

import "time"

// Fixed timing used by the press firmware this daemon replaces.
const (
	DefaultDebounceWindow     = 400 * time.Millisecond
	DefaultLongPressThreshold = 1000 * time.Millisecond
	DefaultPollInterval       = 10 * time.Millisecond
	DefaultQueueDepth         = 10
)

// Classification is the semantic result for one edge.
type Classification string

const (
	ShortPress Classification = "SHORT_PRESS"
	LongPress  Classification = "LONG_PRESS"
	Suppressed Classification = "SUPPRESSED"
)

// ClassifyMode selects when a long press is reported.
type ClassifyMode string

const (
	// ClassifyOnRelease waits for release; the reported duration is exact.
	ClassifyOnRelease ClassifyMode = "release"
	// ClassifyOnThreshold reports LONG_PRESS as soon as the threshold elapses,
	// whether or not the button has been released.
	ClassifyOnThreshold ClassifyMode = "threshold"
)

// ParseClassifyMode converts a config string to a ClassifyMode.
func ParseClassifyMode(s string) (ClassifyMode, bool) {
	switch ClassifyMode(s) {
	case ClassifyOnRelease:
		return ClassifyOnRelease, true
	case ClassifyOnThreshold:
		return ClassifyOnThreshold, true
	}
	return "", false
}

// PressEvent is a classified press to be published.
type PressEvent struct {
	ID             string
	Button         string
	Pin            int
	Classification Classification
	// Start and End are monotonic offsets; only their difference is meaningful.
	Start time.Duration
	End   time.Duration
	// Duration is End-Start. DurationKnown is false when the press was classified
	// at the threshold without observing release.
	Duration      time.Duration
	DurationKnown bool
	// Timestamp is the wall-clock time the event was emitted.
	Timestamp time.Time
}

// EventCounts tracks per-button outcomes since startup.
type EventCounts struct {
	Short      int
	Long       int
	Suppressed int
	Dropped    int
	Sleeps     int
}

// Add returns the element-wise sum of c and o.
func (c EventCounts) Add(o EventCounts) EventCounts {
	return EventCounts{
		Short:      c.Short + o.Short,
		Long:       c.Long + o.Long,
		Suppressed: c.Suppressed + o.Suppressed,
		Dropped:    c.Dropped + o.Dropped,
		Sleeps:     c.Sleeps + o.Sleeps,
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
