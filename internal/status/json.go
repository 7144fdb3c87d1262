package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Buttons       []ButtonJSON `json:"buttons"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Short      int `json:"short_press"`
	Long       int `json:"long_press"`
	Suppressed int `json:"suppressed"`
	Dropped    int `json:"dropped"`
	Sleeps     int `json:"sleeps"`
}

// ButtonJSON is the JSON representation of one button.
type ButtonJSON struct {
	Name   string     `json:"name"`
	Pin    int        `json:"pin"`
	State  string     `json:"state"` // PRESSED, RELEASED or UNKNOWN
	Counts CountsJSON `json:"counts"`
	Last   *LastPress `json:"last_press,omitempty"`
}

// LastPress is the most recent classification of a button.
type LastPress struct {
	ID             string `json:"id"`
	Classification string `json:"classification"`
	Timestamp      string `json:"timestamp"`
	DurationMs     *int64 `json:"duration_ms,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	LongPressMs  int64  `json:"long_press_ms"`
	ClassifyMode string `json:"classify_mode"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
}

func countsJSON(c logic.EventCounts) CountsJSON {
	return CountsJSON{
		Short:      c.Short,
		Long:       c.Long,
		Suppressed: c.Suppressed,
		Dropped:    c.Dropped,
		Sleeps:     c.Sleeps,
	}
}

// State returns the display state of a button.
func (b ButtonStatus) State() string {
	switch {
	case !b.PressedKnown:
		return "UNKNOWN"
	case b.Pressed:
		return "PRESSED"
	default:
		return "RELEASED"
	}
}

func buildButton(b ButtonStatus) ButtonJSON {
	out := ButtonJSON{
		Name:   b.Name,
		Pin:    b.Pin,
		State:  b.State(),
		Counts: countsJSON(b.Counts),
	}
	if b.Last != nil {
		out.Last = &LastPress{
			ID:             b.Last.ID,
			Classification: string(b.Last.Classification),
			Timestamp:      b.Last.Timestamp.UTC().Format(time.RFC3339),
		}
		if b.Last.DurationKnown {
			ms := b.Last.Duration.Milliseconds()
			out.Last.DurationMs = &ms
		}
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	buttons := make([]ButtonJSON, len(snap.Buttons))
	for i, b := range snap.Buttons {
		buttons[i] = buildButton(b)
	}

	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        countsJSON(snap.Counts()),
		Buttons:       buttons,
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.DebounceMs,
			LongPressMs:  snap.Config.LongPressMs,
			ClassifyMode: snap.Config.ClassifyMode,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPPort:     snap.Config.HTTPPort,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
