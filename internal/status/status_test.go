package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

var testButtons = []ButtonInfo{{Name: "UP", Pin: 5}, {Name: "PWR", Pin: 21}}

func fixedTracker(start, now time.Time, cfg Config) *Tracker {
	tr := NewTracker(start, cfg, testButtons)
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 10, DebounceMs: 400, LongPressMs: 1000, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg, testButtons)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.LongPressMs != 1000 {
		t.Errorf("Config.LongPressMs: got %d", snap.Config.LongPressMs)
	}
	if len(snap.Buttons) != 2 || snap.Buttons[1].Name != "PWR" || snap.Buttons[1].Pin != 21 {
		t.Errorf("Buttons: got %+v", snap.Buttons)
	}
	if snap.Buttons[0].State() != "UNKNOWN" || snap.Buttons[0].Last != nil {
		t.Error("buttons should start unknown with no press")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateButtonAndRecordPress(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testButtons)

	tr.UpdateButton("PWR", true, true, logic.EventCounts{Long: 1, Sleeps: 1})
	tr.UpdateButton("UP", false, true, logic.EventCounts{Short: 3, Suppressed: 2})
	tr.RecordPress(logic.PressEvent{ID: "x", Button: "PWR", Classification: logic.LongPress})
	tr.RecordPress(logic.PressEvent{ID: "y", Button: "GHOST"})
	tr.UpdateButton("GHOST", true, true, logic.EventCounts{Short: 99})

	snap := tr.Snapshot()
	if snap.Buttons[1].State() != "PRESSED" || snap.Buttons[0].State() != "RELEASED" {
		t.Errorf("states: %s %s", snap.Buttons[0].State(), snap.Buttons[1].State())
	}
	if snap.Buttons[1].Last == nil || snap.Buttons[1].Last.ID != "x" {
		t.Errorf("PWR last press: %+v", snap.Buttons[1].Last)
	}
	if snap.Buttons[0].Last != nil {
		t.Error("UP should have no last press")
	}

	total := snap.Counts()
	want := logic.EventCounts{Short: 3, Long: 1, Suppressed: 2, Sleeps: 1}
	if total != want {
		t.Errorf("Counts: got %+v, want %+v", total, want)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, nil)
	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(90*time.Second), Config{})
	if got := tr.Snapshot().Uptime(); got != 90*time.Second {
		t.Errorf("Uptime: got %v", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testButtons)
	tr.RecordPress(logic.PressEvent{ID: "a", Button: "UP"})

	snap := tr.Snapshot()
	snap.Buttons[0].Name = "MUTATED"
	snap.Buttons[0].Last.ID = "MUTATED"

	again := tr.Snapshot()
	if again.Buttons[0].Name != "UP" || again.Buttons[0].Last.ID != "a" {
		t.Errorf("snapshot mutation leaked into tracker: %+v", again.Buttons[0])
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	tr := fixedTracker(start, start.Add(5*time.Minute+800*time.Millisecond), Config{
		PollMs: 10, DebounceMs: 400, LongPressMs: 1000, ClassifyMode: "threshold",
		HeartbeatMs: 900000, Broker: "tcp://broker:1883", HTTPPort: ":8080",
	})
	tr.UpdateButton("UP", false, true, logic.EventCounts{Short: 2})
	tr.RecordPress(logic.PressEvent{
		ID: "id-1", Button: "UP", Classification: logic.ShortPress,
		Duration: 120 * time.Millisecond, DurationKnown: true, Timestamp: start.Add(time.Minute),
	})
	tr.RecordPress(logic.PressEvent{
		ID: "id-2", Button: "PWR", Classification: logic.LongPress,
		Duration: time.Second, Timestamp: start.Add(2 * time.Minute),
	})
	tr.SetMQTTConnected(true)

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Event != "" || s.Reason != "" {
		t.Error("web status must not carry event/reason")
	}
	if s.UptimeSeconds != 300 {
		t.Errorf("UptimeSeconds: got %d, want 300", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Counts.Short != 2 {
		t.Errorf("Counts.Short: got %d", s.Counts.Short)
	}
	if len(s.Buttons) != 2 {
		t.Fatalf("Buttons: got %d", len(s.Buttons))
	}
	up, pwr := s.Buttons[0], s.Buttons[1]
	if up.State != "RELEASED" || up.Last == nil || up.Last.DurationMs == nil || *up.Last.DurationMs != 120 {
		t.Errorf("UP: got %+v", up)
	}
	if pwr.State != "UNKNOWN" || pwr.Last == nil || pwr.Last.DurationMs != nil {
		t.Errorf("PWR: threshold long press must omit duration, got %+v", pwr.Last)
	}
	if s.Config.ClassifyMode != "threshold" || s.Config.LongPressMs != 1000 {
		t.Errorf("Config: got %+v", s.Config)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tests := []struct {
		event, reason string
	}{
		{"STARTUP", ""},
		{"HEARTBEAT", ""},
		{"SHUTDOWN", "SIGTERM"},
	}

	tr := NewTracker(time.Now(), Config{}, testButtons)
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			data := FormatStatusEvent(tr.Snapshot(), tt.event, tt.reason)

			var raw map[string]map[string]interface{}
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			st := raw["status"]
			if st["event"] != tt.event {
				t.Errorf("event: got %v", st["event"])
			}
			_, hasReason := st["reason"]
			if hasReason != (tt.reason != "") {
				t.Errorf("reason present=%v for %q", hasReason, tt.reason)
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testButtons)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			tr.UpdateButton("UP", n%2 == 0, true, logic.EventCounts{Short: n})
		}(i)
		go func() {
			defer wg.Done()
			tr.RecordPress(logic.PressEvent{Button: "PWR", Classification: logic.ShortPress})
		}()
		go func() {
			defer wg.Done()
			_ = FormatJSON(tr.Snapshot())
		}()
	}
	wg.Wait()
}
