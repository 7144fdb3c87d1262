package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "press-sensor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bcs := cfg.ButtonConfigs()
	if len(bcs) != 1 {
		t.Fatalf("expected 1 button, got %d", len(bcs))
	}
	b := bcs[0]
	if b.DebounceWindow != 400*time.Millisecond {
		t.Errorf("DebounceWindow: got %v", b.DebounceWindow)
	}
	if b.LongPressThreshold != time.Second {
		t.Errorf("LongPressThreshold: got %v", b.LongPressThreshold)
	}
	if b.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval: got %v", b.PollInterval)
	}
	if b.QueueDepth != 10 {
		t.Errorf("QueueDepth: got %d", b.QueueDepth)
	}
	if b.Mode != logic.ClassifyOnThreshold {
		t.Errorf("Mode: got %v", b.Mode)
	}
	if !b.SleepOnLongPress {
		t.Error("default PWR button should sleep on long press")
	}

	pc := cfg.PowerConfig()
	if pc.Grace != 500*time.Millisecond || pc.ReleasePoll != 100*time.Millisecond || !pc.WaitForRelease {
		t.Errorf("PowerConfig: got %+v", pc)
	}
	if cfg.Heartbeat() != 15*time.Minute {
		t.Errorf("Heartbeat: got %v", cfg.Heartbeat())
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
classify_mode: release
timing:
  long_press_ms: 1500
buttons:
  - { name: UP, pin: 5 }
  - { name: DOWN, pin: 6 }
  - { name: PWR, pin: 21, sleep_on_long_press: true }
mqtt:
  broker: ""
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.ClassifyMode != "release" {
		t.Errorf("ClassifyMode: got %q", cfg.ClassifyMode)
	}
	// Unset fields keep their defaults.
	if cfg.Timing.DebounceMS != 400 {
		t.Errorf("DebounceMS: got %d, want default 400", cfg.Timing.DebounceMS)
	}
	if cfg.Timing.LongPressMS != 1500 {
		t.Errorf("LongPressMS: got %d", cfg.Timing.LongPressMS)
	}
	if len(cfg.Buttons) != 3 || cfg.Buttons[2].Name != "PWR" || !cfg.Buttons[2].SleepOnLongPress {
		t.Errorf("Buttons: got %+v", cfg.Buttons)
	}
	if cfg.Buttons[0].SleepOnLongPress {
		t.Error("UP should not sleep")
	}
	if cfg.ButtonConfigs()[0].Mode != logic.ClassifyOnRelease {
		t.Error("classify mode not propagated")
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown field", body: "timing:\n  debounce: 5\n", want: "field debounce not found"},
		{name: "trailing document", body: "heartbeat_ms: 0\n---\nheartbeat_ms: 1\n", want: "trailing document"},
		{name: "bad yaml", body: "buttons: [\n", want: "decode config yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := LoadConfigFile(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.GPIO.Backend = "sysfs" }, "gpio.backend"},
		{"zero debounce", func(c *Config) { c.Timing.DebounceMS = 0 }, "debounce_ms"},
		{"zero threshold", func(c *Config) { c.Timing.LongPressMS = 0 }, "long_press_ms"},
		{"poll above threshold", func(c *Config) { c.Timing.PollMS = 1000 }, "poll_ms must be <"},
		{"zero depth", func(c *Config) { c.Timing.QueueDepth = 0 }, "queue_depth"},
		{"bad mode", func(c *Config) { c.ClassifyMode = "hold" }, "classify_mode"},
		{"no buttons", func(c *Config) { c.Buttons = nil }, "buttons must not be empty"},
		{"empty name", func(c *Config) { c.Buttons[0].Name = "" }, "name is empty"},
		{"duplicate pin", func(c *Config) {
			c.Buttons = append(c.Buttons, ButtonConfig{Name: "UP", Pin: 21})
		}, "pin 21 is duplicated"},
		{"duplicate name", func(c *Config) {
			c.Buttons = append(c.Buttons, ButtonConfig{Name: "PWR", Pin: 5})
		}, "is duplicated"},
		{"bad wake level", func(c *Config) { c.Buttons[0].WakeLevel = 2 }, "wake_level"},
		{"active-high wake on sysfs", func(c *Config) { c.Buttons[0].WakeLevel = 1 }, "only supported with sleep.dry_run"},
		{"negative grace", func(c *Config) { c.Sleep.GraceMS = -1 }, "grace_ms"},
		{"no release poll", func(c *Config) { c.Sleep.ReleasePollMS = 0 }, "release_poll_ms"},
		{"no state path", func(c *Config) { c.Sleep.StatePath = "" }, "state_path"},
		{"mqtt without topic", func(c *Config) { c.MQTT.Topic = "" }, "mqtt.topic"},
		{"negative heartbeat", func(c *Config) { c.HeartbeatMS = -1 }, "heartbeat_ms"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateDryRunNeedsNoStatePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sleep.StatePath = ""
	cfg.Sleep.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("dry run should not need a state path: %v", err)
	}
}

func TestValidateWakeLevelOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buttons[0].WakeLevel = 1
	cfg.Sleep.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("dry run should accept wake_level 1: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Buttons[0].WakeLevel = 1
	cfg.Buttons[0].SleepOnLongPress = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("wake_level is unused without sleep_on_long_press: %v", err)
	}
}

func TestFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()
	broker := ""
	mode := "release"
	dry := true
	FlagOverrides{Broker: &broker, ClassifyMode: &mode, DryRun: &dry}.Apply(&cfg)

	if cfg.MQTT.Broker != "" {
		t.Errorf("empty broker override must apply, got %q", cfg.MQTT.Broker)
	}
	if cfg.ClassifyMode != "release" {
		t.Errorf("ClassifyMode: got %q", cfg.ClassifyMode)
	}
	if !cfg.Sleep.DryRun {
		t.Error("DryRun not applied")
	}
	if cfg.HTTP.Addr != ":80" {
		t.Errorf("unset override changed HTTP.Addr to %q", cfg.HTTP.Addr)
	}

	// nil config is a no-op
	FlagOverrides{Broker: &broker}.Apply(nil)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct{ in, want string }{
		{"", ""},
		{"/etc/press.yaml", "/etc/press.yaml"},
		{"~", home},
		{"~/press.yaml", filepath.Join(home, "press.yaml")},
		{"~other/press.yaml", "~other/press.yaml"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"error", slog.LevelError, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"info", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "button", "PWR")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "button=PWR") {
		t.Errorf("warn message missing: %s", out)
	}
}
