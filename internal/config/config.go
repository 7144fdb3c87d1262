// Package config loads the press-sensor YAML configuration.
//
// Precedence is defaults, then the config file, then command-line flags.
// Validate must be called after all three are applied; the rest of the
// program assumes a well-formed Config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/press-sensor/internal/button"
	"github.com/sweeney/press-sensor/internal/gpio"
	"github.com/sweeney/press-sensor/internal/logic"
	"github.com/sweeney/press-sensor/internal/power"
)

// Config is the top-level YAML configuration.
type Config struct {
	GPIO         GPIOConfig     `yaml:"gpio"`
	Timing       TimingConfig   `yaml:"timing"`
	ClassifyMode string         `yaml:"classify_mode"`
	Buttons      []ButtonConfig `yaml:"buttons"`
	Sleep        SleepConfig    `yaml:"sleep"`
	MQTT         MQTTConfig     `yaml:"mqtt"`
	HTTP         HTTPConfig     `yaml:"http"`
	HeartbeatMS  int            `yaml:"heartbeat_ms"`
	Logging      LoggingConfig  `yaml:"logging"`
}

type GPIOConfig struct {
	Backend string `yaml:"backend"` // "cdev" or "periph"
	Chip    string `yaml:"chip"`
}

type TimingConfig struct {
	DebounceMS  int `yaml:"debounce_ms"`
	LongPressMS int `yaml:"long_press_ms"`
	PollMS      int `yaml:"poll_ms"`
	QueueDepth  int `yaml:"queue_depth"`
}

type ButtonConfig struct {
	Name             string `yaml:"name"`
	Pin              int    `yaml:"pin"`
	SleepOnLongPress bool   `yaml:"sleep_on_long_press"`
	WakeLevel        int    `yaml:"wake_level"`
}

type SleepConfig struct {
	GraceMS        int    `yaml:"grace_ms"`
	WaitForRelease bool   `yaml:"wait_for_release"`
	ReleasePollMS  int    `yaml:"release_poll_ms"`
	StatePath      string `yaml:"state_path"`
	State          string `yaml:"state"`
	// WakeupPath may contain "{pin}". Empty skips wake-source configuration.
	WakeupPath string `yaml:"wakeup_path,omitempty"`
	DryRun     bool   `yaml:"dry_run,omitempty"`
}

type MQTTConfig struct {
	// Broker empty disables MQTT.
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	SystemTopic string `yaml:"system_topic"`
	Buffer      int    `yaml:"buffer"`
}

type HTTPConfig struct {
	// Addr empty disables the status server.
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		GPIO: GPIOConfig{
			Backend: gpio.BackendCdev,
			Chip:    gpio.DefaultChip,
		},
		Timing: TimingConfig{
			DebounceMS:  int(logic.DefaultDebounceWindow / time.Millisecond),
			LongPressMS: int(logic.DefaultLongPressThreshold / time.Millisecond),
			PollMS:      int(logic.DefaultPollInterval / time.Millisecond),
			QueueDepth:  logic.DefaultQueueDepth,
		},
		ClassifyMode: string(logic.ClassifyOnThreshold),
		Buttons: []ButtonConfig{
			{Name: "PWR", Pin: 21, SleepOnLongPress: true, WakeLevel: 0},
		},
		Sleep: SleepConfig{
			GraceMS:        int(power.DefaultGrace / time.Millisecond),
			WaitForRelease: true,
			ReleasePollMS:  int(power.DefaultReleasePoll / time.Millisecond),
			StatePath:      power.DefaultStatePath,
			State:          power.DefaultState,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "press-sensor",
			Topic:       "energy/PRESS_SENSOR/PRESS",
			SystemTopic: "energy/PRESS_SENSOR/SYSTEM",
			Buffer:      100,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		HeartbeatMS: 15 * 60 * 1000,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from command-line flags. A non-nil pointer is
// applied even if it holds the zero value.
type FlagOverrides struct {
	Broker       *string
	HTTPAddr     *string
	LogLevel     *string
	ClassifyMode *string
	DryRun       *bool
}

// Apply applies overrides on top of cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.ClassifyMode != nil {
		cfg.ClassifyMode = *o.ClassifyMode
	}
	if o.DryRun != nil {
		cfg.Sleep.DryRun = *o.DryRun
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.GPIO.Backend != gpio.BackendCdev && c.GPIO.Backend != gpio.BackendPeriph {
		return fmt.Errorf("gpio.backend must be %q or %q", gpio.BackendCdev, gpio.BackendPeriph)
	}
	if c.GPIO.Backend == gpio.BackendCdev && c.GPIO.Chip == "" {
		return errors.New("gpio.chip must not be empty")
	}

	if c.Timing.DebounceMS <= 0 {
		return errors.New("timing.debounce_ms must be > 0")
	}
	if c.Timing.LongPressMS <= 0 {
		return errors.New("timing.long_press_ms must be > 0")
	}
	if c.Timing.PollMS <= 0 {
		return errors.New("timing.poll_ms must be > 0")
	}
	if c.Timing.PollMS >= c.Timing.LongPressMS {
		return errors.New("timing.poll_ms must be < timing.long_press_ms")
	}
	if c.Timing.QueueDepth <= 0 {
		return errors.New("timing.queue_depth must be > 0")
	}

	if _, ok := logic.ParseClassifyMode(c.ClassifyMode); !ok {
		return fmt.Errorf("classify_mode must be %q or %q", logic.ClassifyOnRelease, logic.ClassifyOnThreshold)
	}

	if len(c.Buttons) == 0 {
		return errors.New("buttons must not be empty")
	}
	names := make(map[string]bool, len(c.Buttons))
	pins := make(map[int]bool, len(c.Buttons))
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("buttons[%d].name is empty", i)
		}
		if b.Pin < 0 {
			return fmt.Errorf("buttons[%d].pin must be >= 0", i)
		}
		if names[b.Name] {
			return fmt.Errorf("buttons[%d].name %q is duplicated", i, b.Name)
		}
		if pins[b.Pin] {
			return fmt.Errorf("buttons[%d].pin %d is duplicated", i, b.Pin)
		}
		if b.WakeLevel != 0 && b.WakeLevel != 1 {
			return fmt.Errorf("buttons[%d].wake_level must be 0 or 1", i)
		}
		// The sysfs suspender only arms active-low wake sources.
		if b.SleepOnLongPress && b.WakeLevel != 0 && !c.Sleep.DryRun {
			return fmt.Errorf("buttons[%d].wake_level %d is only supported with sleep.dry_run", i, b.WakeLevel)
		}
		names[b.Name] = true
		pins[b.Pin] = true
	}

	if c.Sleep.GraceMS < 0 {
		return errors.New("sleep.grace_ms must be >= 0")
	}
	if c.Sleep.WaitForRelease && c.Sleep.ReleasePollMS <= 0 {
		return errors.New("sleep.release_poll_ms must be > 0 when sleep.wait_for_release is set")
	}
	if !c.Sleep.DryRun && c.Sleep.StatePath == "" {
		return errors.New("sleep.state_path must not be empty")
	}

	if c.MQTT.Broker != "" {
		if c.MQTT.Topic == "" || c.MQTT.SystemTopic == "" {
			return errors.New("mqtt.topic and mqtt.system_topic must be set when mqtt.broker is set")
		}
		if c.MQTT.ClientID == "" {
			return errors.New("mqtt.client_id must not be empty")
		}
		if c.MQTT.Buffer < 0 {
			return errors.New("mqtt.buffer must be >= 0")
		}
	}

	if c.HeartbeatMS < 0 {
		return errors.New("heartbeat_ms must be >= 0")
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ButtonConfigs converts the file config into per-button classifier configs.
func (c *Config) ButtonConfigs() []button.Config {
	mode, _ := logic.ParseClassifyMode(c.ClassifyMode)
	out := make([]button.Config, 0, len(c.Buttons))
	for _, b := range c.Buttons {
		out = append(out, button.Config{
			Name:               b.Name,
			Pin:                b.Pin,
			DebounceWindow:     ms(c.Timing.DebounceMS),
			LongPressThreshold: ms(c.Timing.LongPressMS),
			PollInterval:       ms(c.Timing.PollMS),
			QueueDepth:         c.Timing.QueueDepth,
			Mode:               mode,
			SleepOnLongPress:   b.SleepOnLongPress,
			WakeLevel:          b.WakeLevel,
		})
	}
	return out
}

// PowerConfig converts the sleep section into a power.Config.
func (c *Config) PowerConfig() power.Config {
	return power.Config{
		Grace:          ms(c.Sleep.GraceMS),
		WaitForRelease: c.Sleep.WaitForRelease,
		ReleasePoll:    ms(c.Sleep.ReleasePollMS),
	}
}

// Heartbeat returns the heartbeat interval; zero disables it.
func (c *Config) Heartbeat() time.Duration {
	return ms(c.HeartbeatMS)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
