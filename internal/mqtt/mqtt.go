// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/press-sensor/internal/logic"
)

// Default topics, overridable from config.
const (
	DefaultTopic       = "energy/PRESS_SENSOR/PRESS"
	DefaultTopicSystem = "energy/PRESS_SENSOR/SYSTEM"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a classified press to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.PressEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Press PressPayload `json:"press"`
}

// PressPayload contains the press details.
type PressPayload struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	Button         string `json:"button"`
	Pin            int    `json:"pin"`
	Classification string `json:"classification"`
	// DurationMs is omitted when the press was classified before release.
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

// FormatPayload creates the JSON payload for a press event.
func FormatPayload(event logic.PressEvent) ([]byte, error) {
	p := PressPayload{
		ID:             event.ID,
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
		Button:         event.Button,
		Pin:            event.Pin,
		Classification: string(event.Classification),
	}
	if event.DurationKnown {
		ms := event.Duration.Milliseconds()
		p.DurationMs = &ms
	}
	return json.Marshal(Payload{Press: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
