// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gpio-tach/internal/tach"
)

// TopicReadings is the MQTT topic for periodic counter readings.
const TopicReadings = "sensor/tach/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "sensor/tach/system"

// TopicReset is subscribed to; any non-empty message resets the total.
const TopicReset = "sensor/tach/reset"

// Publisher publishes readings and lifecycle events to MQTT.
type Publisher interface {
	// PublishReading sends a counter reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(r Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ResetSource delivers reset requests received from the broker.
type ResetSource interface {
	// OnReset registers fn to be called with the payload of every message
	// on TopicReset. fn runs on the MQTT client goroutine.
	OnReset(fn func(payload []byte)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Reading is one counter sample to publish.
type Reading struct {
	Timestamp time.Time
	Window    time.Duration
	tach.Reading
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingPayload represents the MQTT message payload for a reading.
type ReadingPayload struct {
	Tach TachPayload `json:"tach"`
}

// TachPayload contains the reading details.
type TachPayload struct {
	Timestamp string `json:"timestamp"`
	Live      uint32 `json:"live"`
	Total     uint64 `json:"total"`
	Dropped   uint64 `json:"dropped"`
	WindowMs  int64  `json:"window_ms"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(r Reading) ([]byte, error) {
	payload := ReadingPayload{
		Tach: TachPayload{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
			Live:      r.Live,
			Total:     r.Total,
			Dropped:   r.Dropped,
			WindowMs:  r.Window.Milliseconds(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
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
