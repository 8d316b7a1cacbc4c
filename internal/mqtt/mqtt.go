// Package mqtt publishes wave events and state to an MQTT broker, with a
// fake implementation for tests.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/wave"
)

// Topic is the MQTT topic for phase changes and arrivals.
const Topic = "newyear/wave/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "newyear/wave/system"

// TopicState carries the latest derived state, retained.
const TopicState = "newyear/wave/state"

// timeFormat keeps millisecond resolution so arrivals can be ordered.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a wave event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishState sends the derived state as a retained message.
	PublishState(state wave.State) error

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
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a wave event.
type Payload struct {
	Wave EventPayload `json:"wave"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Phase     string        `json:"phase"`
	Year      int           `json:"year"`
	Coverage  float64       `json:"coverage_percent"`
	Place     *PlacePayload `json:"place,omitempty"`
}

// PlacePayload identifies the place an ARRIVAL refers to.
type PlacePayload struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// FormatPayload creates the JSON payload for a wave event.
func FormatPayload(event logic.Event) ([]byte, error) {
	inner := EventPayload{
		Timestamp: event.Timestamp.UTC().Format(timeFormat),
		Event:     string(event.Type),
		Phase:     event.Phase.String(),
		Year:      event.Year,
		Coverage:  event.Coverage,
	}
	if event.Place != nil {
		inner.Place = &PlacePayload{Name: event.Place.Name, Lat: event.Place.Lat, Lon: event.Place.Lon}
	}
	return json.Marshal(Payload{Wave: inner})
}

// StatePayload is the retained payload on TopicState.
type StatePayload struct {
	State StateInner `json:"state"`
}

// StateInner contains the derived state.
type StateInner struct {
	Instant     string  `json:"instant"`
	Phase       string  `json:"phase"`
	Year        int     `json:"year"`
	Coverage    float64 `json:"coverage_percent"`
	MidnightLon float64 `json:"midnight_lon"`
	Band        string  `json:"band"`
}

// FormatStatePayload creates the JSON payload for a derived state.
func FormatStatePayload(s wave.State) ([]byte, error) {
	return json.Marshal(StatePayload{State: StateInner{
		Instant:     s.Instant.UTC().Format(timeFormat),
		Phase:       s.Transition.Phase.String(),
		Year:        s.Transition.Year,
		Coverage:    s.Transition.Coverage,
		MidnightLon: s.MidnightLon,
		Band:        string(s.Band),
	}})
}

// StateFilter passes a state through only when its phase, year, band or
// whole coverage percent differ from the last one passed.
type StateFilter struct {
	primed bool
	last   stateKey
}

type stateKey struct {
	phase    wave.Phase
	year     int
	band     wave.Band
	coverage int
}

// Changed reports whether s should be published and records it if so.
func (f *StateFilter) Changed(s wave.State) bool {
	k := stateKey{
		phase:    s.Transition.Phase,
		year:     s.Transition.Year,
		band:     s.Band,
		coverage: int(math.Floor(s.Transition.Coverage)),
	}
	if f.primed && k == f.last {
		return false
	}
	f.primed = true
	f.last = k
	return true
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
