// Package logic turns the per-tick wave state into discrete events:
// phase changes and the arrival of the new year at configured places.
// Like the wave package it has no I/O; time always arrives as a parameter.
package logic

import (
	"time"

	"github.com/sweeney/newyear-wave/internal/wave"
)

// Place is a named observer location.
type Place struct {
	Name string
	Lat  float64
	Lon  float64
	// Location is the place's time zone, used only for display. Nil means UTC.
	Location *time.Location
}

// EventType identifies what happened.
type EventType string

const (
	EventPhaseBefore   EventType = "PHASE_BEFORE"
	EventPhaseDuring   EventType = "PHASE_DURING"
	EventPhaseComplete EventType = "PHASE_COMPLETE"
	EventArrival       EventType = "ARRIVAL"
)

// Event is a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Phase     wave.Phase
	Year      int
	Coverage  float64
	// Place is set for ARRIVAL events only.
	Place *Place
}

// EventCounts tracks the number of each event kind since startup.
type EventCounts struct {
	PhaseChanges int
	Arrivals     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

func phaseEventType(p wave.Phase) EventType {
	switch p {
	case wave.Before:
		return EventPhaseBefore
	case wave.During:
		return EventPhaseDuring
	}
	return EventPhaseComplete
}
