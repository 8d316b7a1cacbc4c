// Package wave models the solar-midnight line that carries the new year
// westward around the globe.
//
// Everything here is pure: functions take a UTC instant (and sometimes a
// longitude) and return values. There is no clock, no I/O and no shared
// state, so repeated calls with the same instant give identical results.
// Longitudes are degrees east (positive) or west (negative) of Greenwich.
package wave

import "time"

// Phase classifies an instant relative to the transition window.
type Phase int

const (
	// Before is strictly earlier than the window start on December 31.
	Before Phase = iota
	// During is inside [windowStart, windowEnd).
	During
	// Complete is at or after the window end.
	Complete
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "BEFORE"
	case During:
		return "DURING"
	case Complete:
		return "COMPLETE"
	}
	return "UNKNOWN"
}

// Transition is the result of classifying one instant.
type Transition struct {
	Phase Phase
	// Coverage is the elapsed share of the window, 0..100.
	Coverage float64
	// Countdown is the time left until WindowStart. Zero unless Phase is Before.
	Countdown time.Duration
	// Year is the year being entered (the January 1 side of the window).
	Year        int
	WindowStart time.Time
	WindowEnd   time.Time
}

// State is the full set of values derived from one sampled instant.
type State struct {
	Instant     time.Time
	MidnightLon float64
	Transition  Transition
	Band        Band
}

// IsNewYear reports whether lon has entered the new year at s.Instant.
func (s State) IsNewYear(lon float64) bool {
	return IsNewYear(lon, s.Transition.Phase, s.MidnightLon)
}
