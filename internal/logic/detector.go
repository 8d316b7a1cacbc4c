package logic

import (
	"time"

	"github.com/sweeney/newyear-wave/internal/wave"
)

// Detector tracks the last seen phase and per-place membership and
// reports changes between successive wave states.
type Detector struct {
	places        []Place
	arrived       []bool
	phase         wave.Phase
	baselined     bool
	last          wave.State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector for the given places.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(places []Place, startTime time.Time) *Detector {
	return &Detector{
		places:        places,
		arrived:       make([]bool, len(places)),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes the wave state for one tick and returns any events that
// should be emitted. The first call establishes the baseline and returns
// nothing, so a restart mid-wave does not replay earlier arrivals.
func (d *Detector) Process(s wave.State) []Event {
	d.last = s
	if !d.baselined {
		d.phase = s.Transition.Phase
		for i, p := range d.places {
			d.arrived[i] = s.IsNewYear(p.Lon)
		}
		d.baselined = true
		return nil
	}

	var events []Event

	// Phase change first, then arrivals in configuration order.
	if s.Transition.Phase != d.phase {
		d.phase = s.Transition.Phase
		events = append(events, Event{
			Timestamp: s.Instant,
			Type:      phaseEventType(s.Transition.Phase),
			Phase:     s.Transition.Phase,
			Year:      s.Transition.Year,
			Coverage:  s.Transition.Coverage,
		})
		d.eventCounts.PhaseChanges++
	}

	for i := range d.places {
		in := s.IsNewYear(d.places[i].Lon)
		if in && !d.arrived[i] {
			events = append(events, Event{
				Timestamp: s.Instant,
				Type:      EventArrival,
				Phase:     s.Transition.Phase,
				Year:      s.Transition.Year,
				Coverage:  s.Transition.Coverage,
				Place:     &d.places[i],
			})
			d.eventCounts.Arrivals++
		}
		d.arrived[i] = in
	}

	return events
}

// IsBaselined returns whether the detector has seen its first sample.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the most recently processed wave state.
func (d *Detector) CurrentState() wave.State {
	return d.last
}

// Places returns the configured places.
func (d *Detector) Places() []Place {
	return d.places
}

// EventCountsSnapshot returns a copy of the event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
