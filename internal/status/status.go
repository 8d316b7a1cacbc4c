// Package status provides a thread-safe status tracker for the newyear-wave daemon.
// It is written by the run loop on every tick and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/wave"
)

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ClockMode   string // "real", "fixed" or "simulated"
	Speed       float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State         wave.State
	Places        []logic.PlaceView
	Baselined     bool
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	IndicatorOn   bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the derived wave state, place views and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state wave.State, places []logic.PlaceView, baselined bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Places = places
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetIndicator records whether the indicator LED is lit.
func (t *Tracker) SetIndicator(on bool) {
	t.mu.Lock()
	t.snap.IndicatorOn = on
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Places = append([]logic.PlaceView(nil), t.snap.Places...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
