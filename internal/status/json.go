package status

import (
	"encoding/json"
	"time"
)

// timeFormat keeps the millisecond resolution of the sampled instant.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Wave          WaveJSON    `json:"wave"`
	Places        []PlaceJSON `json:"places"`
	Ready         bool        `json:"ready"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Indicator     bool        `json:"indicator"`
	Counts        CountsJSON  `json:"event_counts"`
	Config        ConfigJSON  `json:"config"`
}

// WaveJSON is the JSON representation of the derived wave state.
type WaveJSON struct {
	Instant          string  `json:"instant"`
	Phase            string  `json:"phase"`
	Year             int     `json:"year"`
	CoveragePercent  float64 `json:"coverage_percent"`
	CountdownSeconds int64   `json:"countdown_seconds"`
	WindowStart      string  `json:"window_start"`
	WindowEnd        string  `json:"window_end"`
	MidnightLon      float64 `json:"midnight_lon"`
	Band             string  `json:"band"`
}

// PlaceJSON is the JSON representation of one place view.
type PlaceJSON struct {
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	InNewYear    bool    `json:"in_new_year"`
	Arrival      string  `json:"arrival"`
	LocalArrival string  `json:"local_arrival"`
	Sunrise      string  `json:"sunrise,omitempty"`
	Sunset       string  `json:"sunset,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	PhaseChanges int `json:"phase_changes"`
	Arrivals     int `json:"arrivals"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs  int64   `json:"interval_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
	ClockMode   string  `json:"clock_mode"`
	Speed       float64 `json:"speed,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

// BuildWave converts snap's wave state to its JSON form.
func BuildWave(snap Snapshot) WaveJSON {
	s := snap.State
	return WaveJSON{
		Instant:          formatTime(s.Instant.UTC()),
		Phase:            s.Transition.Phase.String(),
		Year:             s.Transition.Year,
		CoveragePercent:  s.Transition.Coverage,
		CountdownSeconds: int64(s.Transition.Countdown.Truncate(time.Second).Seconds()),
		WindowStart:      formatTime(s.Transition.WindowStart),
		WindowEnd:        formatTime(s.Transition.WindowEnd),
		MidnightLon:      s.MidnightLon,
		Band:             string(s.Band),
	}
}

func buildInner(snap Snapshot) StatusInner {
	places := make([]PlaceJSON, 0, len(snap.Places))
	for _, v := range snap.Places {
		places = append(places, PlaceJSON{
			Name:         v.Place.Name,
			Lat:          v.Place.Lat,
			Lon:          v.Place.Lon,
			InNewYear:    v.InNewYear,
			Arrival:      formatTime(v.Arrival.UTC()),
			LocalArrival: formatTime(v.LocalArrival),
			Sunrise:      formatTime(v.Sunrise.UTC()),
			Sunset:       formatTime(v.Sunset.UTC()),
		})
	}

	return StatusInner{
		Wave:          BuildWave(snap),
		Places:        places,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Indicator:     snap.IndicatorOn,
		Counts: CountsJSON{
			PhaseChanges: snap.Counts.PhaseChanges,
			Arrivals:     snap.Counts.Arrivals,
		},
		Config: ConfigJSON{
			IntervalMs:  snap.Config.IntervalMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ClockMode:   snap.Config.ClockMode,
			Speed:       snap.Config.Speed,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
