package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/newyear-wave/internal/clock"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/mqtt"
	"github.com/sweeney/newyear-wave/internal/status"
	"github.com/sweeney/newyear-wave/internal/wave"
)

// Kiritimati keeps UTC+14 but sits at -157.4, so solar midnight reaches
// it near the end of the wave.
var places = []logic.Place{
	{Name: "Kiritimati", Lat: 1.87, Lon: -157.4},
	{Name: "Auckland", Lat: -36.85, Lon: 174.76},
	{Name: "Tokyo", Lat: 35.68, Lon: 139.69},
	{Name: "Paris", Lat: 48.86, Lon: 2.35},
	{Name: "New York", Lat: 40.71, Lon: -74.01},
	{Name: "Baker Island", Lat: 0.19, Lon: -176.48},
}

// manualClock lets a test advance the simulated clock's base by hand.
type manualClock struct{ t time.Time }

func (m *manualClock) Now() time.Time { return m.t }

// TestIntegrationReplayedWave replays the whole wave through a simulated
// clock at one sample per simulated five minutes.
func TestIntegrationReplayedWave(t *testing.T) {
	base := &manualClock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	sim := clock.NewSimulated(base, time.Date(2024, 12, 31, 11, 0, 0, 0, time.UTC), 60)
	publisher := mqtt.NewFakePublisher()
	detector := logic.NewDetector(places, base.Now())

	var arrivals []string
	for i := 0; i < 12*27; i++ {
		state := wave.Evaluate(sim.Now())
		for _, event := range detector.Process(state) {
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("publish: %v", err)
			}
			if event.Type == logic.EventArrival {
				arrivals = append(arrivals, event.Place.Name)
			}
		}
		base.t = base.t.Add(5 * time.Second) // five simulated minutes
	}

	want := []string{"Auckland", "Tokyo", "Paris", "New York", "Kiritimati", "Baker Island"}
	if len(arrivals) != len(want) {
		t.Fatalf("arrivals: got %v, want %v", arrivals, want)
	}
	for i := range want {
		if arrivals[i] != want[i] {
			t.Errorf("arrival %d: got %s, want %s", i, arrivals[i], want[i])
		}
	}

	first, last := publisher.Events[0], publisher.Events[len(publisher.Events)-1]
	if first.Type != logic.EventPhaseDuring || last.Type != logic.EventPhaseComplete {
		t.Errorf("wave should open with PHASE_DURING and close with PHASE_COMPLETE, got %s..%s", first.Type, last.Type)
	}
	if counts := detector.EventCountsSnapshot(); counts.Arrivals != 6 || counts.PhaseChanges != 2 {
		t.Errorf("counts: got %+v", counts)
	}
}

// Each arrival event is stamped within one sample of its predicted instant.
func TestIntegrationArrivalMatchesPrediction(t *testing.T) {
	step := time.Minute
	detector := logic.NewDetector(places, time.Now())
	start := wave.WindowStart(2025).Add(-step)

	for at := start; !at.After(wave.WindowEnd(2025)); at = at.Add(step) {
		for _, event := range detector.Process(wave.Evaluate(at)) {
			if event.Type != logic.EventArrival {
				continue
			}
			predicted := wave.SolarMidnightTimeForNewYear(event.Place.Lon, 2025)
			lag := event.Timestamp.Sub(predicted)
			if lag <= 0 || lag > step {
				t.Errorf("%s: event at %v, predicted %v", event.Place.Name, event.Timestamp, predicted)
			}
		}
	}
}

func TestIntegrationPayloadAndStatus(t *testing.T) {
	detector := logic.NewDetector(places, time.Date(2024, 12, 31, 14, 0, 0, 0, time.UTC))
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2024, 12, 31, 14, 0, 0, 0, time.UTC), status.Config{ClockMode: "fixed"})

	for _, at := range []time.Time{
		time.Date(2024, 12, 31, 14, 30, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 15, 0, 0, 0, time.UTC),
	} {
		state := wave.Evaluate(at)
		for _, e := range detector.Process(state) {
			publisher.Publish(e)
		}
		tracker.Update(state, logic.ViewPlaces(detector.Places(), state), detector.IsBaselined(), detector.EventCountsSnapshot())
	}

	if len(publisher.Payloads) != 1 {
		t.Fatalf("expected only Tokyo's arrival, got %d payloads", len(publisher.Payloads))
	}
	var p mqtt.Payload
	if err := json.Unmarshal(publisher.Payloads[0], &p); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if p.Wave.Event != "ARRIVAL" || p.Wave.Place == nil || p.Wave.Place.Name != "Tokyo" {
		t.Errorf("payload: %+v", p.Wave)
	}
	if p.Wave.Timestamp != "2024-12-31T15:00:00.000Z" {
		t.Errorf("timestamp: got %s", p.Wave.Timestamp)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid status: %v", err)
	}
	in := map[string]bool{}
	for _, pl := range sj.Status.Places {
		in[pl.Name] = pl.InNewYear
	}
	for name, want := range map[string]bool{
		"Auckland": true, "Tokyo": true, "Kiritimati": false,
		"Paris": false, "New York": false, "Baker Island": false,
	} {
		if in[name] != want {
			t.Errorf("%s in new year: got %v, want %v", name, in[name], want)
		}
	}
}
