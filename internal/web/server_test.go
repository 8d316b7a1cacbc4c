package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sweeney/newyear-wave/internal/clock"
	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/status"
	"github.com/sweeney/newyear-wave/internal/wave"
)

var (
	midWave = time.Date(2024, 12, 31, 15, 0, 0, 0, time.UTC)
	places  = []logic.Place{
		{Name: "Auckland", Lat: -36.85, Lon: 174.76, Location: time.UTC},
		{Name: "Tokyo", Lat: 35.68, Lon: 139.69, Location: time.UTC},
		{Name: "New York", Lat: 40.71, Lon: -74.01, Location: time.UTC},
	}
)

func newTestServer(t *testing.T, at time.Time) (*httptest.Server, *status.Tracker) {
	t.Helper()
	translator, err := locale.New()
	require.NoError(t, err)

	cfg := status.Config{
		IntervalMs:  1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		ClockMode:   "fixed",
	}
	tracker := status.NewTracker(time.Date(2024, 12, 31, 14, 0, 0, 0, time.UTC), cfg)
	state := wave.Evaluate(at)
	tracker.Update(state, logic.ViewPlaces(places, state), true, logic.EventCounts{PhaseChanges: 1, Arrivals: 2})

	srv := New(Options{
		Addr:       ":0",
		Tracker:    tracker,
		Translator: translator,
		Clock:      clock.Fixed{At: at},
		Places:     places,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tracker
}

func get(t *testing.T, url string, header ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tracker := newTestServer(t, midWave)
	tracker.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, "DURING", sj.Status.Wave.Phase)
	assert.Equal(t, 12.5, sj.Status.Wave.CoveragePercent)
	assert.Equal(t, 135.0, sj.Status.Wave.MidnightLon)
	assert.True(t, sj.Status.Ready)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, 2, sj.Status.Counts.Arrivals)
	require.Len(t, sj.Status.Places, 3)
	assert.True(t, sj.Status.Places[0].InNewYear, "Auckland is past midnight at 15:00Z")
	assert.True(t, sj.Status.Places[1].InNewYear, "Tokyo crossed at 14:41Z")
	assert.False(t, sj.Status.Places[2].InNewYear, "New York is still waiting")
}

func TestHTMLEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, midWave)
	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, body, "The new year is sweeping west")
		assert.Contains(t, body, "12.50%")
		assert.Contains(t, body, "135.0000°")
		assert.Contains(t, body, "Auckland")
		assert.NotContains(t, body, `id="countdown"`)
	}
}

func TestHTMLLocalized(t *testing.T) {
	ts, _ := newTestServer(t, midWave)

	_, body := get(t, ts.URL+"/", "Accept-Language", "fr-FR,fr;q=0.9")
	assert.Contains(t, body, `<html lang="fr">`)
	assert.Contains(t, body, "La nouvelle année avance vers l&#39;ouest")

	_, body = get(t, ts.URL+"/?lang=en", "Accept-Language", "fr")
	assert.Contains(t, body, `<html lang="en">`)
}

func TestHTMLCountdownBeforeWave(t *testing.T) {
	ts, _ := newTestServer(t, time.Date(2024, 12, 31, 10, 30, 0, 0, time.UTC))
	_, body := get(t, ts.URL+"/")
	assert.Contains(t, body, "Waiting for the wave")
	assert.Contains(t, body, "0d 1h 30m 0s until the wave begins")
}

func TestNewYearAPI(t *testing.T) {
	ts, _ := newTestServer(t, midWave)

	resp, body := get(t, ts.URL+"/api/newyear?lon=174.76")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got NewYearJSON
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.True(t, got.InNewYear)
	assert.Equal(t, 135.0, got.MidnightLon)
	assert.Equal(t, "DURING", got.Phase)
	assert.Equal(t, 2025, got.Year)
	assert.Equal(t, "2024-12-31T12:20:57.600Z", got.Arrival)

	_, body = get(t, ts.URL+"/api/newyear?lon=540")
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, 180.0, got.NormalizedLon)
	assert.True(t, got.InNewYear)

	_, body = get(t, ts.URL+"/api/newyear?lon=0&year=2030")
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.False(t, got.InNewYear)
	assert.Equal(t, "2030-01-01T00:00:00.000Z", got.Arrival)
}

func TestNewYearAPIRejectsBadInput(t *testing.T) {
	ts, _ := newTestServer(t, midWave)
	for _, q := range []string{
		"",
		"lon=",
		"lon=east",
		"lon=NaN",
		"lon=Inf",
		"lon=-Inf",
		"lon=1e400",
		"lon=1e20",
		"lon=-4e7",
		"lon=10&year=abc",
		"lon=10&year=0",
	} {
		resp, body := get(t, ts.URL+"/api/newyear?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Contains(t, body, `"error"`, q)
	}
}

func TestNewYearAPILongitudeBound(t *testing.T) {
	ts, _ := newTestServer(t, midWave)

	resp, body := get(t, ts.URL+"/api/newyear?lon=1e6")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got NewYearJSON
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "2017-05-25T05:20:00.000Z", got.Arrival)

	resp, body = get(t, ts.URL+"/api/newyear?lon=1e20")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotContains(t, body, "arrival")
}

func TestCalendar(t *testing.T) {
	ts, _ := newTestServer(t, midWave)

	resp, body := get(t, ts.URL+"/calendar.ics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/calendar; charset=utf-8", resp.Header.Get("Content-Type"))
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	cal, err := ical.NewDecoder(strings.NewReader(body)).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 3)

	summary, err := events[1].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Happy New Year 2025, Tokyo!", summary)

	start, err := events[1].DateTimeStart(time.UTC)
	require.NoError(t, err)
	want := wave.SolarMidnightTimeForNewYear(139.69, 2025).Truncate(time.Second)
	assert.True(t, want.Equal(start), "DTSTART %v, want %v", start, want)

	uid, err := events[2].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "2025-new-york@newyear-wave", uid)

	resp, body = get(t, ts.URL+"/calendar.ics", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)

	resp, _ = get(t, ts.URL+"/calendar.ics?lang=fr", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "language changes the feed")
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
}

func TestBuildCalendar(t *testing.T) {
	translator, err := locale.New()
	require.NoError(t, err)

	data, err := BuildCalendar(translator, "fr", places[:1], 2026)
	require.NoError(t, err)
	cal, err := ical.NewDecoder(strings.NewReader(string(data))).Decode()
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ev := cal.Events()[0]
	summary, _ := ev.Props.Text(ical.PropSummary)
	assert.Equal(t, "Bonne année 2026, Auckland !", summary)
	stamp, err := ev.Props.DateTime(ical.PropDateTimeStamp, time.UTC)
	require.NoError(t, err)
	assert.True(t, wave.WindowStart(2026).Equal(stamp), "DTSTAMP is fixed per year")

	empty, err := BuildCalendar(translator, "en", nil, 2025)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(empty), "BEGIN:VCALENDAR"))
}

func TestBuildCalendarDateLine(t *testing.T) {
	translator, err := locale.New()
	require.NoError(t, err)

	data, err := BuildCalendar(translator, "en", []logic.Place{{Name: "Date line", Lon: -180}}, 2025)
	require.NoError(t, err)
	cal, err := ical.NewDecoder(strings.NewReader(string(data))).Decode()
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	start, err := cal.Events()[0].Props.DateTime(ical.PropDateTimeStart, time.UTC)
	require.NoError(t, err)
	assert.True(t, wave.WindowStart(2025).Equal(start), "got %v", start)
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, midWave)
	for _, path := range []string{"/nope", "/index.xml", "/api"} {
		resp, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tracker := newTestServer(t, midWave)

	later := wave.Evaluate(time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC))
	tracker.Update(later, logic.ViewPlaces(places, later), true, logic.EventCounts{})

	_, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	assert.Equal(t, -45.0, sj.Status.Wave.MidnightLon)
	assert.Equal(t, 62.5, sj.Status.Wave.CoveragePercent)
	assert.False(t, sj.Status.Places[2].InNewYear, "New York at -74 is still waiting")
}
