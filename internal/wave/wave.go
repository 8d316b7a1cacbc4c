package wave

import (
	"fmt"
	"math"
	"time"
)

const (
	degreesPerHour = 15.0
	windowHours    = 24.0
)

// MaxPredictableLongitude bounds |lon| for SolarMidnightTimeForNewYear.
// Beyond it the offset from WindowStart no longer fits a time.Duration.
const MaxPredictableLongitude = 1e6

// Normalize wraps lon into (-180, 180], congruent to lon modulo 360.
// The date line is always reported as +180, so Normalize(540) and
// Normalize(-180) are both 180.
//
// Normalize panics if lon is NaN or infinite.
func Normalize(lon float64) float64 {
	mustBeFinite(lon)
	r := math.Mod(lon, 360)
	if r > 180 {
		r -= 360
	} else if r <= -180 {
		r += 360
	}
	return r
}

// SolarMidnightLongitude returns the meridian at mean solar midnight at t.
// Only the UTC hour, minute and second are used.
func SolarMidnightLongitude(t time.Time) float64 {
	t = t.UTC()
	hours := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return Normalize(-hours * degreesPerHour)
}

// WindowStart returns the start of the transition into year: December 31
// 12:00 UTC of the previous year, when midnight sits on the date line.
func WindowStart(year int) time.Time {
	return time.Date(year-1, time.December, 31, 12, 0, 0, 0, time.UTC)
}

// WindowEnd returns January 1 12:00 UTC of year, when the last longitude
// has passed midnight.
func WindowEnd(year int) time.Time {
	return time.Date(year, time.January, 1, 12, 0, 0, 0, time.UTC)
}

// displayYear picks the year pair for t from its own calendar date.
// December 31 belongs to the transition into the following year; every
// other date belongs to the transition into its own year.
func displayYear(t time.Time) int {
	if t.Month() == time.December && t.Day() == 31 {
		return t.Year() + 1
	}
	return t.Year()
}

// Classify places t in the Before/During/Complete timeline.
func Classify(t time.Time) Transition {
	t = t.UTC()
	year := displayYear(t)
	tr := Transition{
		Year:        year,
		WindowStart: WindowStart(year),
		WindowEnd:   WindowEnd(year),
	}
	switch {
	case t.Before(tr.WindowStart):
		tr.Phase = Before
		tr.Countdown = tr.WindowStart.Sub(t)
	case t.Before(tr.WindowEnd):
		tr.Phase = During
		tr.Coverage = t.Sub(tr.WindowStart).Hours() / windowHours * 100
	default:
		tr.Phase = Complete
		tr.Coverage = 100
	}
	return tr
}

// Countdown returns the time from t until December 31 12:00 UTC of t's
// own year, or zero once that instant has been reached.
func Countdown(t time.Time) time.Duration {
	t = t.UTC()
	start := WindowStart(t.Year() + 1)
	if t.Before(start) {
		return start.Sub(t)
	}
	return 0
}

// IsNewYear reports whether lon has entered the new year. While the wave
// is moving, the new year covers every longitude strictly east of the
// midnight meridian; the meridian itself has not yet crossed.
func IsNewYear(lon float64, phase Phase, midnightLon float64) bool {
	switch phase {
	case Before:
		return false
	case Complete:
		return true
	}
	return Normalize(lon) > Normalize(midnightLon)
}

// SolarMidnightTimeForNewYear returns the UTC instant at which lon reaches
// solar midnight on January 1 of year. lon need not be normalized; 180
// maps to WindowStart(year) and -180 to WindowEnd(year). The result is
// rounded to the millisecond.
//
// SolarMidnightTimeForNewYear panics if lon is not finite or if |lon|
// exceeds MaxPredictableLongitude.
func SolarMidnightTimeForNewYear(lon float64, year int) time.Time {
	mustBeFinite(lon)
	if math.Abs(lon) > MaxPredictableLongitude {
		panic(fmt.Sprintf("wave: longitude %v outside ±%v", lon, MaxPredictableLongitude))
	}
	hours := (180 - lon) / degreesPerHour
	ms := math.Round(hours * float64(time.Hour/time.Millisecond))
	return WindowStart(year).Add(time.Duration(ms) * time.Millisecond)
}

// Evaluate derives the full State for t.
func Evaluate(t time.Time) State {
	t = t.UTC()
	lon := SolarMidnightLongitude(t)
	return State{
		Instant:     t,
		MidnightLon: lon,
		Transition:  Classify(t),
		Band:        BandFor(lon),
	}
}

func mustBeFinite(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic(fmt.Sprintf("wave: non-finite longitude %v", v))
	}
}

// Finite reports whether lon can be passed to the functions in this package.
func Finite(lon float64) bool {
	return !math.IsNaN(lon) && !math.IsInf(lon, 0)
}

// Predictable reports whether lon can be passed to SolarMidnightTimeForNewYear.
func Predictable(lon float64) bool {
	return Finite(lon) && math.Abs(lon) <= MaxPredictableLongitude
}
