package logic

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/sweeney/newyear-wave/internal/wave"
)

// PlaceView is the display view of one place at one instant.
type PlaceView struct {
	Place     Place
	InNewYear bool
	// Arrival is the predicted mean-solar-midnight crossing in UTC.
	Arrival time.Time
	// LocalArrival is Arrival in the place's own time zone.
	LocalArrival time.Time
	// Sunrise and Sunset on January 1 of the display year, in UTC.
	// Both are zero during polar day or night.
	Sunrise time.Time
	Sunset  time.Time
}

// ViewPlace derives the display view of p for state s. Time zone
// conversion happens here and nowhere in the wave package.
func ViewPlace(p Place, s wave.State) PlaceView {
	year := s.Transition.Year
	// Normalized so -180 predicts the date line crossing at WindowStart,
	// matching IsNewYear.
	arrival := wave.SolarMidnightTimeForNewYear(wave.Normalize(p.Lon), year)
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	rise, set := sunrise.SunriseSunset(p.Lat, p.Lon, year, time.January, 1)
	return PlaceView{
		Place:        p,
		InNewYear:    s.IsNewYear(p.Lon),
		Arrival:      arrival,
		LocalArrival: arrival.In(loc),
		Sunrise:      rise,
		Sunset:       set,
	}
}

// ViewPlaces maps ViewPlace over places.
func ViewPlaces(places []Place, s wave.State) []PlaceView {
	out := make([]PlaceView, 0, len(places))
	for _, p := range places {
		out = append(out, ViewPlace(p, s))
	}
	return out
}
