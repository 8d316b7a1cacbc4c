package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sweeney/newyear-wave/internal/wave"
)

// NewYearJSON answers /api/newyear.
type NewYearJSON struct {
	Lon           float64 `json:"lon"`
	NormalizedLon float64 `json:"normalized_lon"`
	InNewYear     bool    `json:"in_new_year"`
	MidnightLon   float64 `json:"midnight_lon"`
	Phase         string  `json:"phase"`
	Year          int     `json:"year"`
	Arrival       string  `json:"arrival"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// parseLon rejects anything the core would refuse.
func parseLon(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	lon, err := strconv.ParseFloat(raw, 64)
	if err != nil || !wave.Predictable(lon) {
		return 0, false
	}
	return lon, true
}

func (s *Server) handleNewYear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, ok := parseLon(q.Get("lon"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "lon must be a finite number of degrees within ±1e6"})
		return
	}

	state := wave.Evaluate(s.clock.Now())
	year := state.Transition.Year
	if raw := q.Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "year must be an integer between 1 and 9999"})
			return
		}
		year = y
	}

	writeJSON(w, http.StatusOK, NewYearJSON{
		Lon:           lon,
		NormalizedLon: wave.Normalize(lon),
		InNewYear:     state.IsNewYear(lon),
		MidnightLon:   state.MidnightLon,
		Phase:         state.Transition.Phase.String(),
		Year:          year,
		Arrival:       wave.SolarMidnightTimeForNewYear(lon, year).Format(timeFormat),
	})
}
