package web

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/logic"
	"github.com/sweeney/newyear-wave/internal/wave"
	"go.uber.org/zap"
)

const (
	icalProdID  = "-//newyear-wave//Arrivals//EN"
	icalDomain  = "newyear-wave"
	icalRefresh = 24 * time.Hour

	// stubCalendar is served when no places are configured; the encoder
	// refuses a calendar without components.
	stubCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + icalProdID + "\r\nEND:VCALENDAR\r\n"
)

// calendarItem is one rendered feed, keyed by year and language.
type calendarItem struct {
	year int
	lang string
	data []byte
	etag string
}

// BuildCalendar renders one VEVENT per place at its predicted arrival of
// year. Output depends only on its arguments.
func BuildCalendar(tr *locale.Translator, lang string, places []logic.Place, year int) ([]byte, error) {
	if len(places) == 0 {
		return []byte(stubCalendar), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProdID)
	cal.Props.SetText("X-WR-CALNAME", fmt.Sprintf("New Year %d", year))
	cal.Props.SetText("CALSCALE", "GREGORIAN")

	refresh := ical.NewProp("REFRESH-INTERVAL")
	refresh.SetDuration(icalRefresh)
	cal.Props.Set(refresh)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(wave.WindowStart(year))

	for _, p := range places {
		at := wave.SolarMidnightTimeForNewYear(wave.Normalize(p.Lon), year)

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%d-%s@%s", year, slug(p.Name), icalDomain))
		event.Props.SetText(ical.PropSummary, tr.Arrival(lang, p.Name, year))
		event.Props.SetText(ical.PropDescription,
			fmt.Sprintf("%s %.4f°", tr.Text(lang, locale.MsgLabelMid, nil), wave.Normalize(p.Lon)))
		event.Props.Set(stamp)

		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDateTime(at)
		event.Props.Set(start)

		end := ical.NewProp(ical.PropDateTimeEnd)
		end.SetDateTime(at.Add(time.Minute))
		event.Props.Set(end)

		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// calendarFor returns the cached feed for year and lang, rebuilding it
// when either changes.
func (s *Server) calendarFor(year int, lang string) (*calendarItem, error) {
	if item := s.calendar.Load(); item != nil && item.year == year && item.lang == lang {
		return item, nil
	}
	data, err := BuildCalendar(s.tr, lang, s.places, year)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)
	item := &calendarItem{
		year: year,
		lang: lang,
		data: data,
		etag: `"` + hex.EncodeToString(hash[:]) + `"`,
	}
	s.calendar.Store(item)
	s.log.Debug("calendar rebuilt", zap.Int("year", year), zap.String("lang", lang), zap.String("etag", item.etag))
	return item, nil
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year := wave.Classify(s.clock.Now()).Year
	item, err := s.calendarFor(year, s.lang(r))
	if err != nil {
		s.log.Error("calendar", zap.Error(err))
		http.Error(w, "calendar unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("ETag", item.etag)
	if r.Header.Get("If-None-Match") == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Write(item.data)
}
