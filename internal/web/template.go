package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/newyear-wave/internal/locale"
	"github.com/sweeney/newyear-wave/internal/status"
	"github.com/sweeney/newyear-wave/internal/wave"
)

// timeFormat keeps millisecond resolution for arrival instants.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05 MST")
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>New Year Wave {{.Year}}</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.bar { background: #eee; height: 14px; width: 100%; }
.bar > div { background: #2a7; height: 14px; }
.yes { color: green; font-weight: bold; }
.no { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1 id="phase">{{.PhaseText}}</h1>
{{if .Countdown}}<p id="countdown">{{.Countdown}}</p>{{end}}

<table>
<tr><th>{{.LabelCoverage}}</th><td id="coverage">{{pct .Coverage}}%<div class="bar"><div style="width: {{pct .Coverage}}%"></div></div></td></tr>
<tr><th>{{.LabelMidnight}}</th><td id="midnight">{{printf "%.4f" .MidnightLon}}°</td></tr>
<tr><th></th><td id="band">{{.BandText}}</td></tr>
</table>

<h2>{{.LabelPlaces}}</h2>
<table>
<tr><th></th><th>{{.LabelArrival}} (UTC)</th><th>{{.LabelLocal}}</th><th>{{.LabelInYear}}</th></tr>
{{range .Places}}<tr>
<td>{{.Name}}</td>
<td>{{clock .Arrival}}</td>
<td>{{clock .LocalArrival}}</td>
<td class="{{if .InNewYear}}yes{{else}}no{{end}}">{{.InNewYearText}}</td>
</tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Clock</th><td>{{.Config.ClockMode}}{{if .Config.Speed}} x{{.Config.Speed}}{{end}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} {{.Config.Broker}}</td></tr>
<tr><th>Indicator</th><td>{{if .IndicatorOn}}on{{else}}off{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/calendar.ics?lang={{.Lang}}">iCalendar</a></p>
</body>
</html>
`

type placeRow struct {
	Name          string
	Arrival       time.Time
	LocalArrival  time.Time
	InNewYear     bool
	InNewYearText string
}

type indexData struct {
	status.Snapshot
	Uptime time.Duration

	Lang        string
	Year        int
	PhaseText   string
	Countdown   string
	Coverage    float64
	MidnightLon float64
	BandText    string
	Places      []placeRow

	LabelCoverage string
	LabelMidnight string
	LabelPlaces   string
	LabelArrival  string
	LabelLocal    string
	LabelInYear   string
}

func renderHTML(w io.Writer, tr *locale.Translator, lang string, snap status.Snapshot) error {
	st := snap.State
	data := indexData{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		Lang:          lang,
		Year:          st.Transition.Year,
		PhaseText:     tr.Phase(lang, st.Transition.Phase, st.Transition.Year),
		Coverage:      st.Transition.Coverage,
		MidnightLon:   st.MidnightLon,
		BandText:      tr.Band(lang, st.Band),
		LabelCoverage: tr.Text(lang, locale.MsgLabelCover, nil),
		LabelMidnight: tr.Text(lang, locale.MsgLabelMid, nil),
		LabelPlaces:   tr.Text(lang, locale.MsgLabelPlaces, nil),
		LabelArrival:  tr.Text(lang, locale.MsgLabelArrival, nil),
		LabelLocal:    tr.Text(lang, locale.MsgLabelLocal, nil),
		LabelInYear:   tr.Text(lang, locale.MsgLabelInYear, nil),
	}
	if st.Transition.Phase == wave.Before && !st.Instant.IsZero() {
		data.Countdown = tr.Countdown(lang, st.Transition.Countdown)
	}
	yes, no := tr.Text(lang, locale.MsgLabelYes, nil), tr.Text(lang, locale.MsgLabelNo, nil)
	for _, v := range snap.Places {
		row := placeRow{
			Name:          v.Place.Name,
			Arrival:       v.Arrival.UTC(),
			LocalArrival:  v.LocalArrival,
			InNewYear:     v.InNewYear,
			InNewYearText: no,
		}
		if v.InNewYear {
			row.InNewYearText = yes
		}
		data.Places = append(data.Places, row)
	}
	return indexTmpl.Execute(w, data)
}
