// Package locale translates the labels shown next to the wave: phase
// names, band descriptions and arrival greetings.
package locale

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sweeney/newyear-wave/internal/wave"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Message IDs used outside this package.
const (
	MsgArrival      = "arrival"
	MsgCountdown    = "countdown"
	MsgLabelCover   = "label_coverage"
	MsgLabelMid     = "label_midnight"
	MsgLabelPlaces  = "label_places"
	MsgLabelArrival = "label_arrival"
	MsgLabelLocal   = "label_local"
	MsgLabelInYear  = "label_in_new_year"
	MsgLabelYes     = "label_yes"
	MsgLabelNo      = "label_no"
)

// Translator looks up messages for a requested language, falling back to
// English and finally to the message ID.
type Translator struct {
	bundle  *i18n.Bundle
	tags    []language.Tag
	matcher language.Matcher
}

// New loads every embedded locale file.
func New() (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("locale: read embedded locales: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "active.") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return nil, fmt.Errorf("locale: load %s: %w", e.Name(), err)
		}
	}

	tags := bundle.LanguageTags()
	return &Translator{
		bundle:  bundle,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

// Languages returns the base language codes available, English first.
func (t *Translator) Languages() []string {
	out := make([]string, 0, len(t.tags))
	for _, tag := range t.tags {
		base, _ := tag.Base()
		out = append(out, base.String())
	}
	return out
}

// Match picks the supported language that best fits an Accept-Language
// style preference list such as "fr-CH, fr;q=0.9, en;q=0.8".
func (t *Translator) Match(accept string) string {
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return "en"
	}
	_, idx, _ := t.matcher.Match(prefs...)
	base, _ := t.tags[idx].Base()
	return base.String()
}

// Text localizes id for lang with optional template data.
func (t *Translator) Text(lang, id string, data map[string]any) string {
	loc := i18n.NewLocalizer(t.bundle, lang)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}

// Phase returns the label for p. The complete label names the year.
func (t *Translator) Phase(lang string, p wave.Phase, year int) string {
	return t.Text(lang, "phase_"+strings.ToLower(p.String()), map[string]any{"Year": year})
}

// Band returns the description of where midnight currently is.
func (t *Translator) Band(lang string, b wave.Band) string {
	return t.Text(lang, string(b), nil)
}

// Arrival returns the greeting for place entering year.
func (t *Translator) Arrival(lang, place string, year int) string {
	return t.Text(lang, MsgArrival, map[string]any{"Place": place, "Year": year})
}

// Countdown formats d as a countdown to the wave.
func (t *Translator) Countdown(lang string, d time.Duration) string {
	d = d.Truncate(time.Second)
	return t.Text(lang, MsgCountdown, map[string]any{
		"Days":    int(d.Hours()) / 24,
		"Hours":   int(d.Hours()) % 24,
		"Minutes": int(d.Minutes()) % 60,
		"Seconds": int(d.Seconds()) % 60,
	})
}
