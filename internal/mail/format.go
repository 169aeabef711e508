package mail

import (
	"strings"
	"time"
)

// truncateAt is the length above which list columns are shortened.
const (
	truncateAt   = 43
	truncateKeep = 41
	ellipsis     = "..."
)

// Locale holds the layouts used to render dates for administrators.
type Locale struct {
	Name       string
	DateLayout string
	TimeLayout string
}

var locales = map[string]Locale{
	"de": {Name: "de", DateLayout: "02.01.2006", TimeLayout: "15:04"},
	"fr": {Name: "fr", DateLayout: "02.01.2006", TimeLayout: "15:04"},
	"it": {Name: "it", DateLayout: "02.01.2006", TimeLayout: "15:04"},
	"en": {Name: "en", DateLayout: "01/02/2006", TimeLayout: "3:04 PM"},
}

// DefaultLocale is used when no or an unknown locale is configured.
var DefaultLocale = locales["de"]

// LookupLocale returns the locale for a language tag such as "de" or
// "fr-CH", falling back to DefaultLocale.
func LookupLocale(name string) Locale {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexAny(name, "-_"); i > 0 {
		name = name[:i]
	}
	if l, ok := locales[name]; ok {
		return l
	}
	return DefaultLocale
}

// Preview returns the body shortened for list display.
func (r Record) Preview() string {
	return truncate(r.body)
}

// SubjectFormatted returns the subject shortened for list display.
func (r Record) SubjectFormatted() string {
	return truncate(r.subject)
}

// DateFormatted renders the date as a short time when it falls on the
// same day as now, and as date plus time otherwise. The zero date
// renders as an empty string.
func (r Record) DateFormatted(now time.Time, locale Locale) string {
	if r.date.IsZero() {
		return ""
	}
	if locale.DateLayout == "" {
		locale = DefaultLocale
	}

	if sameDay(r.date, now.In(r.date.Location())) {
		return r.date.Format(locale.TimeLayout)
	}
	return r.date.Format(locale.DateLayout) + " " + r.date.Format(locale.TimeLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// truncate counts characters, not bytes, so multi-byte subjects are
// never cut inside a rune.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > truncateAt {
		return string(runes[:truncateKeep]) + ellipsis
	}
	return s
}
