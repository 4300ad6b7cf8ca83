package tools

import (
	"context"
	"strings"
	"time"
)

var weekdaysDE = map[string]string{
	"Monday":    "Montag",
	"Tuesday":   "Dienstag",
	"Wednesday": "Mittwoch",
	"Thursday":  "Donnerstag",
	"Friday":    "Freitag",
	"Saturday":  "Samstag",
	"Sunday":    "Sonntag",
}

// getDatetime reports the current local date and time per the configured
// timezone. It never fails: an invalid timezone name falls back to UTC.
type getDatetime struct {
	now func() time.Time
}

func newGetDatetime() *getDatetime {
	return &getDatetime{now: time.Now}
}

func (t *getDatetime) Name() string { return "get_datetime" }

func (t *getDatetime) Run(_ context.Context, _ map[string]any, tc Context) (map[string]any, error) {
	tzName := tc.Settings.Timezone
	if tzName == "" {
		tzName = "Europe/Berlin"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
		tzName = "UTC"
	}

	now := t.now().In(loc)
	weekday := localizedWeekday(now.Weekday().String(), tc.Settings.Locale)

	return map[string]any{
		"iso_datetime":   now.Format(time.RFC3339),
		"local_datetime": formatLocalDatetime(now, tc.Settings.Locale),
		"weekday":        weekday,
		"date":           now.Format("2006-01-02"),
		"time":           now.Format("15:04:05"),
		"timezone":       tzName,
		"locale":         tc.Settings.Locale,
	}, nil
}

func localizedWeekday(weekdayEN, locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "de") {
		if de, ok := weekdaysDE[weekdayEN]; ok {
			return de
		}
	}
	return weekdayEN
}

func formatLocalDatetime(t time.Time, locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "de") {
		return t.Format("02.01.2006 15:04")
	}
	return t.Format("2006-01-02 15:04")
}
