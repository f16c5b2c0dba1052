package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DateFormat selects the layout used by FormatDate.
type DateFormat string

const (
	Display         DateFormat = "DD/MM/YYYY"
	DisplayWithTime DateFormat = "DD/MM/YYYY HH:mm"
	API             DateFormat = "YYYY-MM-DD"
	Long            DateFormat = "long"
)

// Layouts accepted for string dates, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate interprets value as a point in time in the given location.
//
// Supported inputs are time.Time, *time.Time, strings in ISO-like layouts
// and int64 unix milliseconds. Strings without an offset are read in loc;
// strings with an offset are converted to loc. time.Time values keep their
// own location.
func ParseDate(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case int64:
		return time.UnixMilli(v).In(loc), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if layout == time.RFC3339Nano {
				if t, err := time.Parse(layout, s); err == nil {
					return t.In(loc), true
				}
				continue
			}
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// FormatDate renders value in the requested format. Unknown formats fall
// back to the profile's short date. Missing or unparseable input yields "".
func (f *Formatter) FormatDate(value any, layout DateFormat) string {
	t, ok := ParseDate(value, f.profile.Location())
	if !ok {
		return ""
	}

	switch layout {
	case Display:
		return fmt.Sprintf("%02d/%02d/%d", t.Day(), int(t.Month()), t.Year())
	case DisplayWithTime:
		return fmt.Sprintf("%02d/%02d/%d %02d:%02d", t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute())
	case API:
		return fmt.Sprintf("%d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	case Long:
		return fmt.Sprintf(f.profile.LongDate, t.Day(), f.profile.MonthName(t.Month()), t.Year())
	default:
		return t.Format(f.profile.ShortDate)
	}
}

// FormatTime renders the hour and minute of value in the profile's layout.
func (f *Formatter) FormatTime(value any) string {
	t, ok := ParseDate(value, f.profile.Location())
	if !ok {
		return ""
	}
	return t.Format(f.profile.TimeLayout)
}

// FormatRelative describes t relative to now, e.g. "3 days ago".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
