// Package format renders timestamps for display using the front end's
// token layouts (YYYY-MM-DD HH:mm:ss).
package format

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultLayout is used when FormatDate receives an empty layout.
const DefaultLayout = "YYYY-MM-DD"

// Location is the zone dates are rendered in.
var Location = time.Local

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.RFC1123,
	time.RFC1123Z,
}

// FormatDate renders v with layout. v may be a time.Time, *time.Time, unix
// milliseconds (int, int64, float64) or a date string. Empty or invalid input
// yields "".
//
// Each token is replaced once, in the order YYYY MM DD HH mm ss.
func FormatDate(v any, layout string) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	if layout == "" {
		layout = DefaultLayout
	}
	t = t.In(Location)

	r := layout
	r = strings.Replace(r, "YYYY", strconv.Itoa(t.Year()), 1)
	r = strings.Replace(r, "MM", pad2(int(t.Month())), 1)
	r = strings.Replace(r, "DD", pad2(t.Day()), 1)
	r = strings.Replace(r, "HH", pad2(t.Hour()), 1)
	r = strings.Replace(r, "mm", pad2(t.Minute()), 1)
	r = strings.Replace(r, "ss", pad2(t.Second()), 1)
	return r
}

// FormatRelativeTime renders v relative to the current time.
func FormatRelativeTime(v any) string {
	return relativeTo(v, time.Now())
}

func relativeTo(v any, now time.Time) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}

	const (
		day  = 24 * time.Hour
		year = 365 * day
	)
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute") + " ago"
	case diff < day:
		return plural(int(diff/time.Hour), "hour") + " ago"
	case diff < 2*day:
		return "yesterday " + FormatDate(t, "HH:mm")
	case diff < 3*day:
		return "day before yesterday " + FormatDate(t, "HH:mm")
	case diff < 7*day:
		return plural(int(diff/day), "day") + " ago"
	case diff < year:
		return FormatDate(t, "MM-DD HH:mm")
	default:
		return FormatDate(t, "YYYY-MM-DD")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func toTime(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d, true
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, false
		}
		return *d, true
	case int64:
		if d == 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(d), true
	case int:
		if d == 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(d)), true
	case float64:
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(d)), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range parseLayouts {
			if t, err := time.ParseInLocation(layout, s, Location); err == nil {
				return t, true
			}
		}
		slog.Debug("invalid date", slog.String("value", s))
		return time.Time{}, false
	default:
		slog.Debug("unsupported date type", slog.Any("value", v))
		return time.Time{}, false
	}
}
