package format

import (
	"testing"
	"time"
)

func withUTC(t *testing.T) {
	t.Helper()
	prev := Location
	Location = time.UTC
	t.Cleanup(func() { Location = prev })
}

func TestFormatDateFixedLiteral(t *testing.T) {
	withUTC(t)
	d := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"YYYY-MM-DD HH:mm:ss", "2024-03-05 07:08:09"},
		{"", "2024-03-05"},
		{"MM-DD HH:mm", "03-05 07:08"},
		{"HH:mm", "07:08"},
	}
	for _, tt := range tests {
		if got := FormatDate(d, tt.layout); got != tt.want {
			t.Fatalf("layout %q: got %q want %q", tt.layout, got, tt.want)
		}
	}
}

func TestFormatDateInputKinds(t *testing.T) {
	withUTC(t)
	d := time.Date(2023, time.December, 31, 23, 59, 58, 0, time.UTC)
	want := "2023-12-31 23:59:58"

	inputs := []any{
		d,
		&d,
		d.UnixMilli(),
		float64(d.UnixMilli()),
		"2023-12-31T23:59:58Z",
		"2023-12-31 23:59:58",
	}
	for _, in := range inputs {
		if got := FormatDate(in, "YYYY-MM-DD HH:mm:ss"); got != want {
			t.Fatalf("%T %v: got %q", in, in, got)
		}
	}
}

func TestFormatDateInvalidReturnsEmpty(t *testing.T) {
	var nilTime *time.Time
	for _, in := range []any{nil, "", "not a date", "2024-13-45", time.Time{}, nilTime, struct{}{}, 0} {
		if got := FormatDate(in, "YYYY-MM-DD HH:mm:ss"); got != "" {
			t.Fatalf("%#v: expected empty string, got %q", in, got)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	withUTC(t)
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{30 * time.Hour, "yesterday 06:00"},
		{50 * time.Hour, "day before yesterday 10:00"},
		{4 * 24 * time.Hour, "4 days ago"},
		{40 * 24 * time.Hour, "05-01 12:00"},
		{400 * 24 * time.Hour, "2023-05-07"},
	}
	for _, tt := range tests {
		if got := relativeTo(now.Add(-tt.ago), now); got != tt.want {
			t.Fatalf("%v ago: got %q want %q", tt.ago, got, tt.want)
		}
	}
}
