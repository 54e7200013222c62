package enrich

import (
	"regexp"
	"strings"
	"time"

	"github.com/cognicore/newsscan/pkg/newsscan/news"
)

// compactDate is the structured API's seendate format, e.g. 20240115T120000Z.
var compactDate = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})Z$`)

var rfc2822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
}

// legacyZones are the zone names RFC 2822 still accepts. time.Parse gives
// an abbreviation the local zone does not know a zero offset.
var legacyZones = map[string]int{
	"EST": -5 * 3600,
	"EDT": -4 * 3600,
	"CST": -6 * 3600,
	"CDT": -5 * 3600,
	"MST": -7 * 3600,
	"MDT": -6 * 3600,
	"PST": -8 * 3600,
	"PDT": -7 * 3600,
}

var isoLayouts = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
}

// ParseTime tries every supported format and reports whether one matched.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}

	for _, layout := range rfc2822Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return withLegacyZone(t).UTC(), true
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if m := compactDate.FindStringSubmatch(s); m != nil {
		iso := m[1] + "-" + m[2] + "-" + m[3] + "T" + m[4] + ":" + m[5] + ":" + m[6] + "Z"
		if t, err := time.Parse(time.RFC3339, iso); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// withLegacyZone reinterprets the wall clock of t in its named US zone when
// parsing left that zone without an offset.
func withLegacyZone(t time.Time) time.Time {
	name, offset := t.Zone()
	want, ok := legacyZones[name]
	if !ok || offset == want {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond(), time.FixedZone(name, want))
}

// ParseDateAt returns s in canonical form, or now when no format matches.
// Callers must tolerate the approximate date for malformed input.
func ParseDateAt(s string, now time.Time) string {
	if t, ok := ParseTime(s); ok {
		return news.Timestamp(t)
	}
	return news.Timestamp(now)
}

// ParseDate is ParseDateAt against the wall clock.
func ParseDate(s string) string {
	return ParseDateAt(s, time.Now())
}
