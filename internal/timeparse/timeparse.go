// Package timeparse detects the embedded timestamp in a CCI archive
// filename and expands it to the calendar interval it denotes, per
// spec.md §6's six supported formats.
package timeparse

import (
	"regexp"
	"time"
)

// WireLayout is the timestamp layout used on the wire throughout the
// portal ("%Y-%m-%dT%H:%M:%S" in strftime terms).
const WireLayout = "2006-01-02T15:04:05"

type formatRule struct {
	re     *regexp.Regexp
	layout string
	// the calendar span the detected instant denotes, applied as
	// start+span-1s to obtain the interval's end (relativedelta in the
	// source implementation; Go lacks relativedelta, so the span is split
	// into a calendar part, applied via AddDate, and a clock part, applied
	// via time.Duration).
	years, months, days int
	minutes              time.Duration
	// instant is true for the one fully-specified format, whose span is
	// zero (a single point in time, not a covering interval).
	instant bool
}

// rules is ordered longest-prefix-first, mirroring spec.md §6.
var rules = []formatRule{
	{re: regexp.MustCompile(`\d{14}`), layout: "20060102150405", instant: true},
	{re: regexp.MustCompile(`\d{12}`), layout: "200601021504", minutes: time.Minute},
	{re: regexp.MustCompile(`\d{8}`), layout: "20060102", days: 1},
	{re: regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), layout: "2006-01-02", days: 1},
	{re: regexp.MustCompile(`\d{6}`), layout: "200601", months: 1},
	{re: regexp.MustCompile(`\d{4}`), layout: "2006", years: 1},
}

// Format mirrors Python's find_datetime_format return tuple: the detected
// strftime-style layout (as a Go reference-time layout), the half-open
// [Start, End) match span within the source string, and whether the
// format is a single instant.
type Format struct {
	Layout  string
	Start   int
	End     int
	Instant bool

	years, months, days int
	minutes              time.Duration
}

// Detect finds the first (longest) matching timestamp pattern in s and
// returns its layout and match span. It reports ok=false if no pattern
// matches.
func Detect(s string) (Format, bool) {
	for _, r := range rules {
		loc := r.re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		return Format{
			Layout:  r.layout,
			Start:   loc[0],
			End:     loc[1],
			Instant: r.instant,
			years:   r.years,
			months:  r.months,
			days:    r.days,
			minutes: r.minutes,
		}, true
	}
	return Format{}, false
}

// Span applies the format's implicit covering interval to t: the
// fully-specified 14-digit form yields (t, t) — an instant, zero delta;
// every other form yields [t, t+span-1s].
func (f Format) Span(t time.Time) (start, end time.Time) {
	if f.Instant {
		return t, t
	}
	end = t.AddDate(f.years, f.months, f.days).Add(f.minutes).Add(-time.Second)
	return t, end
}

// ExtractRange parses the embedded timestamp out of filename and returns
// the calendar interval it denotes, parsing the matched substring with
// the layout Detect found for it.
func ExtractRange(filename string) (start, end time.Time, ok bool) {
	fmtSpec, found := Detect(filename)
	if !found {
		return time.Time{}, time.Time{}, false
	}
	t, err := time.Parse(fmtSpec.Layout, filename[fmtSpec.Start:fmtSpec.End])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start, end = fmtSpec.Span(t)
	return start, end, true
}
