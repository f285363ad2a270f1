package timeparse

import (
	"testing"
	"time"
)

func TestDetect_Year(t *testing.T) {
	f, ok := Detect("fetgzrs2015ydhfbgv")
	if !ok {
		t.Fatal("expected a match")
	}
	if f.Layout != "2006" || f.Start != 7 || f.End != 11 || f.Instant {
		t.Fatalf("unexpected format: %+v", f)
	}
	start, end := f.Span(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC))
	wantEnd := time.Date(2015, 12, 31, 23, 59, 59, 0, time.UTC)
	if !start.Equal(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(wantEnd) {
		t.Fatalf("unexpected span: start=%v end=%v", start, end)
	}
}

func TestDetect_YearMonthDay(t *testing.T) {
	f, ok := Detect("fetz23gxgs20150213ydh391fbgv")
	if !ok {
		t.Fatal("expected a match")
	}
	if f.Layout != "20060102" || f.Start != 10 || f.End != 18 || f.Instant {
		t.Fatalf("unexpected format: %+v", f)
	}
}

func TestDetect_FullInstant(t *testing.T) {
	f, ok := Detect("f23gxgs19961130191846y391fbgv")
	if !ok {
		t.Fatal("expected a match")
	}
	if f.Layout != "20060102150405" || f.Start != 7 || f.End != 21 || !f.Instant {
		t.Fatalf("unexpected format: %+v", f)
	}
	instant := time.Date(1996, 11, 30, 19, 18, 46, 0, time.UTC)
	start, end := f.Span(instant)
	if !start.Equal(instant) || !end.Equal(instant) {
		t.Fatalf("instant format must yield a zero-width span, got start=%v end=%v", start, end)
	}
}

func TestExtractRange_RoundTrip(t *testing.T) {
	cases := []string{
		"esacci-data-20150213-v1.nc",
		"esacci-data-2015-v1.nc",
		"esacci-data-201502-v1.nc",
	}
	for _, name := range cases {
		start, end, ok := ExtractRange(name)
		if !ok {
			t.Fatalf("%s: expected a match", name)
		}
		if end.Before(start) {
			t.Fatalf("%s: end %v before start %v", name, end, start)
		}
		f, _ := Detect(name)
		if got := start.Format(f.Layout); got != name[f.Start:f.End] {
			t.Fatalf("%s: start formats back to %q, want %q", name, got, name[f.Start:f.End])
		}
	}
}
