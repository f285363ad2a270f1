package opensearch

import (
	"strings"
	"time"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/timeparse"
)

// ExtractFeatureTuple builds the (start, end, opendap_url) tuple for one
// catalogue feature, per spec.md §4.2/§6: the feature's "Opendap" related
// link supplies the URL (features without one are skipped); the time
// range comes from the "date" property when present ("start/end", with
// fractional seconds and timezone suffixes trimmed), else from the
// embedded timestamp in the feature's title.
func ExtractFeatureTuple(f Feature) (model.Feature, bool) {
	url, ok := f.Properties.OpendapURL()
	if !ok {
		return model.Feature{}, false
	}

	start, end, ok := extractTimeRange(f.Properties)
	if !ok {
		return model.Feature{}, false
	}

	return model.Feature{Start: start, End: end, OpendapURL: url}, true
}

func extractTimeRange(p FeatureProps) (start, end time.Time, ok bool) {
	if p.Date != "" {
		parts := strings.SplitN(p.Date, "/", 2)
		if len(parts) == 2 {
			s, sok := parseWireTimestamp(parts[0])
			e, eok := parseWireTimestamp(parts[1])
			if sok && eok {
				return s, e, true
			}
		}
	}
	if p.Title != "" {
		if s, e, found := timeparse.ExtractRange(p.Title); found {
			return s, e, true
		}
	}
	return time.Time{}, time.Time{}, false
}

// parseWireTimestamp trims a trailing fractional-seconds or timezone
// suffix (".123456", "+00:00") before parsing with the wire layout, per
// the source's strptime-after-split handling of the "date" property.
func parseWireTimestamp(s string) (time.Time, bool) {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(timeparse.WireLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
