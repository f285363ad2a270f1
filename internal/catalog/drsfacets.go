package catalog

import (
	"strings"

	"github.com/esacci/odpcore/internal/model"
)

// frequencyAliases normalizes the DRS id's frequency segment token before
// comparing it against a search filter, per spec.md §4.4. Tokens with no
// entry pass through unchanged.
var frequencyAliases = map[string]string{
	"mon":      "month",
	"yr":       "year",
	"5-days":   "5 days",
	"8-days":   "8 days",
	"15-days":  "15 days",
	"13-yrs":   "13 years",
}

func normalizeFrequency(token string) string {
	if v, ok := frequencyAliases[token]; ok {
		return v
	}
	return token
}

func normalizeProductVersion(token string) string {
	return strings.ReplaceAll(token, ".", "-")
}

// matchesDRSFacets reports whether id's positionally-encoded facets match
// every non-empty field of f, per spec.md §4.4's facet-position mapping.
// A malformed id (wrong segment count) never matches.
func matchesDRSFacets(id model.DrsId, f model.SearchFilters) bool {
	parts, err := id.Split()
	if err != nil {
		return false
	}
	seg := func(i int) string { return parts[i] }

	if f.ECV != "" && seg(model.SegECV) != f.ECV {
		return false
	}
	if f.Frequency != "" && normalizeFrequency(seg(model.SegFrequency)) != normalizeFrequency(f.Frequency) {
		return false
	}
	if f.ProcessingLevel != "" && seg(model.SegLevel) != f.ProcessingLevel {
		return false
	}
	if f.DataType != "" && seg(model.SegDataType) != f.DataType {
		return false
	}
	if f.ProductString != "" && seg(model.SegProductString) != f.ProductString {
		return false
	}
	if f.ProductVersion != "" &&
		normalizeProductVersion(seg(model.SegProductVersion)) != normalizeProductVersion(f.ProductVersion) {
		return false
	}
	return true
}
