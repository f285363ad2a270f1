package model

import (
	"fmt"
	"sort"
	"time"
)

// Feature is one archive file as reported by OpenSearch: its time range plus
// an OPeNDAP URL, per spec.md §3.
type Feature struct {
	Start      time.Time
	End        time.Time
	OpendapURL string
}

// Valid reports whether f satisfies start <= end and a non-empty URL.
func (f Feature) Valid() bool {
	return !f.Start.After(f.End) && f.OpendapURL != ""
}

// FeatureList is an ordered, deduplicated sequence of Features for one
// dataset, sorted ascending by Start. Callers own the monotonicity
// invariant; use SortAsc/Dedup to maintain it.
type FeatureList []Feature

// SortAsc sorts f ascending by Start in place.
func (f FeatureList) SortAsc() {
	sort.SliceStable(f, func(i, j int) bool { return f[i].Start.Before(f[j].Start) })
}

// Dedup returns f with consecutive pointwise-equal tuples removed. f must
// already be sorted ascending by Start.
func (f FeatureList) Dedup() FeatureList {
	if len(f) == 0 {
		return f
	}
	out := make(FeatureList, 0, len(f))
	for _, ft := range f {
		if n := len(out); n > 0 && out[n-1] == ft {
			continue
		}
		out = append(out, ft)
	}
	return out
}

// Range returns the half-open slice [lo, hi) of features overlapping
// [start, end]: lo is the first index with End >= start, hi is the first
// index with Start > end. f must be sorted ascending by Start.
func (f FeatureList) Range(start, end time.Time) FeatureList {
	lo := sort.Search(len(f), func(i int) bool { return !f[i].End.Before(start) })
	hi := sort.Search(len(f), func(i int) bool { return f[i].Start.After(end) })
	if lo >= hi {
		return FeatureList{}
	}
	return f[lo:hi]
}

// Validate checks the FeatureList invariants from spec.md §3/§8: monotone
// non-decreasing Start, no duplicate tuples.
func (f FeatureList) Validate() error {
	for i := 1; i < len(f); i++ {
		if f[i].Start.Before(f[i-1].Start) {
			return fmt.Errorf("model: feature list not monotone at index %d", i)
		}
		if f[i] == f[i-1] {
			return fmt.Errorf("model: duplicate feature at index %d", i)
		}
	}
	return nil
}
