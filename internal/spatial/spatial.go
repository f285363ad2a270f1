// Package spatial gives DRS Catalog.Search a cheap pre-filter ahead of the
// exact bbox-disjoint check: cover a dataset's bounding box with H3 cells
// at a coarse resolution and compare cell sets before falling back to
// float comparison, generalizing the teacher's H3 bbox-to-cells mapper to
// a prefilter rather than an index key.
package spatial

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/esacci/odpcore/internal/model"
)

// PrefilterRes is the H3 resolution used for the coarse bbox prefilter.
// Low resolution keeps per-dataset cell sets small; it only needs to be
// precise enough to cheaply reject clearly-disjoint datasets before the
// exact model.BBox.Disjoint check runs.
const PrefilterRes = 2

// CellsForBBox covers bb with H3 cells at the given resolution, returned
// sorted for deterministic comparison. PolygonToCells alone only
// includes a cell when its *center* falls inside the polygon, so it
// under-covers any bbox smaller than a res-sized cell — down to the
// empty set, for a bbox much smaller than the ~86,000 km^2 a res-2 cell
// covers. The corners and centroid are sampled directly with
// LatLngToCell and unioned in so the result never silently drops to "no
// coverage" for a small bbox; CellsForBBox is only ever used as an
// over-covering prefilter ahead of the exact model.BBox.Disjoint check,
// never as the final answer.
func CellsForBBox(bb model.BBox, res int) ([]string, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("spatial: invalid H3 resolution %d", res)
	}
	loop := h3.GeoLoop{
		{Lat: bb.MinY, Lng: bb.MinX},
		{Lat: bb.MinY, Lng: bb.MaxX},
		{Lat: bb.MaxY, Lng: bb.MaxX},
		{Lat: bb.MaxY, Lng: bb.MinX},
	}
	poly := h3.GeoPolygon{GeoLoop: loop}
	cells, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("spatial: polyfill bbox: %w", err)
	}

	seen := make(map[string]struct{}, len(cells)+5)
	out := make([]string, 0, len(cells)+5)
	add := func(c h3.Cell) {
		s := c.String()
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, c := range cells {
		add(c)
	}

	samples := [5]h3.LatLng{
		{Lat: bb.MinY, Lng: bb.MinX},
		{Lat: bb.MinY, Lng: bb.MaxX},
		{Lat: bb.MaxY, Lng: bb.MaxX},
		{Lat: bb.MaxY, Lng: bb.MinX},
		{Lat: (bb.MinY + bb.MaxY) / 2, Lng: (bb.MinX + bb.MaxX) / 2},
	}
	for _, pt := range samples {
		c, err := h3.LatLngToCell(pt, res)
		if err != nil {
			continue
		}
		add(c)
	}

	sort.Strings(out)
	return out, nil
}

// MayIntersect reports whether two H3 cell sets share any cell. Cell
// coverage is conservative by construction (see CellsForBBox), so a true
// result still needs the exact bbox check; an empty cell set on either
// side means coverage could not be determined at all (e.g. an empty bb),
// which is never treated as a rejection.
func MayIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}
