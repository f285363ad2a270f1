package spatial

import (
	"testing"

	"github.com/esacci/odpcore/internal/model"
)

// TestCellsForBBox_SmallBBoxNeverEmpty guards against the prefilter
// silently under-covering a bbox too small for PolygonToCells' center-
// containment polyfill to find any cell at PrefilterRes.
func TestCellsForBBox_SmallBBoxNeverEmpty(t *testing.T) {
	tiny := model.BBox{MinX: 10.0001, MinY: 50.0001, MaxX: 10.0002, MaxY: 50.0002}
	cells, err := CellsForBBox(tiny, PrefilterRes)
	if err != nil {
		t.Fatalf("CellsForBBox: %v", err)
	}
	if len(cells) == 0 {
		t.Fatal("expected non-empty coverage for a small bbox via corner/centroid sampling")
	}
}

// TestMayIntersect_EmptyCoverageNeverRejects matches MayIntersect's
// contract: a false result must be a definitive rejection, so an empty
// input (coverage could not be determined) must never produce false.
func TestMayIntersect_EmptyCoverageNeverRejects(t *testing.T) {
	if !MayIntersect(nil, []string{"82754ffffffffff"}) {
		t.Fatal("empty left-hand coverage must fall through as may-intersect")
	}
	if !MayIntersect([]string{"82754ffffffffff"}, nil) {
		t.Fatal("empty right-hand coverage must fall through as may-intersect")
	}
}

func TestMayIntersect_SharedCell(t *testing.T) {
	if !MayIntersect([]string{"a", "b"}, []string{"b", "c"}) {
		t.Fatal("expected shared cell to report may-intersect")
	}
	if MayIntersect([]string{"a"}, []string{"c"}) {
		t.Fatal("expected disjoint cell sets to report no intersection")
	}
}
