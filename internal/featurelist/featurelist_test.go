package featurelist

import (
	"context"
	"testing"
	"time"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opensearch"
)

// stubScanner feeds back canned feature windows keyed by whether the
// query carries date bounds, so GetFeatureList's initial/leftward/
// rightward branches can be exercised independently.
type stubScanner struct {
	full  []opensearch.Feature
	left  []opensearch.Feature
	right []opensearch.Feature
}

func (s *stubScanner) Scan(ctx context.Context, q opensearch.Query, wantedMax int, ext opensearch.Extender) (int, error) {
	switch {
	case !q.HasStart && !q.HasEnd:
		ext(s.full)
	case q.HasEnd && !q.HasStart:
		ext(s.left)
	case q.HasStart && !q.HasEnd:
		ext(s.right)
	}
	return 0, nil
}

func feat(startHour, endHour int, url string) opensearch.Feature {
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	start := day.Add(time.Duration(startHour) * time.Hour)
	end := day.Add(time.Duration(endHour) * time.Hour)
	return opensearch.Feature{
		Type: "Feature",
		Properties: opensearch.FeatureProps{
			Date: start.Format("2006-01-02T15:04:05") + "/" + end.Format("2006-01-02T15:04:05"),
			Links: opensearch.Links{
				Related: []opensearch.Link{{Title: "Opendap", Href: url}},
			},
		},
	}
}

func TestGetFeatureList_InitialScanSortsAndCaches(t *testing.T) {
	s := &stubScanner{full: []opensearch.Feature{
		feat(48, 49, "https://x/c.nc"),
		feat(0, 1, "https://x/a.nc"),
		feat(24, 25, "https://x/b.nc"),
	}}
	c := New(s)
	id := model.DrsId("esacci.SST.day.L4.x.y.z.w.1-0.r1")

	list, err := c.GetFeatureList(context.Background(), id, time.Time{}, time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetFeatureList: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 features, got %d", len(list))
	}
	if list[0].OpendapURL != "https://x/a.nc" || list[2].OpendapURL != "https://x/c.nc" {
		t.Fatalf("expected ascending sort by start, got %+v", list)
	}
}

func TestGetFeatureList_ExtendsLeftAndRight(t *testing.T) {
	s := &stubScanner{
		full:  []opensearch.Feature{feat(24, 25, "https://x/b.nc")},
		left:  []opensearch.Feature{feat(0, 1, "https://x/a.nc")},
		right: []opensearch.Feature{feat(48, 49, "https://x/c.nc")},
	}
	c := New(s)
	id := model.DrsId("esacci.SST.day.L4.x.y.z.w.1-0.r1")
	day0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	// Seed the cache with the middle feature only.
	if _, err := c.GetFeatureList(context.Background(), id, day0.Add(24*time.Hour), day0.Add(25*time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, err := c.GetFeatureList(context.Background(), id, day0, day0.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 features after left+right extension, got %d: %+v", len(list), list)
	}
}
