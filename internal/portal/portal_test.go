package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/esacci/odpcore/internal/featurelist"
	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opensearch"
)

const searchFixture = `{
  "type": "FeatureCollection",
  "properties": {"totalResults": 2, "startIndex": 1, "itemsPerPage": 2},
  "features": [
    {
      "type": "Feature",
      "id": "f1",
      "properties": {
        "identifier": "f1",
        "title": "20170903-ESACCI-L3S_OC-OC_PRODUCTS-MERGED-5DAY_DAILY_4km_GEO_PML_OCx-fv3.1.nc",
        "date": "1997-09-03T00:00:00/1997-09-07T23:59:00",
        "links": {"related": [{"title": "Opendap", "href": "http://upstream.test/f1"}]}
      }
    },
    {
      "type": "Feature",
      "id": "f2",
      "properties": {
        "identifier": "f2",
        "title": "20170908-ESACCI-L3S_OC-OC_PRODUCTS-MERGED-5DAY_DAILY_4km_GEO_PML_OCx-fv3.1.nc",
        "date": "1997-09-08T00:00:00/1997-09-12T23:59:00",
        "links": {"related": [{"title": "Opendap", "href": "http://upstream.test/f2"}]}
      }
    }
  ]
}`

// TestGetTimeRangesFromData_Scenario6 reproduces spec.md §8 scenario 6:
// get_time_ranges_from_data over a window spanning two 5-day composites
// returns both their coverage windows, verbatim.
func TestGetTimeRangesFromData_Scenario6(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchFixture)
	}))
	defer srv.Close()

	f := fetcher.New(srv.Client(), fetcher.Config{}, nil)
	pager := opensearch.NewPager(f, srv.URL, nil)
	flist := featurelist.New(pager)

	p := &Portal{log: slog.Default(), featurelist: flist}

	id := model.DrsId("esacci.OC.5-days.L3S.RRS.multi-sensor.multi-platform.MERGED.3-1.geographic")
	ranges, err := p.GetTimeRangesFromData(context.Background(), id, "1997-09-03T00:00:00", "1997-09-10T00:00:00")
	if err != nil {
		t.Fatalf("GetTimeRangesFromData: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d: %+v", len(ranges), ranges)
	}
	if ranges[0].Start != "1997-09-03T00:00:00" || ranges[0].End != "1997-09-07T23:59:00" {
		t.Fatalf("unexpected first range: %+v", ranges[0])
	}
	if ranges[1].Start != "1997-09-08T00:00:00" || ranges[1].End != "1997-09-12T23:59:00" {
		t.Fatalf("unexpected second range: %+v", ranges[1])
	}
}

func TestGetTimeRangesFromData_EmptyWindowReturnsNoRanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type":"FeatureCollection","properties":{"totalResults":0,"startIndex":1,"itemsPerPage":0},"features":[]}`)
	}))
	defer srv.Close()

	f := fetcher.New(srv.Client(), fetcher.Config{}, nil)
	pager := opensearch.NewPager(f, srv.URL, nil)
	flist := featurelist.New(pager)
	p := &Portal{log: slog.Default(), featurelist: flist}

	id := model.DrsId("esacci.OC.5-days.L3S.RRS.multi-sensor.multi-platform.MERGED.3-1.geographic")
	ranges, err := p.GetTimeRangesFromData(context.Background(), id, "2020-01-01T00:00:00", "2020-01-02T00:00:00")
	if err != nil {
		t.Fatalf("GetTimeRangesFromData: %v", err)
	}
	if len(ranges) != 0 {
		t.Fatalf("expected no ranges, got %+v", ranges)
	}
}
