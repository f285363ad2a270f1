package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opensearch"
)

const oddFixture = `<?xml version="1.0"?>
<os:OpenSearchDescription xmlns:os="http://a9.com/-/spec/opensearch/1.1/" xmlns:param="http://a9.com/-/spec/opensearch/extensions/parameters/1.0/">
  <os:Url>
    <param:Parameter name="drsId" value="{drsId}">
      <param:Option value="esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1" label="esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1 (3)" />
      <param:Option value="esacci.OZONE.day.L3.NP.multi-sensor.multi-platform.MERGED.fv0002.r1" label="esacci.OZONE.day.L3.NP.multi-sensor.multi-platform.MERGED.fv0002.r1 (2)" />
    </param:Parameter>
  </os:Url>
</os:OpenSearchDescription>`

const featureFixture = `{
  "type": "FeatureCollection",
  "properties": {"totalResults": 1, "startIndex": 1, "itemsPerPage": 1000},
  "features": [
    {
      "type": "Feature",
      "id": "drsId=esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1",
      "properties": {
        "identifier": "abc-123",
        "title": "ESACCI-SST-L4-SSTdepth-OSTIA-20200101000000-fv02.0",
        "date": "2020-01-01T00:00:00/2020-01-01T23:59:59",
        "links": {
          "related": [{"title": "Opendap", "href": "https://example.org/opendap/sst.nc"}]
        }
      }
    }
  ]
}`

func newTestCatalog(t *testing.T, oddBody, featureBody string) (*Catalog, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/odd", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(oddBody))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(featureBody))
	})
	srv := httptest.NewServer(mux)

	f := fetcher.New(srv.Client(), fetcher.Config{NumRetries: 1, MaxConns: 4}, nil)
	pager := opensearch.NewPager(f, srv.URL+"/search", nil)
	cat := New(Config{ODDURL: srv.URL + "/odd"}, f, pager)
	return cat, srv
}

func TestDatasetNames_ExcludesStaticList(t *testing.T) {
	cat, srv := newTestCatalog(t, oddFixture, featureFixture)
	defer srv.Close()

	ids, err := cat.DatasetNames(context.Background())
	if err != nil {
		t.Fatalf("DatasetNames: %v", err)
	}
	for _, id := range ids {
		if strings.Contains(string(id), "OZONE") {
			t.Fatalf("excluded id leaked into DatasetNames: %v", id)
		}
	}
	found := false
	for _, id := range ids {
		if string(id) == "esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected SST id in %v", ids)
	}
}

func TestEnsureRecord_PopulatesFromFeature(t *testing.T) {
	cat, srv := newTestCatalog(t, oddFixture, featureFixture)
	defer srv.Close()

	id := model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1")
	rec, err := cat.EnsureRecord(context.Background(), id)
	if err != nil {
		t.Fatalf("EnsureRecord: %v", err)
	}
	if rec.Title == "" {
		t.Fatalf("expected title populated from feature, got empty")
	}
	if rec.UUID != "abc-123" {
		t.Fatalf("expected uuid from identifier fallback, got %q", rec.UUID)
	}
}

func TestGetDatasetInfo_ResolutionAndCRSDefaults(t *testing.T) {
	cat, srv := newTestCatalog(t, oddFixture, featureFixture)
	defer srv.Close()

	id := model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1")
	info, err := cat.GetDatasetInfo(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDatasetInfo: %v", err)
	}
	// No SchemaProber wired and no ISO fetch: falls back to default CRS and
	// unresolved resolution, per spec.md §4.4's "unknown coverage never
	// excludes a candidate" stance.
	if info.CRS != "WGS84" {
		t.Fatalf("expected default CRS WGS84, got %q", info.CRS)
	}
	if info.HasBBox {
		t.Fatalf("expected no bbox without ISO sidecar")
	}
	if info.XRes != -1 || info.YRes != -1 {
		t.Fatalf("expected unresolved resolution (-1, -1), got (%v, %v)", info.XRes, info.YRes)
	}
}

func TestGetRes_DegreeScenario(t *testing.T) {
	attrs := map[string]any{"resolution": "12x34 degree"}
	if v := getRes(attrs, "lat"); v != 12.0 {
		t.Fatalf("lat resolution = %v, want 12.0", v)
	}
	if v := getRes(attrs, "lon"); v != 34.0 {
		t.Fatalf("lon resolution = %v, want 34.0", v)
	}
}

func TestGetRes_KilometerNadirScenario(t *testing.T) {
	attrs := map[string]any{"spatial_resolution": "60km x 30km at nadir"}
	if v := getRes(attrs, "lat"); v != 60.0 {
		t.Fatalf("lat resolution = %v, want 60.0", v)
	}
	if v := getRes(attrs, "lon"); v != 30.0 {
		t.Fatalf("lon resolution = %v, want 30.0", v)
	}
}

func TestMatchesDRSFacets_FrequencyAlias(t *testing.T) {
	id := model.DrsId("esacci.SST.mon.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1")
	if !matchesDRSFacets(id, model.SearchFilters{Frequency: "month"}) {
		t.Fatalf("expected mon to match month alias")
	}
	if matchesDRSFacets(id, model.SearchFilters{Frequency: "year"}) {
		t.Fatalf("expected mismatch on frequency")
	}
}
