package schema

import (
	"context"
	"testing"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opendap"
	"github.com/esacci/odpcore/internal/opensearch"
)

type stubRecords struct{ rec *model.DatasetRecord }

func (s *stubRecords) EnsureRecord(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	return s.rec, nil
}

type stubPager struct{ urls []string }

func (s *stubPager) Scan(ctx context.Context, q opensearch.Query, wantedMax int, ext opensearch.Extender) (int, error) {
	var feats []opensearch.Feature
	for _, u := range s.urls {
		feats = append(feats, opensearch.Feature{
			Properties: opensearch.FeatureProps{
				Links: opensearch.Links{Related: []opensearch.Link{{Title: "Opendap", Href: u}}},
			},
		})
	}
	ext(feats)
	return len(feats), nil
}

type stubOpendap struct{ ds *opendap.Dataset }

func (s *stubOpendap) GetOpendapDataset(ctx context.Context, url string) (*opendap.Dataset, error) {
	return s.ds, nil
}

const testDDS = `Dataset {
    Float64 time[time = 1];
    Float64 lat[lat = 2];
    Grid {
     Array:
        Float32 sst[time = 1][lat = 2];
     Maps:
        Float64 time[time = 1];
        Float64 lat[lat = 2];
    } sst;
} SST;`

func buildTestDataset(t *testing.T) *opendap.Dataset {
	t.Helper()
	ds, err := opendap.ParseDDS(testDDS)
	if err != nil {
		t.Fatalf("ParseDDS: %v", err)
	}
	for _, name := range ds.Order {
		v := ds.Variables[name]
		if v.Kind == opendap.KindGrid {
			v.Array.Attributes = map[string]any{}
			v.Proxy = opendap.NewBaseProxy("https://x/sst.nc", v.Array.Name, v.Array.DataType, v.Array.Shape)
			v.Array.Proxy = v.Proxy
		} else {
			v.Attributes = map[string]any{}
		}
	}
	return ds
}

func TestEnsureFull_MultipliesTimeAxisByNumFiles(t *testing.T) {
	rec := &model.DatasetRecord{
		DrsID: model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1"),
		Facet: &model.FacetBlock{NumFiles: 5},
	}
	ds := buildTestDataset(t)

	a := New(&stubRecords{rec: rec}, &stubPager{urls: []string{"a.nc", "b.nc", "c.nc"}}, &stubOpendap{ds: ds}, nil)

	got, err := a.EnsureFull(context.Background(), rec.DrsID)
	if err != nil {
		t.Fatalf("EnsureFull: %v", err)
	}
	if !got.Probed || got.Schema == nil {
		t.Fatalf("expected record to be probed with a schema")
	}
	if got.Schema.Dimensions["time"] != 5 {
		t.Fatalf("time dimension = %d, want 5 (1 * num_files)", got.Schema.Dimensions["time"])
	}
	sstInfo := got.Schema.VariableInfos["sst"]
	if sstInfo == nil {
		t.Fatalf("expected sst variable info")
	}
	if sstInfo.Shape[0] != 5 {
		t.Fatalf("sst shape[0] = %d, want 5", sstInfo.Shape[0])
	}
	if sstInfo.DataType != model.DTypeFloat32 {
		t.Fatalf("expected float32 promoted-to-self, got %v", sstInfo.DataType)
	}
}

func TestEnsureFull_AerosolClimatologyUsesMonthAxis(t *testing.T) {
	rec := &model.DatasetRecord{
		DrsID: model.DrsId("esacci.AEROSOL.climatology.L3.AER_PRODUCTS.multi-sensor.multi-platform.ATSR2-ENVISAT.v2-9.r1"),
		Facet: &model.FacetBlock{NumFiles: 2},
	}
	ds := buildTestDataset(t)
	// Rename the time axis to "month" on both the grid and its map, as a
	// climatology-aggregated representative file would declare it.
	ds.Variables["time"].Name = "month"
	ds.Variables["time"].Dims[0] = "month"
	ds.Variables["month"] = ds.Variables["time"]
	delete(ds.Variables, "time")
	ds.Order[0] = "month"
	grid := ds.Variables["sst"]
	grid.Array.Dims[0] = "month"
	grid.Maps[0].Name = "month"
	grid.Maps[0].Dims[0] = "month"

	a := New(&stubRecords{rec: rec}, &stubPager{urls: []string{"a.nc"}}, &stubOpendap{ds: ds}, nil)
	got, err := a.EnsureFull(context.Background(), rec.DrsID)
	if err != nil {
		t.Fatalf("EnsureFull: %v", err)
	}
	if got.Schema.Dimensions["month"] != 2 {
		t.Fatalf("month dimension = %d, want 2", got.Schema.Dimensions["month"])
	}
}
