package opendap

import (
	"testing"

	"github.com/esacci/odpcore/internal/model"
)

const sampleDDS = `Dataset {
    Float64 time[time = 1];
    Float64 lat[lat = 2];
    Float64 lon[lon = 3];
    Grid {
     Array:
        Float32 analysed_sst[time = 1][lat = 2][lon = 3];
     Maps:
        Float64 time[time = 1];
        Float64 lat[lat = 2];
        Float64 lon[lon = 3];
    } analysed_sst;
} SST;`

const sampleDAS = `Attributes {
    analysed_sst {
        String long_name "analysed sea surface temperature";
        Float64 _FillValue -32768.0;
    }
    NC_GLOBAL {
        String title "ESA SST CCI";
    }
}`

func TestParseDDS_BuildsGridAndCoords(t *testing.T) {
	ds, err := ParseDDS(sampleDDS)
	if err != nil {
		t.Fatalf("ParseDDS: %v", err)
	}
	if ds.Name != "SST" {
		t.Fatalf("expected dataset name SST, got %q", ds.Name)
	}
	grid := ds.Var("analysed_sst")
	if grid == nil || grid.Kind != KindGrid {
		t.Fatalf("expected analysed_sst to be a grid, got %+v", grid)
	}
	if grid.Array.DataType != model.DTypeFloat32 {
		t.Fatalf("expected float32 array, got %v", grid.Array.DataType)
	}
	want := []int{1, 2, 3}
	for i, w := range want {
		if grid.Array.Shape[i] != w {
			t.Fatalf("shape[%d] = %d, want %d", i, grid.Array.Shape[i], w)
		}
	}
	if len(grid.Maps) != 3 {
		t.Fatalf("expected 3 map variables, got %d", len(grid.Maps))
	}
	lat := ds.Var("lat")
	if lat == nil || lat.Kind != KindBase {
		t.Fatalf("expected top-level lat coordinate, got %+v", lat)
	}
}

func TestParseDAS_MergesGlobalAndVariableAttrs(t *testing.T) {
	ds, err := ParseDDS(sampleDDS)
	if err != nil {
		t.Fatalf("ParseDDS: %v", err)
	}
	das, err := ParseDAS(sampleDAS)
	if err != nil {
		t.Fatalf("ParseDAS: %v", err)
	}
	ApplyDAS(ds, das)

	if ds.Attributes["title"] != "ESA SST CCI" {
		t.Fatalf("expected NC_GLOBAL title merged into dataset attrs, got %v", ds.Attributes)
	}
	grid := ds.Var("analysed_sst")
	if grid.Array.Attributes["_FillValue"] != -32768.0 {
		t.Fatalf("expected fill value on grid array, got %v", grid.Array.Attributes)
	}
}

func TestHyperslab_SingleAndRangeDimensions(t *testing.T) {
	idx := []Slice{{Start: 0, Stop: 1, Stride: 1}, {Start: 0, Stop: 2, Stride: 1}}
	got := Hyperslab(idx)
	want := "[0][0:1:1]"
	if got != want {
		t.Fatalf("Hyperslab = %q, want %q", got, want)
	}
}

func TestCombineSlices_ComposesProxyAndRequest(t *testing.T) {
	shape := []int{10}
	proxySlice := []Slice{{Start: 2, Stop: 8, Stride: 1}}
	requested := []Slice{{Start: 1, Stop: 3, Stride: 1}}
	combined := CombineSlices(proxySlice, requested, shape)
	if combined[0].Start != 3 || combined[0].Stop != 5 {
		t.Fatalf("combined = %+v, want start=3 stop=5", combined[0])
	}
}
