package chunk

import (
	"context"
	"testing"
	"time"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opendap"
)

type stubSchema struct{ rec *model.DatasetRecord }

func (s *stubSchema) EnsureFull(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	return s.rec, nil
}

type stubLister struct {
	gotStart, gotEnd time.Time
	features         model.FeatureList
}

func (s *stubLister) GetFeatureList(ctx context.Context, id model.DrsId, start, end time.Time) (model.FeatureList, error) {
	s.gotStart, s.gotEnd = start, end
	return s.features, nil
}

type stubClient struct {
	gotVar    string
	gotSlices []opendap.Slice
	payload   []byte
}

func (s *stubClient) GetOpendapDataset(ctx context.Context, url string) (*opendap.Dataset, error) {
	return &opendap.Dataset{}, nil
}

func (s *stubClient) GetDataFromDataset(ctx context.Context, ds *opendap.Dataset, varName string, slices []opendap.Slice, canonical model.DataType) ([]byte, error) {
	s.gotVar = varName
	s.gotSlices = slices
	return s.payload, nil
}

func TestGetDataChunk_ResolvesTimeWindowAndInFileSlice(t *testing.T) {
	rec := &model.DatasetRecord{
		DrsID: model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1"),
		Schema: &model.SchemaBlock{
			VariableInfos: map[string]*model.VariableInfo{
				"sst": {
					Dimensions:     []string{"time", "lat", "lon"},
					FileChunkSizes: []int{1, 180, 360},
					Shape:          []int{3650, 180, 360},
				},
			},
		},
	}
	lister := &stubLister{features: model.FeatureList{{
		Start: time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(1970, 1, 2, 23, 59, 59, 0, time.UTC),
		OpendapURL: "https://x/sst.nc",
	}}}
	client := &stubClient{payload: []byte{1, 2, 3, 4}}

	r := New(&stubSchema{rec: rec}, lister, client)
	raw, err := r.GetDataChunk(context.Background(), rec.DrsID, "sst", []int{1, 0, 0})
	if err != nil {
		t.Fatalf("GetDataChunk: %v", err)
	}
	if len(raw) != 4 {
		t.Fatalf("expected payload passthrough, got %v", raw)
	}
	if client.gotVar != "sst" {
		t.Fatalf("expected var sst, got %q", client.gotVar)
	}
	if len(client.gotSlices) != 3 {
		t.Fatalf("expected 3-dim slice, got %d", len(client.gotSlices))
	}
	if client.gotSlices[0].Start != 0 || client.gotSlices[0].Stop != 1 {
		t.Fatalf("expected time slice [0:1), got %+v", client.gotSlices[0])
	}
	if client.gotSlices[1].Start != 0 || client.gotSlices[1].Stop != 180 {
		t.Fatalf("expected full lat slice for chunk index 0, got %+v", client.gotSlices[1])
	}
}

func TestGetDataChunk_MissingVariableReturnsNil(t *testing.T) {
	rec := &model.DatasetRecord{Schema: &model.SchemaBlock{VariableInfos: map[string]*model.VariableInfo{}}}
	r := New(&stubSchema{rec: rec}, &stubLister{}, &stubClient{})
	raw, err := r.GetDataChunk(context.Background(), rec.DrsID, "missing", []int{0})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload for missing variable")
	}
}
