// Package schema implements the Variable & Dimension Schema Assembler of
// spec.md §4.7: it probes one representative file of a dataset and
// merges its per-variable shape/dtype/chunking with catalog-level time
// cardinality to produce the virtual cube schema.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opendap"
	"github.com/esacci/odpcore/internal/opensearch"
)

// RecordEnsurer ensures a DatasetRecord's facet/ISO blocks exist.
// Satisfied by *catalog.Catalog.
type RecordEnsurer interface {
	EnsureRecord(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error)
}

// Searcher runs one OpenSearch scan. Satisfied by *opensearch.Pager.
type Searcher interface {
	Scan(ctx context.Context, q opensearch.Query, wantedMax int, ext opensearch.Extender) (int, error)
}

// OpendapOpener opens and memoizes an OPeNDAP dataset. Satisfied by
// *opendap.Client.
type OpendapOpener interface {
	GetOpendapDataset(ctx context.Context, url string) (*opendap.Dataset, error)
}

// Assembler implements ensure_full, per spec.md §4.7.
type Assembler struct {
	records RecordEnsurer
	pager   Searcher
	client  OpendapOpener
	log     *slog.Logger

	probeLocks sync.Map // model.DrsId -> *sync.Mutex
}

func New(records RecordEnsurer, pager Searcher, client OpendapOpener, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{records: records, pager: pager, client: client, log: log}
}

func (a *Assembler) probeLock(id model.DrsId) *sync.Mutex {
	v, _ := a.probeLocks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// EnsureFull implements spec.md §4.7's ensure_full(drs_id) steps 1-5.
func (a *Assembler) EnsureFull(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	rec, err := a.records.EnsureRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Probed && rec.Schema != nil {
		return rec, nil
	}

	lock := a.probeLock(id)
	lock.Lock()
	defer lock.Unlock()

	if rec.Probed && rec.Schema != nil {
		return rec, nil
	}

	feature, err := a.representativeFeature(ctx, id)
	if err != nil {
		return nil, err
	}
	if feature == "" {
		return rec, nil // NotFound: leave unprobed, log-and-continue per spec.md §7.
	}

	ds, err := a.client.GetOpendapDataset(ctx, feature)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		a.log.Warn("schema: could not open representative opendap dataset", "drs_id", id, "url", feature)
		return rec, nil
	}

	schemaBlock := a.buildSchemaBlock(ds, id, rec.Facet)
	rec.Schema = schemaBlock
	rec.Probed = true
	return rec, nil
}

// representativeFeature fetches page 1 with maximumRecords=5, fileFormat
// .nc, and returns the middle URL — neither first nor last, per spec.md
// §4.7 step 3, "to avoid atypical boundary-chunk shapes when available".
func (a *Assembler) representativeFeature(ctx context.Context, id model.DrsId) (string, error) {
	q := opensearch.Query{DrsID: string(id), FileFormat: ".nc", MaximumRecords: 5}

	var mu sync.Mutex
	var urls []string
	_, err := a.pager.Scan(ctx, q, 5, func(features []opensearch.Feature) {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range features {
			if u, ok := f.Properties.OpendapURL(); ok {
				urls = append(urls, u)
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("schema: representative feature scan drs_id=%s: %w", id, err)
	}
	if len(urls) == 0 {
		return "", nil
	}
	return urls[len(urls)/2], nil
}

// buildSchemaBlock runs steps 4-5 of spec.md §4.7 against an opened
// representative dataset.
func (a *Assembler) buildSchemaBlock(ds *opendap.Dataset, id model.DrsId, facet *model.FacetBlock) *model.SchemaBlock {
	varInfos := make(map[string]*model.VariableInfo)
	seen := make(map[string]bool)

	for _, name := range ds.Order {
		v := ds.Variables[name]
		switch v.Kind {
		case opendap.KindGrid:
			vi := a.buildVariableInfo(v.Array)
			varInfos[v.Array.Name] = vi
			seen[v.Array.Name] = true
			for _, m := range v.Maps {
				if !seen[m.Name] {
					varInfos[m.Name] = a.buildVariableInfo(m)
					seen[m.Name] = true
				}
			}
		case opendap.KindBase:
			if !seen[v.Name] {
				varInfos[v.Name] = a.buildVariableInfo(v)
				seen[v.Name] = true
			}
		}
	}

	dims := make(map[string]int)
	for _, vi := range varInfos {
		for i, d := range vi.Dimensions {
			if i < len(vi.Shape) {
				dims[d] = vi.Shape[i]
			}
		}
	}

	timeAxis := "time"
	if strings.Contains(string(id), "AEROSOL.climatology") {
		timeAxis = "month"
	}
	numFiles := 1
	if facet != nil && facet.NumFiles > 0 {
		numFiles = facet.NumFiles
	}
	if size, ok := dims[timeAxis]; ok {
		dims[timeAxis] = size * numFiles
		for _, vi := range varInfos {
			for i, d := range vi.Dimensions {
				if d == timeAxis && i < len(vi.Shape) {
					vi.Shape[i] = size * numFiles
				}
			}
			vi.Size = productInts(vi.Shape)
		}
	}

	return &model.SchemaBlock{
		Dimensions:       dims,
		VariableInfos:    varInfos,
		GlobalAttributes: ds.Attributes,
	}
}

// buildVariableInfo implements spec.md §4.7 step 4 for one opendap
// variable node.
func (a *Assembler) buildVariableInfo(v *opendap.Variable) *model.VariableInfo {
	vi := &model.VariableInfo{
		DataType:       v.DataType,
		OrigDataType:   v.DataType,
		Shape:          append([]int(nil), v.Shape...),
		Dimensions:     append([]string(nil), v.Dims...),
		FileDimensions: append([]string(nil), v.Dims...),
		Attributes:     v.Attributes,
	}
	if len(vi.Shape) == 0 {
		vi.Shape = []int{1}
	}

	if fv, ok := v.Attributes["_FillValue"]; ok {
		vi.FillValue = fv
		delete(vi.Attributes, "_FillValue")
		vi.Attributes["fill_value"] = fv
	} else if promoted, ok := model.Promote(v.DataType); ok {
		vi.DataType = promoted
		vi.FillValue = synthesizeFillValue(promoted)
	} else {
		a.log.Warn("schema: no fill value and no promotion rule; missing steps will show raw bytes", "kind", "missing_fill", "var", v.Name, "dtype", v.DataType)
	}

	if cs, ok := v.Attributes["_ChunkSizes"]; ok {
		if sizes, ok := toIntSlice(cs); ok {
			vi.ChunkSizes = sizes
		}
	}
	if vi.ChunkSizes == nil {
		vi.ChunkSizes = append([]int(nil), vi.Shape...)
	}
	vi.ClampChunkSizes()
	vi.FileChunkSizes = append([]int(nil), vi.ChunkSizes...)
	vi.Size = productInts(vi.Shape)
	return vi
}

func synthesizeFillValue(dt model.DataType) any {
	switch dt {
	case model.DTypeInt8:
		return int8(math.MaxInt8)
	case model.DTypeInt16:
		return int16(math.MaxInt16)
	case model.DTypeInt32:
		return int32(math.MaxInt32)
	case model.DTypeInt64:
		return int64(math.MaxInt64)
	case model.DTypeUint8:
		return uint8(math.MaxUint8)
	case model.DTypeUint16:
		return uint16(math.MaxUint16)
	case model.DTypeUint32:
		return uint32(math.MaxUint32)
	case model.DTypeUint64:
		return uint64(math.MaxUint64)
	case model.DTypeFloat32:
		return float32(math.NaN())
	case model.DTypeFloat64:
		return math.NaN()
	default:
		return nil
	}
}

func toIntSlice(v any) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return t, true
	case []float64:
		out := make([]int, len(t))
		for i, f := range t {
			out[i] = int(f)
		}
		return out, true
	default:
		return nil, false
	}
}

func productInts(xs []int) int {
	p := 1
	for _, x := range xs {
		p *= x
	}
	return p
}
