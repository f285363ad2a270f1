// Package portal assembles every domain component into the single
// explicit handle spec.md §9's Design Notes call for: no module-level
// singletons, every dependency threaded through the constructor. Its
// methods are exactly spec.md §6's Inbound operation list.
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/esacci/odpcore/internal/catalog"
	"github.com/esacci/odpcore/internal/chunk"
	"github.com/esacci/odpcore/internal/config"
	"github.com/esacci/odpcore/internal/featurelist"
	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/httpclient"
	"github.com/esacci/odpcore/internal/invalidation"
	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/observability"
	"github.com/esacci/odpcore/internal/opendap"
	"github.com/esacci/odpcore/internal/opensearch"
	"github.com/esacci/odpcore/internal/rediscache"
	"github.com/esacci/odpcore/internal/schema"
	"github.com/esacci/odpcore/internal/timeparse"
)

// variableDataSizeLimit is spec.md §6's get_variable_data threshold: below
// this element count the actual array is returned; at or above it only the
// shape is, per "returns the actual data array when size < 262144".
const variableDataSizeLimit = 262144

// Portal is the wired handle over every domain component. Nothing here is
// a package-level variable; every field is set once at construction.
type Portal struct {
	log *slog.Logger

	fetcher     *fetcher.Fetcher
	pager       *opensearch.Pager
	catalog     *catalog.Catalog
	featurelist *featurelist.Cache
	opendap     *opendap.Client
	schema      *schema.Assembler
	chunk       *chunk.Resolver

	// cache/invalidation are optional: nil when REDIS_ADDR/KAFKA_BROKERS
	// are unset, matching spec.md §9's "degrades to in-process state only".
	cache      *rediscache.Store
	consumer   *invalidation.Consumer
}

// New wires every component from cfg, per SPEC_FULL.md §8.
func New(cfg config.Config, metrics *observability.Provider, log *slog.Logger) *Portal {
	if log == nil {
		log = slog.Default()
	}

	httpClient := httpclient.NewOutbound(cfg.HTTPMaxConns, cfg.HTTPTimeout)
	f := fetcher.New(httpClient, fetcher.Config{
		NumRetries:  cfg.HTTPNumRetries,
		BackoffBase: cfg.HTTPBackoffBase,
		BackoffMax:  cfg.HTTPBackoffMax,
		UserAgent:   "odpcore/1.0",
		MaxConns:    cfg.HTTPMaxConns,
	}, metrics)

	pager := opensearch.NewPager(f, cfg.OpensearchURL, metrics)

	cat := catalog.New(catalog.Config{
		OpensearchURL: cfg.OpensearchURL,
		ODDURL:        cfg.ODDURL,
		ReadCatalogue: cfg.ReadCatalogue,
	}, f, pager)

	flist := featurelist.New(pager)
	odc := opendap.New(f, cfg.OpendapMemoSize, log)
	asm := schema.New(cat, pager, odc, log)
	cat.SetSchemaProber(asm)
	res := chunk.New(asm, flist, odc)

	p := &Portal{
		log:         log,
		fetcher:     f,
		pager:       pager,
		catalog:     cat,
		featurelist: flist,
		opendap:     odc,
		schema:      asm,
		chunk:       res,
	}

	if cfg.RedisAddr != "" {
		if rc, err := rediscache.New(context.Background(), cfg.RedisAddr, rediscache.WithPoolSize(cfg.RedisPoolSize)); err != nil {
			log.Warn("portal: redis unavailable, running without snapshot cache", "err", err)
		} else {
			p.cache = rediscache.NewStore(rc, 24*time.Hour)
		}
	}

	if cfg.KafkaBrokers != "" {
		brokers := splitCommaList(cfg.KafkaBrokers)
		p.consumer = invalidation.NewConsumer(invalidation.Config{
			Brokers:             brokers,
			Topic:               cfg.KafkaInvalidateTopic,
			GroupID:             "odpcore-invalidation",
			SessionTimeout:      10 * time.Second,
			Heartbeat:           3 * time.Second,
			RebalanceTimeout:    60 * time.Second,
			InitialOffsetOldest: false,
		}, log, p)
	}

	return p
}

func splitCommaList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// StartInvalidationConsumer runs the Kafka invalidation consumer loop until
// ctx is cancelled. A no-op if KAFKA_BROKERS was unset.
func (p *Portal) StartInvalidationConsumer(ctx context.Context) error {
	if p.consumer == nil {
		return nil
	}
	return p.consumer.Start(ctx)
}

// Discard implements invalidation.Discarder: drop the snapshot cache entry
// for drsID so the next lookup re-probes it from upstream. The in-process
// catalog/featurelist state is left alone — EnsureRecord/EnsureFull already
// treat "present" as authoritative, so redis is the only externally
// invalidatable layer.
func (p *Portal) Discard(ctx context.Context, drsID model.DrsId) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Discard(ctx, drsID)
}

// DatasetNames implements spec.md §6's dataset_names().
func (p *Portal) DatasetNames(ctx context.Context) ([]model.DrsId, error) {
	return p.catalog.DatasetNames(ctx)
}

// DatasetInfo is the wire view spec.md §6's get_dataset_info returns.
type DatasetInfo struct {
	CRS                   string
	XRes, YRes            float64
	BBox                  model.BBox
	HasBBox               bool
	TemporalCoverageStart string
	TemporalCoverageEnd   string
	VarNames, CoordNames  []string
}

// GetDatasetInfo implements spec.md §6's get_dataset_info(drs_id).
func (p *Portal) GetDatasetInfo(ctx context.Context, drsID model.DrsId) (DatasetInfo, error) {
	info, err := p.catalog.GetDatasetInfo(ctx, drsID)
	if err != nil {
		return DatasetInfo{}, err
	}
	return DatasetInfo(info), nil
}

// GetDatasetMetadata implements spec.md §6's get_dataset_metadata(drs_id)
// -> full probed DatasetRecord.
func (p *Portal) GetDatasetMetadata(ctx context.Context, drsID model.DrsId) (*model.DatasetRecord, error) {
	return p.schema.EnsureFull(ctx, drsID)
}

// VarAndCoordNames implements spec.md §6's var_and_coord_names(drs_id).
func (p *Portal) VarAndCoordNames(ctx context.Context, drsID model.DrsId) (vars, coords []string, err error) {
	return p.catalog.VarAndCoordNames(ctx, drsID)
}

// SearchParams is the wire-level input to Search: dates arrive as
// spec.md's WireLayout strings, parsed here so the HTTP facade never has
// to reach into internal/timeparse directly.
type SearchParams struct {
	StartDate string
	EndDate   string
	BBox      *model.BBox
	Filters   model.SearchFilters
}

// Search implements spec.md §6's search(start?, end?, bbox?, cci_attrs?).
func (p *Portal) Search(ctx context.Context, params SearchParams) ([]model.DrsId, error) {
	q := model.SearchQuery{BBox: params.BBox, Filters: params.Filters}
	if params.StartDate != "" {
		t, err := time.Parse(timeparse.WireLayout, params.StartDate)
		if err != nil {
			return nil, fmt.Errorf("portal: parse start_date: %w", err)
		}
		q.Start = t
		q.HasTime = true
	}
	if params.EndDate != "" {
		t, err := time.Parse(timeparse.WireLayout, params.EndDate)
		if err != nil {
			return nil, fmt.Errorf("portal: parse end_date: %w", err)
		}
		q.End = t
		q.HasTime = true
	}
	return p.catalog.Search(ctx, q)
}

// TimeRange is the wire view of one (start, end) coverage tuple, per
// spec.md §8 scenario 6.
type TimeRange struct {
	Start string
	End   string
}

// GetTimeRangesFromData implements spec.md §6's
// get_time_ranges_from_data(drs_id, start?, end?) -> [(start, end)]: the
// feature list's per-file coverage windows overlapping the requested span.
func (p *Portal) GetTimeRangesFromData(ctx context.Context, drsID model.DrsId, startStr, endStr string) ([]TimeRange, error) {
	start, end, err := parseOptionalRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	features, err := p.featurelist.GetFeatureList(ctx, drsID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]TimeRange, 0, len(features))
	for _, f := range features {
		out = append(out, TimeRange{
			Start: f.Start.Format(timeparse.WireLayout),
			End:   f.End.Format(timeparse.WireLayout),
		})
	}
	return out, nil
}

func parseOptionalRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr != "" {
		start, err = time.Parse(timeparse.WireLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("portal: parse start: %w", err)
		}
	}
	if endStr != "" {
		end, err = time.Parse(timeparse.WireLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("portal: parse end: %w", err)
		}
	}
	return start, end, nil
}

// VariableDataResult is one entry of spec.md §6's get_variable_data
// response: {size, shape?, chunkSize, data}.
type VariableDataResult struct {
	Size      int
	Shape     []int
	ChunkSize []int
	Data      []byte // nil when Size >= variableDataSizeLimit
}

// GetVariableData implements spec.md §6's get_variable_data(drs_id,
// {name: size}, start?, end?): for each requested variable, open the
// first file covering [start, end] and read that one file's extent of
// the variable (other files in the window are not read; the requested
// sizes are not consulted), returning the bytes only when the schema's
// element count stays under spec.md's 262144 threshold (otherwise just
// the shape).
func (p *Portal) GetVariableData(ctx context.Context, drsID model.DrsId, sizes map[string]int, startStr, endStr string) (map[string]VariableDataResult, error) {
	rec, err := p.schema.EnsureFull(ctx, drsID)
	if err != nil {
		return nil, err
	}
	if rec.Schema == nil {
		return nil, nil
	}

	start, end, err := parseOptionalRange(startStr, endStr)
	if err != nil {
		return nil, err
	}
	features, err := p.featurelist.GetFeatureList(ctx, drsID, start, end)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, nil
	}
	ds, err := p.opendap.GetOpendapDataset(ctx, features[0].OpendapURL)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, nil
	}

	out := make(map[string]VariableDataResult, len(sizes))
	for name := range sizes {
		vi, ok := rec.Schema.VariableInfos[name]
		if !ok {
			continue
		}
		res := VariableDataResult{Size: vi.Size, Shape: append([]int(nil), vi.Shape...), ChunkSize: append([]int(nil), vi.ChunkSizes...)}
		if vi.Size < variableDataSizeLimit {
			slices := make([]opendap.Slice, len(vi.FileDimensions))
			for i, dimSize := range fileShape(vi) {
				slices[i] = opendap.Slice{Start: 0, Stop: dimSize, Stride: 1}
			}
			data, err := p.opendap.GetDataFromDataset(ctx, ds, name, slices, vi.DataType)
			if err != nil {
				return nil, err
			}
			res.Data = data
		}
		out[name] = res
	}
	return out, nil
}

// fileShape recovers the per-file (pre time-axis multiplication) extent of
// v from its file_chunk_sizes, since Shape was already multiplied by
// num_files in schema.buildSchemaBlock.
func fileShape(v *model.VariableInfo) []int {
	out := make([]int, len(v.FileChunkSizes))
	copy(out, v.FileChunkSizes)
	return out
}

// GetDataChunk implements spec.md §6's get_data_chunk, used by the
// chunk-store facade (internal/httpapi) to serve one logical chunk.
func (p *Portal) GetDataChunk(ctx context.Context, drsID model.DrsId, varName string, chunkIndex []int) ([]byte, error) {
	return p.chunk.GetDataChunk(ctx, drsID, varName, chunkIndex)
}

// HealthCheck reports process liveness for the HTTP facade's /healthz.
// Upstream (OpenSearch/OPeNDAP) reachability is not required for the
// process itself to be considered healthy.
func (p *Portal) HealthCheck() error {
	return nil
}
