// Package catalog implements the DRS Catalog: the keyed map from DRS id
// to DatasetRecord, populated lazily from OpenSearch facet/feature
// metadata and an ISO-19115 sidecar, per spec.md §4.4.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/esacci/odpcore/internal/crs"
	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/metadata"
	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/opensearch"
	"github.com/esacci/odpcore/internal/spatial"
)

// bboxMayIntersect runs the H3 coarse prefilter ahead of the exact
// model.BBox.Disjoint check in Search: a definitive false lets Search skip
// the candidate without ever looking at the exact floats.
func bboxMayIntersect(a, b model.BBox) bool {
	cellsA, errA := spatial.CellsForBBox(a, spatial.PrefilterRes)
	cellsB, errB := spatial.CellsForBBox(b, spatial.PrefilterRes)
	if errA != nil || errB != nil {
		return true // prefilter unavailable: fall through to the exact check
	}
	return spatial.MayIntersect(cellsA, cellsB)
}

// SchemaProber fully probes a DatasetRecord's schema (spec.md §4.7). It is
// satisfied by internal/schema.Assembler; Catalog depends on the narrow
// interface rather than the concrete package so that neither package
// imports the other.
type SchemaProber interface {
	EnsureFull(ctx context.Context, drsID model.DrsId) (*model.DatasetRecord, error)
}

// Config tunes Catalog's upstream endpoints and behavior.
type Config struct {
	OpensearchURL string
	ODDURL        string
	ReadCatalogue bool
}

// Catalog is the keyed, lazily-populated map from DRS id to DatasetRecord.
// Entries are created on first lookup and progressively enriched; they
// are never shrunk, per spec.md §3 Lifecycles.
type Catalog struct {
	cfg     Config
	fetcher *fetcher.Fetcher
	pager   *opensearch.Pager
	prober  SchemaProber

	mu        sync.RWMutex
	records   map[model.DrsId]*model.DatasetRecord
	drsIDs    []model.DrsId // cached dataset_names result
	excluded  map[string]struct{}
	numFiles  map[string]int

	// recordLocks serializes concurrent EnsureRecord calls for the same
	// DRS id so two lookups racing on a cold entry don't double-fetch.
	recordLocks sync.Map // model.DrsId -> *sync.Mutex
}

func New(cfg Config, f *fetcher.Fetcher, pager *opensearch.Pager) *Catalog {
	return &Catalog{
		cfg:      cfg,
		fetcher:  f,
		pager:    pager,
		records:  make(map[model.DrsId]*model.DatasetRecord),
		excluded: excludedDRSIds(),
		numFiles: make(map[string]int),
	}
}

// SetSchemaProber wires the schema assembler after construction, breaking
// the catalog<->schema initialization cycle.
func (c *Catalog) SetSchemaProber(p SchemaProber) { c.prober = p }

// DatasetNames returns every non-excluded DRS id in the description
// document, per spec.md §4.4.
func (c *Catalog) DatasetNames(ctx context.Context) ([]model.DrsId, error) {
	c.mu.RLock()
	if c.drsIDs != nil {
		ids := c.drsIDs
		c.mu.RUnlock()
		return ids, nil
	}
	c.mu.RUnlock()

	resp, err := c.fetcher.Get(ctx, c.cfg.ODDURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch ODD: %w", err)
	}
	if resp == nil {
		return nil, nil
	}
	fc, err := metadata.ParseODD(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse ODD: %w", err)
	}

	c.mu.Lock()
	for k, v := range fc.NumFiles {
		c.numFiles[k] = v
	}
	c.mu.Unlock()

	ids := make([]model.DrsId, 0, len(fc.Facets["drsId"]))
	for _, opt := range fc.Facets["drsId"] {
		if opt.Value == "_all" {
			continue
		}
		if _, excluded := c.excluded[opt.Value]; excluded {
			continue
		}
		ids = append(ids, model.DrsId(opt.Value))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	c.mu.Lock()
	c.drsIDs = ids
	c.mu.Unlock()
	return ids, nil
}

// recordLock returns the per-drs_id mutex, creating it on first use.
func (c *Catalog) recordLock(id model.DrsId) *sync.Mutex {
	v, _ := c.recordLocks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// EnsureRecord returns the DatasetRecord for id, fetching and populating
// its facet and ISO blocks on first access. Callers that need a probed
// schema should go through Catalog's SchemaProber (GetDatasetInfo does).
func (c *Catalog) EnsureRecord(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	c.mu.RLock()
	rec, ok := c.records[id]
	c.mu.RUnlock()
	if ok {
		return rec, nil
	}

	lock := c.recordLock(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	rec, ok = c.records[id]
	c.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := c.fetchRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.records[id] = rec
	c.mu.Unlock()
	return rec, nil
}

// fetchRecord performs the actual OpenSearch search-by-drsId and, if
// enabled, the ISO-19115 sidecar fetch that together populate FacetBlock
// and IsoBlock (commit-then-expose: built fully before being stored).
func (c *Catalog) fetchRecord(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	rec := &model.DatasetRecord{DrsID: id}

	var isoURL string
	var mu sync.Mutex
	q := opensearch.Query{DrsID: string(id), MaximumRecords: 5}
	_, err := c.pager.Scan(ctx, q, 5, func(features []opensearch.Feature) {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range features {
			applyFeatureToRecord(rec, f)
			if isoURL == "" {
				if u, ok := f.Properties.ISO19115URL(); ok {
					isoURL = u
				}
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: search drsId=%s: %w", id, err)
	}

	c.mu.RLock()
	if n, ok := c.numFiles[string(id)]; ok {
		rec.Facet.NumFiles = n
	}
	c.mu.RUnlock()

	if c.cfg.ReadCatalogue && isoURL != "" {
		if err := c.populateISOBlock(ctx, rec, isoURL); err != nil {
			// MalformedUpstream: log-and-continue per spec.md §7.
			_ = err
		}
	}

	return rec, nil
}

func applyFeatureToRecord(rec *model.DatasetRecord, f opensearch.Feature) {
	if rec.Facet == nil {
		rec.Facet = facetFromDrsID(rec.DrsID)
	}
	if rec.Title == "" {
		rec.Title = f.Properties.Title
	}
	if rec.UUID == "" {
		if f.Properties.Identifier != "" {
			rec.UUID = f.Properties.Identifier
		} else if idx := strings.LastIndex(f.ID, "="); idx >= 0 {
			rec.UUID = f.ID[idx+1:]
		} else {
			rec.UUID = f.ID
		}
	}
}

// facetFromDrsID seeds a FacetBlock from the id's own positional segments
// (spec.md §3): everything Search filters on except institute, which has
// no positional slot and is left for a future ODD-keyed lookup.
func facetFromDrsID(id model.DrsId) *model.FacetBlock {
	parts, err := id.Split()
	if err != nil {
		return &model.FacetBlock{}
	}
	return &model.FacetBlock{
		ECV:            parts[model.SegECV],
		Frequency:      parts[model.SegFrequency],
		Level:          parts[model.SegLevel],
		DataType:       parts[model.SegDataType],
		Sensor:         parts[model.SegSensor],
		Platform:       parts[model.SegPlatform],
		ProductString:  parts[model.SegProductString],
		ProductVersion: parts[model.SegProductVersion],
	}
}

func (c *Catalog) populateISOBlock(ctx context.Context, rec *model.DatasetRecord, isoURL string) error {
	resp, err := c.fetcher.Get(ctx, isoURL)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	blk, err := metadata.ParseISO19115(resp.Body)
	if err != nil {
		return err
	}
	rec.Iso = blk
	return nil
}

// Search implements spec.md §4.4's search(): DRS-positional facets filter
// the id list directly; temporal, spatial, and non-DRS facets (institute,
// sensor, platform) require the candidate's DatasetRecord and are applied
// afterward.
func (c *Catalog) Search(ctx context.Context, q model.SearchQuery) ([]model.DrsId, error) {
	ids, err := c.DatasetNames(ctx)
	if err != nil {
		return nil, err
	}

	if !q.Filters.DRSEncoded() {
		c.mu.RLock()
		empty := len(c.records) == 0
		c.mu.RUnlock()
		if empty {
			return ids, nil
		}
	}

	candidates := make([]model.DrsId, 0, len(ids))
	for _, id := range ids {
		if matchesDRSFacets(id, q.Filters) {
			candidates = append(candidates, id)
		}
	}

	needsRecord := q.HasTime || q.BBox != nil ||
		q.Filters.Institute != "" || q.Filters.Sensor != "" || q.Filters.Platform != ""
	if !needsRecord {
		return candidates, nil
	}

	out := make([]model.DrsId, 0, len(candidates))
	for _, id := range candidates {
		rec, err := c.EnsureRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		if q.Filters.Institute != "" && (rec.Facet == nil || rec.Facet.Institute != q.Filters.Institute) {
			continue
		}
		if q.Filters.Sensor != "" && (rec.Facet == nil || rec.Facet.Sensor != q.Filters.Sensor) {
			continue
		}
		if q.Filters.Platform != "" && (rec.Facet == nil || rec.Facet.Platform != q.Filters.Platform) {
			continue
		}
		if q.BBox != nil {
			if rec.Iso == nil || !rec.Iso.HasBBox {
				continue
			}
			if !bboxMayIntersect(rec.Iso.BBox, *q.BBox) || rec.Iso.BBox.Disjoint(*q.BBox) {
				continue
			}
		}
		if q.HasTime {
			if rec.Iso == nil {
				continue
			}
			want := model.TimeRange{Start: q.Start, End: q.End}
			if !rec.Iso.Temporal.Overlaps(want) {
				continue
			}
		}
		out = append(out, id)
	}
	return out, nil
}

// GetDatasetsMetadata ensures and returns the DatasetRecord for each id.
func (c *Catalog) GetDatasetsMetadata(ctx context.Context, ids []model.DrsId) ([]*model.DatasetRecord, error) {
	out := make([]*model.DatasetRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := c.EnsureRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// VarAndCoordNames ensures id's schema is probed and splits its declared
// variables into data variables and coordinates.
func (c *Catalog) VarAndCoordNames(ctx context.Context, id model.DrsId) (vars, coords []string, err error) {
	rec, err := c.ensureProbed(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	vars, coords = rec.VarAndCoordNames()
	return vars, coords, nil
}

func (c *Catalog) ensureProbed(ctx context.Context, id model.DrsId) (*model.DatasetRecord, error) {
	if c.prober == nil {
		return c.EnsureRecord(ctx, id)
	}
	return c.prober.EnsureFull(ctx, id)
}

// DatasetInfo is the flattened view spec.md §6 names
// get_dataset_info(drs_id) -> {...}.
type DatasetInfo struct {
	CRS                   string
	XRes, YRes            float64
	BBox                  model.BBox
	HasBBox               bool
	TemporalCoverageStart string
	TemporalCoverageEnd   string
	VarNames, CoordNames  []string
}

const wireLayout = "2006-01-02T15:04:05"

// GetDatasetInfo ensures id's schema is fully probed and computes the
// derived resolution/CRS view, per spec.md §4.4.
func (c *Catalog) GetDatasetInfo(ctx context.Context, id model.DrsId) (DatasetInfo, error) {
	rec, err := c.ensureProbed(ctx, id)
	if err != nil {
		return DatasetInfo{}, err
	}

	info := DatasetInfo{CRS: crs.Default, XRes: -1, YRes: -1}
	if rec.Schema != nil {
		info.YRes = getRes(rec.Schema.GlobalAttributes, "lat")
		info.XRes = getRes(rec.Schema.GlobalAttributes, "lon")
		info.CRS = resolveDatasetCRS(rec.Schema)
		vars, coords := rec.VarAndCoordNames()
		info.VarNames, info.CoordNames = vars, coords
	}
	if rec.Iso != nil && rec.Iso.HasBBox {
		info.BBox = rec.Iso.BBox
		info.HasBBox = true
	}
	if rec.Iso != nil {
		if !rec.Iso.Temporal.Start.IsZero() {
			info.TemporalCoverageStart = rec.Iso.Temporal.Start.Format(wireLayout)
		}
		if !rec.Iso.Temporal.End.IsZero() {
			info.TemporalCoverageEnd = rec.Iso.Temporal.End.Format(wireLayout)
		}
	}
	return info, nil
}

func resolveDatasetCRS(schema *model.SchemaBlock) string {
	for _, vi := range schema.VariableInfos {
		if c := crs.Resolve(schema.GlobalAttributes, vi.Attributes); c != crs.Default {
			return c
		}
	}
	return crs.Default
}
