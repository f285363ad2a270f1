package model

import "time"

// BBox is a geographic bounding box in EPSG:4326 degrees.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Disjoint reports whether b and o share no area.
func (b BBox) Disjoint(o BBox) bool {
	return b.MaxX < o.MinX || o.MaxX < b.MinX || b.MaxY < o.MinY || o.MaxY < b.MinY
}

// TimeRange is an inclusive [Start, End] coverage window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether r and o share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	if r.Start.IsZero() || r.End.IsZero() || o.Start.IsZero() || o.End.IsZero() {
		return true // unknown coverage never excludes a candidate
	}
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// DeclaredVariable is a variable as declared by the OpenSearch facet/feature
// metadata, before any schema probe.
type DeclaredVariable struct {
	VarID    string
	Units    string
	LongName string
}

// FacetBlock holds facet values harvested from the OpenSearch description
// document and feature-level metadata.
type FacetBlock struct {
	Frequency      string
	Level          string
	DataType       string
	Sensor         string
	Platform       string
	ProductString  string
	ProductVersion string
	Institute      string
	ECV            string
	NumFiles       int
	Variables      []DeclaredVariable
}

// IsoBlock holds fields extracted from the ISO-19115 descxml sidecar.
type IsoBlock struct {
	Abstract        string
	Title           string
	Licences        []string
	BBox            BBox
	HasBBox         bool
	Temporal        TimeRange
	FileFormat      string
	// FileFormats is FileFormat harmonized against every resourceFormat
	// name the sidecar declares, per spec.md §4.3's harmonization pass.
	FileFormats     []string
	PublicationDate time.Time
	CreationDate    time.Time
}

// SchemaBlock holds the result of probing a representative file, per
// spec.md §4.7.
type SchemaBlock struct {
	Dimensions       map[string]int
	VariableInfos    map[string]*VariableInfo
	GlobalAttributes map[string]any
}

// DatasetRecord is the single catalog entry for one DRS id. It is created
// lazily and progressively enriched (facet → sidecar → probe); it is never
// shrunk, per spec.md §3 Lifecycles.
type DatasetRecord struct {
	DrsID DrsId
	FID   string
	UUID  string
	Title string

	Facet *FacetBlock
	Iso   *IsoBlock
	Schema *SchemaBlock

	// Probed is true once Schema has been populated by the schema assembler.
	Probed bool
}

// VarAndCoordNames splits VariableInfos into coordinate and data variable
// names, per spec.md §4.4.
func (d *DatasetRecord) VarAndCoordNames() (vars []string, coords []string) {
	if d.Schema == nil {
		return nil, nil
	}
	for name, vi := range d.Schema.VariableInfos {
		if isCoordinate(name, vi, d.Schema.Dimensions) {
			coords = append(coords, name)
		} else {
			vars = append(vars, name)
		}
	}
	return vars, coords
}

var commonCoordNames = map[string]bool{
	"time": true, "lat": true, "lon": true, "latitude": true, "longitude": true,
	"depth": true, "height": true, "level": true, "plev": true, "crs": true,
	"month": true,
}

func isCoordinate(name string, vi *VariableInfo, dims map[string]int) bool {
	if _, isDim := dims[name]; isDim {
		return true
	}
	lower := name
	if len(lower) >= 6 && lower[len(lower)-6:] == "bounds" {
		return true
	}
	if len(lower) >= 4 && lower[len(lower)-4:] == "bnds" {
		return true
	}
	if commonCoordNames[name] {
		return true
	}
	if vi != nil && vi.DataType == DTypeByteString && len(vi.Shape) == 0 {
		return true
	}
	return false
}
