package model

import "time"

// SearchFilters is the set of non-spatial/non-temporal facets accepted by
// DRS Catalog.Search, per spec.md §4.4.
type SearchFilters struct {
	ECV            string
	Frequency      string
	ProcessingLevel string
	DataType       string
	ProductString  string
	ProductVersion string
	Institute      string
	Sensor         string
	Platform       string
}

// Empty reports whether no facet is set.
func (f SearchFilters) Empty() bool {
	return f == SearchFilters{}
}

// DRSEncoded reports whether any of the facets that are positionally encoded
// in the DRS id itself are set (ECV, frequency, processing level, data type,
// product string, product version — spec.md §4.4's "DRS-encoded facets").
func (f SearchFilters) DRSEncoded() bool {
	return f.ECV != "" || f.Frequency != "" || f.ProcessingLevel != "" ||
		f.DataType != "" || f.ProductString != "" || f.ProductVersion != ""
}

// SearchQuery is the full query accepted by DRS Catalog.Search.
type SearchQuery struct {
	Start   time.Time
	End     time.Time
	HasTime bool
	BBox    *BBox
	Filters SearchFilters
}
