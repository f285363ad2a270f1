package opensearch

import (
	"net/url"
	"strconv"
	"time"

	"github.com/esacci/odpcore/internal/timeparse"
)

// Query is one OpenSearch request against the CEDA catalogue endpoint,
// per spec.md §4.2.
type Query struct {
	ParentIdentifier string
	DrsID            string
	FileFormat       string

	StartDate time.Time
	EndDate   time.Time
	HasStart  bool
	HasEnd    bool

	StartPage      int
	MaximumRecords int
}

// Values renders q as the url.Values the CEDA OpenSearch endpoint expects.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("httpAccept", "application/geo+json")
	if q.ParentIdentifier != "" {
		v.Set("parentIdentifier", q.ParentIdentifier)
	}
	if q.DrsID != "" {
		v.Set("drsId", q.DrsID)
	}
	if q.FileFormat != "" {
		v.Set("fileFormat", q.FileFormat)
	}
	if q.HasStart {
		v.Set("startDate", q.StartDate.Format(timeparse.WireLayout))
	}
	if q.HasEnd {
		v.Set("endDate", q.EndDate.Format(timeparse.WireLayout))
	}
	startPage := q.StartPage
	if startPage <= 0 {
		startPage = 1
	}
	v.Set("startPage", strconv.Itoa(startPage))
	maxRecords := q.MaximumRecords
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	if maxRecords > 10000 {
		maxRecords = 10000
	}
	v.Set("maximumRecords", strconv.Itoa(maxRecords))
	return v
}
