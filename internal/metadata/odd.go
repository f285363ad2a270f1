// Package metadata parses the two sidecar documents the portal hangs off
// every catalogue entry: the OpenSearch description document (ODD, a
// facet/parameter XML) and the ISO-19115 descxml metadata record.
package metadata

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// oddParamNames maps an ODD parameter's "name" attribute to the facet key
// this package reports it under, per spec.md §4.3.
var oddParamNames = map[string]string{
	"ecv":              "ecv",
	"time_frequency":   "frequency",
	"institute":        "institute",
	"processingLevel":  "processingLevel",
	"productString":    "productString",
	"productVersion":   "productVersion",
	"dataType":         "dataType",
	"sensor":           "sensor",
	"platform":         "platform",
	"fileFormat":       "fileFormat",
	"drsId":            "drsId",
}

type oddDescription struct {
	URLs []oddURL `xml:"Url"`
}

type oddURL struct {
	Parameters []oddParameter `xml:"Parameter"`
}

type oddParameter struct {
	Name    string      `xml:"name,attr"`
	Options []oddOption `xml:"Option"`
}

type oddOption struct {
	Value string `xml:"value,attr"`
	Label string `xml:"label,attr"`
}

// FacetOption is one (value, num_files) pair harvested from an ODD
// parameter's options.
type FacetOption struct {
	Value    string
	NumFiles int
}

// FacetCatalog is the parsed content of the description document: every
// facet parameter's option values, and the per-DRS-id file count.
type FacetCatalog struct {
	// Facets maps a facet key (see oddParamNames) to its option values.
	Facets map[string][]FacetOption
	// NumFiles maps a DRS id to its declared file count.
	NumFiles map[string]int
}

// DrsIDs returns every drsId option value reported by the description
// document.
func (c *FacetCatalog) DrsIDs() []string {
	opts := c.Facets["drsId"]
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Value)
	}
	return out
}

// ParseODD parses an OpenSearch description document.
func ParseODD(data []byte) (*FacetCatalog, error) {
	var doc oddDescription
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parse ODD: %w", err)
	}

	cat := &FacetCatalog{
		Facets:   make(map[string][]FacetOption),
		NumFiles: make(map[string]int),
	}

	for _, url := range doc.URLs {
		for _, param := range url.Parameters {
			key, ok := oddParamNames[param.Name]
			if !ok || len(param.Options) == 0 {
				continue
			}
			for _, opt := range param.Options {
				count := parseOptionCount(opt.Label)
				cat.Facets[key] = append(cat.Facets[key], FacetOption{Value: opt.Value, NumFiles: count})
				if key == "drsId" {
					cat.NumFiles[opt.Value] = count
				}
			}
		}
	}
	return cat, nil
}

// parseOptionCount extracts the trailing "(<count>)" integer from an ODD
// option label of the form "<display> (<count>)".
func parseOptionCount(label string) int {
	i := strings.LastIndexByte(label, '(')
	if i < 0 || !strings.HasSuffix(label, ")") {
		return 0
	}
	n, err := strconv.Atoi(label[i+1 : len(label)-1])
	if err != nil {
		return 0
	}
	return n
}
