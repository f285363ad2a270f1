// Package opendap implements the OPeNDAP client of spec.md §4.6: it
// fetches .dds/.das/.dods documents, builds a dataset tree, installs
// per-variable proxies, and decodes XDR-encoded hyperslab responses.
//
// No OPeNDAP/DAP2 client library appears anywhere in the example corpus
// (the Python original leans on pydap, which has no Go counterpart), so
// this package reimplements the wire protocol directly against the
// standard library — the one deliberately stdlib-only component of the
// domain stack, recorded as such in DESIGN.md.
package opendap

import (
	"net/url"
	"strings"

	"github.com/esacci/odpcore/internal/model"
)

// VarKind distinguishes the three DDS node shapes spec.md §4.6 names.
type VarKind int

const (
	KindBase VarKind = iota
	KindGrid
	KindSequence
)

// Variable is one leaf or grid node of a parsed OPeNDAP dataset tree.
type Variable struct {
	Name       string
	Kind       VarKind
	DataType   model.DataType
	Shape      []int
	Dims       []string
	Attributes map[string]any

	// Array/Maps hold a Grid's data array and its coordinate map
	// variables, keyed by dimension name, in declaration order.
	Array *Variable
	Maps  []*Variable

	// OutputMainOnly marks a grid node whose maps should not themselves
	// be requested, per spec.md §4.6 "mark every grid node output main
	// variable only".
	OutputMainOnly bool

	Proxy Proxy
}

// Dataset is the parsed DDS+DAS tree for one OPeNDAP URL.
type Dataset struct {
	Name       string
	BaseURL    string
	Selection  string // the URL's '&'-joined selection clauses (those holding <, > or =), if any
	Attributes map[string]any
	Variables  map[string]*Variable
	Order      []string // declaration order, for deterministic iteration
}

// Var returns the named top-level variable, or nil.
func (d *Dataset) Var(name string) *Variable {
	return d.Variables[name]
}

// stripProjection splits a (possibly constrained) OPeNDAP URL into its
// base and its projection/selection query, per spec.md §4.6: "strip
// projection fragment from URL (leaving only selection)".
func stripProjection(raw string) (base, selection string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	q := u.RawQuery
	u.RawQuery = ""
	base = u.String()
	if q == "" {
		return base, ""
	}
	// The projection is the comma-joined variable list before the first
	// '&'-delimited selection clause that contains an operator; OPeNDAP
	// encodes the projection unescaped at the front of the query. Any
	// portion containing '=' is a selection constraint kept verbatim.
	parts := strings.Split(q, "&")
	var sel []string
	for _, p := range parts {
		if strings.ContainsAny(p, "<>=") {
			sel = append(sel, p)
		}
	}
	return base, strings.Join(sel, "&")
}
