package opendap

import "github.com/esacci/odpcore/internal/model"

// Proxy is the per-variable data handle spec.md §4.6 installs on every
// dataset leaf: "BaseProxy(url, var_id, dtype, shape)" on scalars/arrays,
// "SequenceProxy(url, template)" on sequence nodes.
type Proxy interface {
	VarID() string
	DataType() model.DataType
	Shape() []int
	Slice() []Slice
	SetSlice(s []Slice)
	BaseURL() string
}

// BaseProxy is the data handle for a scalar, array, or grid leaf.
type BaseProxy struct {
	URLBase string
	ID      string
	DType   model.DataType
	Shp     []int
	Sl      []Slice
}

func NewBaseProxy(urlBase, id string, dt model.DataType, shape []int) *BaseProxy {
	return &BaseProxy{URLBase: urlBase, ID: id, DType: dt, Shp: shape}
}

func (p *BaseProxy) VarID() string          { return p.ID }
func (p *BaseProxy) DataType() model.DataType { return p.DType }
func (p *BaseProxy) Shape() []int           { return p.Shp }
func (p *BaseProxy) Slice() []Slice         { return p.Sl }
func (p *BaseProxy) SetSlice(s []Slice)     { p.Sl = s }
func (p *BaseProxy) BaseURL() string        { return p.URLBase }

// SequenceProxy is the data handle for a Sequence/Structure node.
// Sequence data decoding is out of scope for the gridded products this
// portal serves (see dds.go); GetDataFromDataset cannot decode its
// payload and returns no data for it.
type SequenceProxy struct {
	URLBase  string
	Template *Variable
	Sl       []Slice
}

func NewSequenceProxy(urlBase string, template *Variable) *SequenceProxy {
	return &SequenceProxy{URLBase: urlBase, Template: template}
}

func (p *SequenceProxy) VarID() string {
	if p.Template == nil {
		return ""
	}
	return p.Template.Name
}
func (p *SequenceProxy) DataType() model.DataType { return model.DTypeByteString }
func (p *SequenceProxy) Shape() []int             { return nil }
func (p *SequenceProxy) Slice() []Slice           { return p.Sl }
func (p *SequenceProxy) SetSlice(s []Slice)       { p.Sl = s }
func (p *SequenceProxy) BaseURL() string          { return p.URLBase }
