package model

// DataType is the portable dtype name used across the catalog, independent
// of the wire-level OPeNDAP/XDR type tags.
type DataType string

const (
	DTypeInt8    DataType = "int8"
	DTypeInt16   DataType = "int16"
	DTypeInt32   DataType = "int32"
	DTypeInt64   DataType = "int64"
	DTypeUint8   DataType = "uint8"
	DTypeUint16  DataType = "uint16"
	DTypeUint32  DataType = "uint32"
	DTypeUint64  DataType = "uint64"
	DTypeFloat32 DataType = "float32"
	DTypeFloat64 DataType = "float64"
	// DTypeByteString covers OPeNDAP's String/URL leaf types.
	DTypeByteString DataType = "byte_string"
)

// ByteWidth returns the size in bytes of one element of t, or 0 for
// DTypeByteString (variable width).
func (t DataType) ByteWidth() int {
	switch t {
	case DTypeInt8, DTypeUint8:
		return 1
	case DTypeInt16, DTypeUint16:
		return 2
	case DTypeInt32, DTypeUint32, DTypeFloat32:
		return 4
	case DTypeInt64, DTypeUint64, DTypeFloat64:
		return 8
	default:
		return 0
	}
}

// promotionTable implements spec.md §4.7 step 4's fixed dtype-widening rule:
// a variable with no _FillValue attribute is widened one notch so a fill
// value can be synthesized without colliding with real data.
var promotionTable = map[DataType]DataType{
	DTypeInt8:    DTypeInt16,
	DTypeInt16:   DTypeInt32,
	DTypeInt32:   DTypeInt64,
	DTypeUint8:   DTypeUint16,
	DTypeUint16:  DTypeUint32,
	DTypeUint32:  DTypeUint64,
	DTypeFloat32: DTypeFloat32,
	DTypeFloat64: DTypeFloat64,
}

// Promote returns the widened dtype for t and whether a promotion rule
// exists for it at all (floats "promote" to themselves).
func Promote(t DataType) (DataType, bool) {
	p, ok := promotionTable[t]
	return p, ok
}

// VariableInfo is the per-variable schema entry of a probed DatasetRecord,
// per spec.md §3.
type VariableInfo struct {
	DataType     DataType
	OrigDataType DataType
	Shape        []int
	Dimensions   []string
	// FileDimensions/FileChunkSizes snapshot the per-file (pre time-axis
	// multiplication) shape, per spec.md §4.7 step 4.
	FileDimensions []string
	ChunkSizes     []int
	FileChunkSizes []int
	FillValue      any
	Attributes     map[string]any
	Size           int
}

// Validate checks the invariants of spec.md §3: equal lengths and
// elementwise chunk_sizes[i] <= shape[i].
func (v *VariableInfo) Validate() error {
	if len(v.Shape) != len(v.Dimensions) || len(v.Shape) != len(v.ChunkSizes) {
		return errLenMismatch(v)
	}
	for i, c := range v.ChunkSizes {
		if c > v.Shape[i] {
			return errChunkTooLarge(v, i)
		}
	}
	return nil
}

// ClampChunkSizes clamps each chunk_sizes[i] to shape[i], per spec.md §4.7.
func (v *VariableInfo) ClampChunkSizes() {
	for i := range v.ChunkSizes {
		if i < len(v.Shape) && v.ChunkSizes[i] > v.Shape[i] {
			v.ChunkSizes[i] = v.Shape[i]
		}
	}
}
