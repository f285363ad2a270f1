package opendap

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/esacci/odpcore/internal/model"
)

// wireWidth is the on-the-wire XDR width DAP2 uses for dt. RFC 1832's XDR
// has no 16-bit primitive, so DAP2 promotes Int16/UInt16 to 32-bit units
// on the wire; Byte arrays are packed one byte per element with the
// whole block padded to a 4-byte boundary.
func wireWidth(dt model.DataType) int {
	switch dt {
	case model.DTypeUint8:
		return 1
	case model.DTypeInt16, model.DTypeUint16, model.DTypeInt32, model.DTypeUint32, model.DTypeFloat32:
		return 4
	case model.DTypeInt64, model.DTypeUint64, model.DTypeFloat64:
		return 8
	default:
		return 4
	}
}

// DecodeNumericArray reads a DAP2 XDR-encoded numeric array of count
// elements of dtype dt from data (the tail of a .dods response after the
// "\nData:\n" separator, for one variable's payload), per spec.md §4.6.
// It returns count little-endian elements of dt's own byte width,
// regardless of the wire width DAP2 used to transmit them; dt here is
// always the file's own on-disk dtype, not the schema assembler's
// promoted canonical one — see WidenToCanonical for that step.
func DecodeNumericArray(data []byte, dt model.DataType, count int) ([]byte, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("opendap: xdr array header truncated")
	}
	n1 := binary.BigEndian.Uint32(data[0:4])
	n2 := binary.BigEndian.Uint32(data[4:8])
	if n1 != n2 {
		return nil, fmt.Errorf("opendap: xdr array length mismatch (%d != %d)", n1, n2)
	}
	if int(n1) != count {
		return nil, fmt.Errorf("opendap: xdr array length %d != expected %d", n1, count)
	}
	body := data[8:]

	ww := wireWidth(dt)
	var need int
	if ww == 1 {
		need = ((count + 3) / 4) * 4 // padded to 4-byte boundary
	} else {
		need = count * ww
	}
	if len(body) < need {
		return nil, fmt.Errorf("opendap: xdr array body truncated: have %d need %d", len(body), need)
	}

	outWidth := dt.ByteWidth()
	if outWidth == 0 {
		outWidth = 1
	}
	out := make([]byte, count*outWidth)

	for i := 0; i < count; i++ {
		switch dt {
		case model.DTypeUint8:
			out[i] = body[i]
		case model.DTypeInt16, model.DTypeUint16:
			v := binary.BigEndian.Uint32(body[i*4 : i*4+4])
			binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
		case model.DTypeInt32, model.DTypeUint32:
			v := binary.BigEndian.Uint32(body[i*4 : i*4+4])
			binary.LittleEndian.PutUint32(out[i*4:i*4+4], v)
		case model.DTypeFloat32:
			v := binary.BigEndian.Uint32(body[i*4 : i*4+4])
			f := math.Float32frombits(v)
			binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(f))
		case model.DTypeInt64, model.DTypeUint64:
			v := binary.BigEndian.Uint64(body[i*8 : i*8+8])
			binary.LittleEndian.PutUint64(out[i*8:i*8+8], v)
		case model.DTypeFloat64:
			v := binary.BigEndian.Uint64(body[i*8 : i*8+8])
			f := math.Float64frombits(v)
			binary.LittleEndian.PutUint64(out[i*8:i*8+8], math.Float64bits(f))
		default:
			return nil, fmt.Errorf("opendap: unsupported xdr dtype %s", dt)
		}
	}
	return out, nil
}

// WidenToCanonical re-encodes a DecodeNumericArray result from its
// on-the-wire dtype (from, e.g. a fill-less int16 variable's file dtype)
// to the schema assembler's promoted canonical dtype (to), per spec.md
// §4.8 step 4's "coerce the returned buffer to the variable's canonical
// data_type" (the original's data.astype(var_info['data_type'])). A
// no-op when the two widths already match (floats, byte_string, or any
// variable the assembler did not promote).
func WidenToCanonical(raw []byte, from, to model.DataType, count int) ([]byte, error) {
	fw, tw := from.ByteWidth(), to.ByteWidth()
	if from == to || fw == 0 || tw == 0 || fw == tw {
		return raw, nil
	}
	if len(raw) < count*fw {
		return nil, fmt.Errorf("opendap: widen %s->%s: have %d bytes, need %d", from, to, len(raw), count*fw)
	}

	signed := isSignedInt(from)
	out := make([]byte, count*tw)
	for i := 0; i < count; i++ {
		elem := raw[i*fw : i*fw+fw]
		var v uint64
		for b := 0; b < fw; b++ {
			v |= uint64(elem[b]) << (8 * b)
		}
		if signed {
			shift := 64 - fw*8
			v = uint64(int64(v<<shift) >> shift)
		}
		for b := 0; b < tw; b++ {
			out[i*tw+b] = byte(v >> (8 * b))
		}
	}
	return out, nil
}

func isSignedInt(t model.DataType) bool {
	switch t {
	case model.DTypeInt8, model.DTypeInt16, model.DTypeInt32, model.DTypeInt64:
		return true
	default:
		return false
	}
}

// DecodeStringArray reads a DAP2 XDR string array: a length prefix
// followed by, per element, a 4-byte string length and its bytes padded
// to a 4-byte boundary.
func DecodeStringArray(data []byte, count int) ([]string, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("opendap: xdr string array header truncated")
	}
	n1 := binary.BigEndian.Uint32(data[0:4])
	if int(n1) != count {
		return nil, fmt.Errorf("opendap: xdr string array length %d != expected %d", n1, count)
	}
	pos := 8
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("opendap: xdr string %d truncated", i)
		}
		strLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+strLen > len(data) {
			return nil, fmt.Errorf("opendap: xdr string %d body truncated", i)
		}
		out = append(out, string(data[pos:pos+strLen]))
		pos += strLen
		if pad := strLen % 4; pad != 0 {
			pos += 4 - pad
		}
	}
	return out, nil
}
