// Column element types (§3: "dtype is drawn from a fixed closed set").
package strata

import "fmt"

// DType is one of the fixed set of column element types the schema
// language supports.
type DType int

const (
	DBool DType = iota
	DInt8
	DInt16
	DInt32
	DInt64
	DFloat32
	DFloat64
	DString
	DTimestamp
	DDate
)

var dtypeNames = map[DType]string{
	DBool:      "bool",
	DInt8:      "i8",
	DInt16:     "i16",
	DInt32:     "i32",
	DInt64:     "i64",
	DFloat32:   "f4",
	DFloat64:   "f8",
	DString:    "str",
	DTimestamp: "timestamp",
	DDate:      "date",
}

var namesToDType = func() map[string]DType {
	m := make(map[string]DType, len(dtypeNames))
	for k, v := range dtypeNames {
		m[v] = k
	}
	return m
}()

func (d DType) String() string {
	if n, ok := dtypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// ParseDType parses a schema-text dtype token.
func ParseDType(s string) (DType, error) {
	d, ok := namesToDType[s]
	if !ok {
		return 0, fmt.Errorf("%w: unknown dtype %q", ErrSchema, s)
	}
	return d, nil
}

// fixedWidth returns the on-disk element width in bytes for raw
// encoding, or 0 for variable-length (string) columns.
func (d DType) fixedWidth() int {
	switch d {
	case DBool, DInt8:
		return 1
	case DInt16:
		return 2
	case DInt32, DFloat32, DDate:
		return 4
	case DInt64, DFloat64, DTimestamp:
		return 8
	default:
		return 0
	}
}

// defaultCodecs returns the codec chain applied when the schema text
// doesn't specify one explicitly (§4.1: "String columns default to
// vlen-utf8; numeric columns default to raw ...").
func (d DType) defaultCodecs() []CodecKind {
	if d == DString {
		return []CodecKind{CodecVlenUTF8}
	}
	return []CodecKind{CodecRaw}
}
