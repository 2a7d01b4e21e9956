// Dense typed columns (§9 design note: "Dynamic columns → typed
// arrays. Translate [NumPy's heterogeneous dtype arrays] to a tagged
// union of typed arrays driven by schema").
package strata

import (
	"cmp"
	"fmt"
)

// Array is a dense, equal-length column of one dtype. It is the Go
// stand-in for the NumPy array the original stores per column.
type Array interface {
	Len() int
	DType() DType
	// Get returns the element at i as its native Go representation:
	// bool, int8/16/32/64, float32/64, string. Timestamp elements are
	// int64 nanoseconds-since-epoch; Date elements are int32
	// days-since-epoch (§4.1).
	Get(i int) any
	Slice(lo, hi int) Array
}

// numArray is the generic backing for every fixed-width numeric
// column, including Timestamp (int64 ns) and Date (int32 days) which
// reuse the int64/int32 representations under a distinct DType tag.
type numArray[T numeric] struct {
	dt   DType
	vals []T
}

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func (a *numArray[T]) Len() int    { return len(a.vals) }
func (a *numArray[T]) DType() DType { return a.dt }
func (a *numArray[T]) Get(i int) any {
	switch a.dt {
	case DTimestamp:
		return int64(a.vals[i])
	case DDate:
		return int32(a.vals[i])
	default:
		return a.vals[i]
	}
}
func (a *numArray[T]) Slice(lo, hi int) Array {
	return &numArray[T]{dt: a.dt, vals: a.vals[lo:hi]}
}

type boolArray struct{ vals []bool }

func (a *boolArray) Len() int       { return len(a.vals) }
func (a *boolArray) DType() DType   { return DBool }
func (a *boolArray) Get(i int) any  { return a.vals[i] }
func (a *boolArray) Slice(lo, hi int) Array {
	return &boolArray{vals: a.vals[lo:hi]}
}

type strArray struct{ vals []string }

func (a *strArray) Len() int      { return len(a.vals) }
func (a *strArray) DType() DType  { return DString }
func (a *strArray) Get(i int) any { return a.vals[i] }
func (a *strArray) Slice(lo, hi int) Array {
	return &strArray{vals: a.vals[lo:hi]}
}

// NewArray allocates a zero-length mutable array of the given dtype.
func NewArray(dt DType) Array {
	switch dt {
	case DBool:
		return &boolArray{}
	case DInt8:
		return &numArray[int8]{dt: dt}
	case DInt16:
		return &numArray[int16]{dt: dt}
	case DInt32:
		return &numArray[int32]{dt: dt}
	case DInt64:
		return &numArray[int64]{dt: dt}
	case DFloat32:
		return &numArray[float32]{dt: dt}
	case DFloat64:
		return &numArray[float64]{dt: dt}
	case DString:
		return &strArray{}
	case DTimestamp:
		return &numArray[int64]{dt: dt}
	case DDate:
		return &numArray[int32]{dt: dt}
	default:
		panic(fmt.Sprintf("strata: unknown dtype %v", dt))
	}
}

// arrayEqual reports whether two arrays hold the same dtype, length
// and elements.
func arrayEqual(a, b Array) bool {
	if a.DType() != b.DType() || a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if a.Get(i) != b.Get(i) {
			return false
		}
	}
	return true
}

// compareElem orders two native values of the same dtype, the
// comparator behind Frame.index's binary search and Key.Compare.
func compareElem(dt DType, a, b any) int {
	switch dt {
	case DBool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0
		}
		if !av && bv {
			return -1
		}
		return 1
	case DInt8:
		return cmp.Compare(a.(int8), b.(int8))
	case DInt16:
		return cmp.Compare(a.(int16), b.(int16))
	case DInt32:
		return cmp.Compare(a.(int32), b.(int32))
	case DInt64, DTimestamp:
		return cmp.Compare(a.(int64), b.(int64))
	case DFloat32:
		return cmp.Compare(a.(float32), b.(float32))
	case DFloat64:
		return cmp.Compare(a.(float64), b.(float64))
	case DDate:
		return cmp.Compare(a.(int32), b.(int32))
	case DString:
		return cmp.Compare(a.(string), b.(string))
	default:
		panic(fmt.Sprintf("strata: uncomparable dtype %v", dt))
	}
}
