// Frame: an in-memory columnar container with a schema (§4.2).
package strata

import (
	"fmt"
	"sort"
)

// Closed names an interval-closure flag over an index-range query
// (§6 GLOSSARY "closed").
type Closed int

const (
	ClosedLeft Closed = iota
	ClosedRight
	ClosedBoth
	ClosedNone
)

func ParseClosed(s string) (Closed, error) {
	switch s {
	case "left":
		return ClosedLeft, nil
	case "right":
		return ClosedRight, nil
	case "both":
		return ClosedBoth, nil
	case "none":
		return ClosedNone, nil
	default:
		return 0, fmt.Errorf("%w: unknown closed value %q", ErrValue, s)
	}
}

// Frame is a mapping column-name → dense typed array of equal length
// n, sorted ascending by the index tuple with a unique index tuple
// per row (§4.2 invariants).
type Frame struct {
	Schema  *Schema
	Columns map[string]Array
}

// NewFrame builds a Frame, checking the schema-completeness and
// equal-length invariants. Sortedness is the caller's responsibility
// to assert via CheckSorted before a write (§4.5 "Assert frame is
// sorted").
func NewFrame(schema *Schema, columns map[string]Array) (*Frame, error) {
	var n = -1
	for _, c := range schema.Columns {
		a, ok := columns[c.Name]
		if !ok {
			return nil, fmt.Errorf("%w: frame missing column %q", ErrSchema, c.Name)
		}
		if a.DType() != c.DType {
			return nil, fmt.Errorf("%w: column %q has dtype %v, schema expects %v", ErrSchema, c.Name, a.DType(), c.DType)
		}
		if n == -1 {
			n = a.Len()
		} else if a.Len() != n {
			return nil, fmt.Errorf("%w: column %q has length %d, expected %d", ErrSchema, c.Name, a.Len(), n)
		}
	}
	return &Frame{Schema: schema, Columns: columns}, nil
}

// Length returns the row count.
func (f *Frame) Length() int {
	for _, c := range f.Schema.Columns {
		return f.Columns[c.Name].Len()
	}
	return 0
}

// Column returns a named array.
func (f *Frame) Column(name string) (Array, error) {
	a, ok := f.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: no such column %q", ErrSchema, name)
	}
	return a, nil
}

// KeyAt returns the index-column tuple of row i.
func (f *Frame) KeyAt(i int) Key {
	idx := f.Schema.IndexColumns()
	k := make(Key, len(idx))
	for j, c := range idx {
		k[j] = f.Columns[c.Name].Get(i)
	}
	return k
}

// CheckSorted asserts the frame is sorted ascending by the index
// tuple with no duplicate key (§4.5 write precondition).
func (f *Frame) CheckSorted() error {
	n := f.Length()
	dtypes := f.Schema.IndexDTypes()
	for i := 1; i < n; i++ {
		if f.KeyAt(i - 1).Compare(f.KeyAt(i), dtypes) >= 0 {
			return fmt.Errorf("%w: frame is not strictly sorted by index at row %d", ErrSchema, i)
		}
	}
	return nil
}

// Index binary-searches for the first (or, if right, one-past-last)
// row whose index tuple is >= key (resp. > key), tuple-aware:
// successive refinement of lo/hi across each index column in order
// (§4.2). An empty key returns 0 (for right=false) or n (right=true),
// matching "undefined keys (empty tuple)" degenerating to an open
// bound rather than a lookup.
func (f *Frame) Index(key Key, right bool) int {
	n := f.Length()
	if len(key) == 0 {
		if right {
			return n
		}
		return 0
	}
	dtypes := f.Schema.IndexDTypes()
	lo, hi := 0, n
	if right {
		hi = sort.Search(n, func(i int) bool {
			return f.KeyAt(i).Compare(key, dtypes) > 0
		})
		return hi
	}
	lo = sort.Search(n, func(i int) bool {
		return f.KeyAt(i).Compare(key, dtypes) >= 0
	})
	return lo
}

// Slice returns a positional half-open view [startPos, stopPos).
func (f *Frame) Slice(startPos, stopPos int) *Frame {
	cols := make(map[string]Array, len(f.Columns))
	for name, a := range f.Columns {
		cols[name] = a.Slice(startPos, stopPos)
	}
	return &Frame{Schema: f.Schema, Columns: cols}
}

// IndexSlice composes Index lookups on both bounds with closure
// semantics. A single startKey with a nil stopKey is a point query
// and uses closed=both (§4.2) — this is the Frame-level convenience
// sugar; internal callers that need an open-ended range (stopKey
// genuinely unbounded, not a point lookup) use rangeSlice instead.
func (f *Frame) IndexSlice(startKey, stopKey Key, closed Closed) *Frame {
	if startKey != nil && stopKey == nil {
		closed = ClosedBoth
		stopKey = startKey
	}
	return f.rangeSlice(startKey, stopKey, closed)
}

// rangeSlice is IndexSlice without the point-query collapse, used
// internally (segment slicing, Series.read's materialization) where a
// nil bound always means open-ended, never "look up this one key".
func (f *Frame) rangeSlice(startKey, stopKey Key, closed Closed) *Frame {
	lo := 0
	if startKey != nil {
		startInclusive := closed == ClosedLeft || closed == ClosedBoth
		lo = f.Index(startKey, !startInclusive)
	}
	hi := f.Length()
	if stopKey != nil {
		stopInclusive := closed == ClosedRight || closed == ClosedBoth
		hi = f.Index(stopKey, stopInclusive)
	}
	if lo > hi {
		lo = hi
	}
	return f.Slice(lo, hi)
}

// Rows yields each row as an ordered slice of native values, columns
// in schema order.
func (f *Frame) Rows() [][]any {
	n := f.Length()
	out := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(f.Schema.Columns))
		for j, c := range f.Schema.Columns {
			row[j] = f.Columns[c.Name].Get(i)
		}
		out[i] = row
	}
	return out
}

// RowDict returns name→value for the row matching the given index
// tuple exactly, or nil if none matches.
func (f *Frame) RowDict(key Key) map[string]any {
	pos := f.Index(key, false)
	if pos >= f.Length() || !f.KeyAt(pos).Equal(key, f.Schema.IndexDTypes()) {
		return nil
	}
	row := make(map[string]any, len(f.Schema.Columns))
	for _, c := range f.Schema.Columns {
		row[c.Name] = f.Columns[c.Name].Get(pos)
	}
	return row
}

// Equal reports whether two frames share a schema and have
// element-equal columns (§4.2).
func (f *Frame) Equal(other *Frame) bool {
	if len(f.Schema.Columns) != len(other.Schema.Columns) {
		return false
	}
	for _, c := range f.Schema.Columns {
		a, ok := f.Columns[c.Name]
		if !ok {
			return false
		}
		b, ok := other.Columns[c.Name]
		if !ok {
			return false
		}
		if !arrayEqual(a, b) {
			return false
		}
	}
	return true
}

// Concat concatenates frames sharing a schema, last-writer-wins on
// duplicate index keys, and re-sorts — the building block
// FromSegments (§4.6) and Series.read's materialization use to merge
// segment slices into a single result frame.
func Concat(schema *Schema, frames []*Frame) (*Frame, error) {
	type row struct {
		key    Key
		values []any
		order  int
	}
	dtypes := schema.IndexDTypes()
	var rows []row
	order := 0
	for _, fr := range frames {
		n := fr.Length()
		for i := 0; i < n; i++ {
			vals := make([]any, len(schema.Columns))
			for j, c := range schema.Columns {
				vals[j] = fr.Columns[c.Name].Get(i)
			}
			rows = append(rows, row{key: fr.KeyAt(i), values: vals, order: order})
			order++
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].key.Compare(rows[j].key, dtypes) < 0
	})
	// Collapse duplicate keys to the last value observed in original
	// emission order (later frames are expected to be the newer
	// revisions, per the caller's ordering contract).
	dedup := make([]row, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		if i+1 < len(rows) && rows[i].key.Equal(rows[i+1].key, dtypes) {
			continue
		}
		dedup = append(dedup, rows[i])
	}
	cols := make(map[string]Array, len(schema.Columns))
	for j, c := range schema.Columns {
		arr := NewArray(c.DType)
		for _, r := range dedup {
			arr = appendElem(arr, r.values[j])
		}
		cols[c.Name] = arr
	}
	return NewFrame(schema, cols)
}

func appendElem(a Array, v any) Array {
	switch arr := a.(type) {
	case *boolArray:
		arr.vals = append(arr.vals, v.(bool))
		return arr
	case *strArray:
		arr.vals = append(arr.vals, v.(string))
		return arr
	case *numArray[int8]:
		arr.vals = append(arr.vals, v.(int8))
		return arr
	case *numArray[int16]:
		arr.vals = append(arr.vals, v.(int16))
		return arr
	case *numArray[int32]:
		arr.vals = append(arr.vals, v.(int32))
		return arr
	case *numArray[int64]:
		arr.vals = append(arr.vals, v.(int64))
		return arr
	case *numArray[float32]:
		arr.vals = append(arr.vals, v.(float32))
		return arr
	case *numArray[float64]:
		arr.vals = append(arr.vals, v.(float64))
		return arr
	default:
		panic(fmt.Sprintf("strata: unsupported array type %T", a))
	}
}

// Eval implements the documented element-wise operator subset over two
// named columns (§4.2: "+ - * / < <= > >= == != & |"). Arithmetic
// operators take numeric columns and return float64; comparison
// operators compare elements using the left column's dtype, so both
// columns must share it; & and | take bool columns.
func (f *Frame) Eval(op string, leftCol, rightCol string) (Array, error) {
	left, err := f.Column(leftCol)
	if err != nil {
		return nil, err
	}
	right, err := f.Column(rightCol)
	if err != nil {
		return nil, err
	}
	if left.Len() != right.Len() {
		return nil, fmt.Errorf("%w: eval columns have mismatched length", ErrSchema)
	}
	n := left.Len()
	switch op {
	case "+", "-", "*", "/":
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			lv, rv := toFloat64(left.Get(i)), toFloat64(right.Get(i))
			switch op {
			case "+":
				out[i] = lv + rv
			case "-":
				out[i] = lv - rv
			case "*":
				out[i] = lv * rv
			case "/":
				out[i] = lv / rv
			}
		}
		return &numArray[float64]{dt: DFloat64, vals: out}, nil
	case "<", "<=", ">", ">=", "==", "!=":
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			c := compareElem(left.DType(), left.Get(i), right.Get(i))
			switch op {
			case "<":
				out[i] = c < 0
			case "<=":
				out[i] = c <= 0
			case ">":
				out[i] = c > 0
			case ">=":
				out[i] = c >= 0
			case "==":
				out[i] = c == 0
			case "!=":
				out[i] = c != 0
			}
		}
		return &boolArray{vals: out}, nil
	case "&", "|":
		out := make([]bool, n)
		for i := 0; i < n; i++ {
			lv, rv := left.Get(i).(bool), right.Get(i).(bool)
			if op == "&" {
				out[i] = lv && rv
			} else {
				out[i] = lv || rv
			}
		}
		return &boolArray{vals: out}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported eval operator %q", ErrValue, op)
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("strata: not numeric: %T", v))
	}
}
