// Segment: immutable persisted frame, one content-addressed blob per
// column (§3, §4.3).
package strata

import "fmt"

// Segment is the capability set shared by every concrete variant
// (§4.3): length, bounds, emptiness, per-column read, and closure-
// aware range slicing.
type Segment interface {
	Length() int
	Start() Key
	Stop() Key
	Empty() bool
	Read(schema *Schema, column string) (Array, error)
	Slice(schema *Schema, startKey, stopKey Key, closed Closed) (Segment, error)
}

// EmptySegment has length 0; every read produces a zero-length typed
// array of the right dtype.
type EmptySegment struct{}

func (EmptySegment) Length() int  { return 0 }
func (EmptySegment) Start() Key   { return nil }
func (EmptySegment) Stop() Key    { return nil }
func (EmptySegment) Empty() bool  { return true }
func (EmptySegment) Read(schema *Schema, column string) (Array, error) {
	c, ok := schema.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: unknown column %q", ErrSchema, column)
	}
	return NewArray(c.DType), nil
}
func (EmptySegment) Slice(*Schema, Key, Key, Closed) (Segment, error) {
	return EmptySegment{}, nil
}

// ShallowSegment holds only per-column digests, materialized lazily:
// Read fetches and decodes a column's blob on demand. Repeated reads
// are cached per-instance so a slice chain doesn't refetch the same
// column twice.
type ShallowSegment struct {
	pod     POD
	digests map[string]string
	start   Key
	stop    Key
	length  int

	cache map[string]Array
}

// NewShallowSegment constructs a segment view over already-written
// column blobs, as read back from a revision payload (§4.3, §4.5).
func NewShallowSegment(pod POD, digests map[string]string, start, stop Key, length int) *ShallowSegment {
	return &ShallowSegment{pod: pod, digests: digests, start: start, stop: stop, length: length, cache: map[string]Array{}}
}

func (s *ShallowSegment) Length() int { return s.length }
func (s *ShallowSegment) Start() Key  { return s.start }
func (s *ShallowSegment) Stop() Key   { return s.stop }
func (s *ShallowSegment) Empty() bool { return s.length == 0 }

func (s *ShallowSegment) Read(schema *Schema, column string) (Array, error) {
	if a, ok := s.cache[column]; ok {
		return a, nil
	}
	digest, ok := s.digests[column]
	if !ok {
		return nil, fmt.Errorf("%w: segment has no digest for column %q", ErrSchema, column)
	}
	buf, err := s.pod.Read(hashedPath(digest))
	if err != nil {
		return nil, err
	}
	arr, err := schema.DecodeColumn(column, buf)
	if err != nil {
		return nil, err
	}
	s.cache[column] = arr
	return arr, nil
}

// materialize decodes every schema column into a Frame, the step
// Slice falls back to when the requested range isn't wholly covered
// by this segment's bounds.
func (s *ShallowSegment) materialize(schema *Schema) (*Frame, error) {
	cols := make(map[string]Array, len(schema.Columns))
	for _, c := range schema.Columns {
		a, err := s.Read(schema, c.Name)
		if err != nil {
			return nil, err
		}
		cols[c.Name] = a
	}
	return NewFrame(schema, cols)
}

// Slice applies the closure rule table of §4.3: disjoint ranges
// collapse to EmptySegment; a range wholly covering this segment
// (under the requested closure) returns the segment unmaterialized;
// otherwise the segment is materialized and rangeSlice performs the
// actual cut.
func (s *ShallowSegment) Slice(schema *Schema, startKey, stopKey Key, closed Closed) (Segment, error) {
	return sliceSegment(s, schema, startKey, stopKey, closed, s.materialize)
}

// frameSegment is a materialized, Frame-backed segment, returned once
// a ShallowSegment has to be decoded for a partial slice.
type frameSegment struct {
	schema *Schema
	frame  *Frame
}

func newFrameSegment(schema *Schema, frame *Frame) *frameSegment {
	return &frameSegment{schema: schema, frame: frame}
}

func (f *frameSegment) Length() int { return f.frame.Length() }
func (f *frameSegment) Start() Key {
	if f.frame.Length() == 0 {
		return nil
	}
	return f.frame.KeyAt(0)
}
func (f *frameSegment) Stop() Key {
	n := f.frame.Length()
	if n == 0 {
		return nil
	}
	return f.frame.KeyAt(n - 1)
}
func (f *frameSegment) Empty() bool { return f.frame.Length() == 0 }

func (f *frameSegment) Read(schema *Schema, column string) (Array, error) {
	return f.frame.Column(column)
}

func (f *frameSegment) Slice(schema *Schema, startKey, stopKey Key, closed Closed) (Segment, error) {
	return sliceSegment(f, schema, startKey, stopKey, closed, func(*Schema) (*Frame, error) {
		return f.frame, nil
	})
}

// sliceSegment implements the shared closure-rule table (§4.3) for
// any Segment that can materialize itself into a Frame on demand.
func sliceSegment(seg Segment, schema *Schema, startKey, stopKey Key, closed Closed, materialize func(*Schema) (*Frame, error)) (Segment, error) {
	if seg.Empty() {
		return EmptySegment{}, nil
	}
	dtypes := schema.IndexDTypes()
	selfStart, selfStop := seg.Start(), seg.Stop()

	if startKey != nil && clampCompare(startKey, selfStop, dtypes) > 0 {
		return EmptySegment{}, nil
	}
	if stopKey != nil && clampCompare(stopKey, selfStart, dtypes) < 0 {
		return EmptySegment{}, nil
	}
	if startKey != nil && clampCompare(startKey, selfStop, dtypes) == 0 &&
		closed != ClosedBoth && closed != ClosedLeft {
		return EmptySegment{}, nil
	}
	if stopKey != nil && clampCompare(stopKey, selfStart, dtypes) == 0 &&
		closed != ClosedBoth && closed != ClosedRight {
		return EmptySegment{}, nil
	}

	coversLeft := startKey == nil || clampCompare(startKey, selfStart, dtypes) <= 0
	coversRight := stopKey == nil || clampCompare(stopKey, selfStop, dtypes) >= 0
	closureMatches := closureCoversBounds(selfStart, selfStop, startKey, stopKey, closed, dtypes)
	if coversLeft && coversRight && closureMatches {
		return seg, nil
	}

	frame, err := materialize(schema)
	if err != nil {
		return nil, err
	}
	sliced := frame.rangeSlice(startKey, stopKey, closed)
	return newFrameSegment(schema, sliced), nil
}

// clampCompare compares keys of possibly-unequal length by prefix
// (§4.5/§13), truncating the longer key to the shorter's length
// before comparing.
func clampCompare(a, b Key, dtypes []DType) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a.Clamp(n).Compare(b.Clamp(n), dtypes)
}

// closureCoversBounds reports whether, given a range that already
// geometrically contains the segment, the requested closure still
// covers it whole with no trimming needed. It only has work to do
// when a bound lands exactly on the segment's own boundary: if that
// bound's side is excluded by closed, the segment's boundary row must
// be cut, so the cheap unmaterialized-return path is not safe.
func closureCoversBounds(selfStart, selfStop, startKey, stopKey Key, closed Closed, dtypes []DType) bool {
	if startKey != nil && clampCompare(startKey, selfStart, dtypes) == 0 &&
		closed != ClosedBoth && closed != ClosedLeft {
		return false
	}
	if stopKey != nil && clampCompare(stopKey, selfStop, dtypes) == 0 &&
		closed != ClosedBoth && closed != ClosedRight {
		return false
	}
	return true
}

// SaveSegment encodes and content-addresses every schema column of
// frame, writing each to segmentPod at its hashed path if not already
// present (§4.3 Save: "idempotent content-addressed write").
func SaveSegment(schema *Schema, frame *Frame, segmentPod POD) (map[string]string, error) {
	digests := make(map[string]string, len(schema.Columns))
	for _, c := range schema.Columns {
		arr, err := frame.Column(c.Name)
		if err != nil {
			return nil, err
		}
		buf, err := schema.EncodeColumn(c.Name, arr)
		if err != nil {
			return nil, err
		}
		digest := digestHex(buf)
		if _, err := segmentPod.Write(hashedPath(digest), buf); err != nil {
			return nil, err
		}
		digests[c.Name] = digest
	}
	return digests, nil
}
