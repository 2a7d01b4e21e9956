// Query: user-facing range/projection/pagination builder delegating
// to Series (§4.6).
package strata

import "fmt"

// Query accumulates read parameters and resolves them against a
// Series. Zero value has no bounds: unbounded range, closed=left,
// no limit/offset, every column selected.
type Query struct {
	series *Series

	start, stop   Key
	after, before *int64
	closed        Closed
	limit, offset int
	selectCols    []string
}

// NewQuery starts a Query bound to series, closed defaulting to left
// per §4.5's Read signature default.
func NewQuery(series *Series) *Query {
	return &Query{series: series, closed: ClosedLeft}
}

// queryParams is the accumulator payload of With (§4.6 "@ {…}"); zero
// fields are left unchanged by With.
type queryParams struct {
	Start, Stop   Key
	After, Before *int64
	Closed        *Closed
	Limit, Offset *int
	Select        []string
}

// With merges params into a new Query, the Go stand-in for the
// original's `@` operator overload (operator overloading isn't
// available in Go) (§12).
func (q *Query) With(p queryParams) *Query {
	next := *q
	if p.Start != nil {
		next.start = p.Start
	}
	if p.Stop != nil {
		next.stop = p.Stop
	}
	if p.After != nil {
		next.after = p.After
	}
	if p.Before != nil {
		next.before = p.Before
	}
	if p.Closed != nil {
		next.closed = *p.Closed
	}
	if p.Limit != nil {
		next.limit = *p.Limit
	}
	if p.Offset != nil {
		next.offset = *p.Offset
	}
	if p.Select != nil {
		next.selectCols = p.Select
	}
	return &next
}

// Slice applies a positional half-open range, the "[slice]" sugar
// (§4.6), expressed over already-resolved segment order rather than
// index keys: it is equivalent to limit/offset over the full read.
func (q *Query) Slice(lo, hi int) *Query {
	next := *q
	next.offset = lo
	if hi > lo {
		next.limit = hi - lo
	}
	return &next
}

// Columns applies the "[columns]" projection sugar (§4.6).
func (q *Query) Columns(names ...string) *Query {
	next := *q
	next.selectCols = names
	return &next
}

func (q *Query) resolve() ([]SegmentSlice, error) {
	return q.series.Read(q.start, q.stop, q.after, q.before, q.closed)
}

// Len returns the sum of resolved segment-slice lengths, after
// offset and limit (§4.6 "__len__"). Segments wholly inside the range
// are counted from their revision length; a segment the range cuts
// partway is decoded during resolution, as Series.Read does.
func (q *Query) Len() (int, error) {
	slices, err := q.resolve()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range slices {
		n += s.Segment.Length()
	}
	if q.limit > 0 && n-q.offset > q.limit {
		n = q.limit
	} else {
		n -= q.offset
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Frame materializes the query's resolved segment slices into a
// single Frame, applying select/limit/offset (§4.6 "frame()").
func (q *Query) Frame() (*Frame, error) {
	slices, err := q.resolve()
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, len(slices))
	for i, s := range slices {
		segs[i] = s.Segment
	}
	return FrameFromSegments(q.series.Schema, segs, q.limit, q.offset, q.selectCols)
}

// Paginate splits the query's resolved range into successive Frames
// of at most step rows each (§4.6 "paginate(step)").
func (q *Query) Paginate(step int) ([]*Frame, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: paginate step must be positive", ErrValue)
	}
	total, err := q.Len()
	if err != nil {
		return nil, err
	}
	var pages []*Frame
	for off := 0; off < total; off += step {
		page := q.Slice(off, off+step)
		page.offset, page.limit = q.offset+off, step
		f, err := page.Frame()
		if err != nil {
			return nil, err
		}
		pages = append(pages, f)
	}
	return pages, nil
}

// FrameFromSegments concatenates segments in order, applying
// streaming-style limit/offset (subtracting per segment) and
// projecting select columns (§4.6 "Frame.from_segments"). Unlike the
// original, a projection must keep at least one index column: the
// resulting Frame still has to support key-ordered Concat/slice, which
// only index columns make possible.
func FrameFromSegments(schema *Schema, segments []Segment, limit, offset int, selectCols []string) (*Frame, error) {
	projSchema := schema
	if len(selectCols) > 0 {
		var cols []Column
		hasIndex := false
		for _, name := range selectCols {
			c, ok := schema.Column(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown select column %q", ErrValue, name)
			}
			cols = append(cols, c)
			hasIndex = hasIndex || c.Index
		}
		if !hasIndex {
			return nil, fmt.Errorf("%w: column projection must keep at least one index column", ErrValue)
		}
		var err error
		projSchema, err = NewSchema(cols)
		if err != nil {
			return nil, err
		}
	}

	var frames []*Frame
	remainingOffset, remainingLimit := offset, limit
	for _, seg := range segments {
		n := seg.Length()
		if remainingOffset >= n {
			remainingOffset -= n
			continue
		}
		lo := remainingOffset
		remainingOffset = 0
		hi := n
		if remainingLimit > 0 {
			if hi-lo > remainingLimit {
				hi = lo + remainingLimit
			}
		}
		cols := make(map[string]Array, len(projSchema.Columns))
		for _, c := range projSchema.Columns {
			a, err := seg.Read(schema, c.Name)
			if err != nil {
				return nil, err
			}
			cols[c.Name] = a.Slice(lo, hi)
		}
		f, err := NewFrame(projSchema, cols)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		if remainingLimit > 0 {
			remainingLimit -= hi - lo
			if remainingLimit <= 0 {
				break
			}
		}
	}
	return Concat(projSchema, frames)
}
