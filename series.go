// Series: binds one changelog and one segment POD to one schema,
// exposing read/write/squash/pull/revisions (§4.5).
package strata

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Series is the unit of write/read/squash/pull (§3, §4.5).
type Series struct {
	Schema     *Schema
	Changelog  *Changelog
	SegmentPOD POD
	Config     RuntimeConfig
}

// digestsOf collects every column digest referenced across nodes.
func (s *Series) digestsOf(nodes []commitNode) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, n := range nodes {
		payload, err := s.Changelog.ReadPayload(n)
		if err != nil {
			return nil, err
		}
		rev, err := DecodeRevision(s.Schema, payload)
		if err != nil {
			return nil, err
		}
		for _, d := range rev.Digests {
			out[d] = true
		}
	}
	return out, nil
}

// NewSeries binds a schema, changelog and (typically shared, §4.5)
// segment POD into a Series.
func NewSeries(schema *Schema, changelog *Changelog, segmentPod POD, cfg RuntimeConfig) *Series {
	return &Series{Schema: schema, Changelog: changelog, SegmentPOD: segmentPod, Config: cfg}
}

// Write asserts frame is sorted, content-addresses each column,
// emits a revision, and commits it to the changelog (§4.5 Write).
func (s *Series) Write(frame *Frame, start, stop Key, parentCommit string) (string, error) {
	if err := frame.CheckSorted(); err != nil {
		return "", err
	}
	n := frame.Length()
	digests, err := SaveSegment(s.Schema, frame, s.SegmentPOD)
	if err != nil {
		return "", err
	}
	if start == nil && n > 0 {
		start = frame.KeyAt(0)
	}
	if stop == nil && n > 0 {
		stop = frame.KeyAt(n - 1)
	}
	rev := Revision{
		Start:   start,
		Stop:    stop,
		Len:     uint64(n),
		Digests: digests,
		Epoch:   time.Now().UTC().UnixMilli(),
	}
	payload, err := EncodeRevision(s.Schema, rev)
	if err != nil {
		return "", err
	}
	if s.Config.Logger != nil {
		s.Config.Logger.Debug("series write", zap.Int("rows", n))
	}
	return s.Changelog.Commit(payload, parentCommit)
}

// intersectRevision implements §4.5 step 1's intersect: prefix-aware
// comparison against unequal-length user keys (§13 Open Question).
func intersectRevision(rev Revision, start, stop Key, dtypes []DType) (ok bool, mstart, mstop Key) {
	okStart := stop == nil || clampCompare(rev.Start, stop, dtypes) <= 0
	okStop := start == nil || clampCompare(rev.Stop, start, dtypes) >= 0
	if !okStart || !okStop {
		return false, nil, nil
	}
	mstart = rev.Start
	if start != nil && clampCompare(start, rev.Start, dtypes) > 0 {
		mstart = start
	}
	mstop = rev.Stop
	if stop != nil && clampCompare(stop, rev.Stop, dtypes) < 0 {
		mstop = stop
	}
	return true, mstart, mstop
}

func hasLeftGap(mstart, start Key, dtypes []DType) bool {
	return start == nil || (mstart != nil && clampCompare(mstart, start, dtypes) > 0)
}

func hasRightGap(mstop, stop Key, dtypes []DType) bool {
	return stop == nil || (mstop != nil && clampCompare(mstop, stop, dtypes) < 0)
}

// currentClosed derives the closure used to materialize the matched
// segment's own slice, from the inherited closed and whether a left
// and/or right gap remains (§4.5 closure propagation table, "current"
// rows).
func currentClosed(closed Closed, leftGap, rightGap bool) Closed {
	switch closed {
	case ClosedLeft:
		if rightGap {
			return ClosedBoth
		}
		return ClosedLeft
	case ClosedRight:
		if leftGap {
			return ClosedBoth
		}
		return ClosedRight
	case ClosedBoth:
		return ClosedBoth
	default: // ClosedNone
		switch {
		case leftGap && rightGap:
			return ClosedBoth
		case leftGap:
			return ClosedLeft
		case rightGap:
			return ClosedRight
		default:
			return ClosedNone
		}
	}
}

// leftChildClosed derives the closed used for the left-gap recursion
// (§4.5 closure table, "left child" rows).
func leftChildClosed(closed Closed) Closed {
	switch closed {
	case ClosedBoth:
		return ClosedLeft
	case ClosedRight:
		return ClosedNone
	default:
		return closed
	}
}

// rightChildClosed derives the closed used for the right-gap
// recursion (§4.5 closure table, "right child" rows).
func rightChildClosed(closed Closed) Closed {
	switch closed {
	case ClosedBoth:
		return ClosedRight
	case ClosedLeft:
		return ClosedNone
	default:
		return closed
	}
}

// SegmentSlice pairs a resolved segment with the index bounds it was
// cut to, the unit Series.Read returns (§4.5 step 4: "sorted by
// segment start").
type SegmentSlice struct {
	Segment Segment
	Start   Key
	Stop    Key
}

// readCover implements §4.5 step 3, the recursive cover over revs
// (already filtered and reversed newest-first by the caller).
func (s *Series) readCover(revs []Revision, start, stop Key, closed Closed) ([]SegmentSlice, error) {
	if len(revs) == 0 {
		return nil, nil
	}
	dtypes := s.Schema.IndexDTypes()
	for pos, rev := range revs {
		ok, mstart, mstop := intersectRevision(rev, start, stop, dtypes)
		if !ok {
			continue
		}
		leftGap := hasLeftGap(mstart, start, dtypes)
		rightGap := hasRightGap(mstop, stop, dtypes)
		own := currentClosed(closed, leftGap, rightGap)

		seg := NewShallowSegment(s.SegmentPOD, rev.Digests, rev.Start, rev.Stop, int(rev.Len))
		sliced, err := seg.Slice(s.Schema, mstart, mstop, own)
		if err != nil {
			return nil, err
		}
		result := []SegmentSlice{{Segment: sliced, Start: mstart, Stop: mstop}}

		rest := revs[pos+1:]
		isPoint := start != nil && stop != nil && start.Equal(stop, dtypes)
		if !isPoint {
			if leftGap {
				left, err := s.readCover(rest, start, mstart, leftChildClosed(closed))
				if err != nil {
					return nil, err
				}
				result = append(left, result...)
			}
			if rightGap {
				right, err := s.readCover(rest, mstop, stop, rightChildClosed(closed))
				if err != nil {
					return nil, err
				}
				result = append(result, right...)
			}
		}
		return result, nil
	}
	return nil, nil
}

// Read resolves a range query into a sorted, non-overlapping set of
// segment slices (§4.5 Read).
func (s *Series) Read(start, stop Key, after, before *int64, closed Closed) ([]SegmentSlice, error) {
	nodes, err := s.Changelog.Walk()
	if err != nil {
		return nil, err
	}
	dtypes := s.Schema.IndexDTypes()

	var revs []Revision
	for _, n := range nodes {
		payload, err := s.Changelog.ReadPayload(n)
		if err != nil {
			return nil, err
		}
		rev, err := DecodeRevision(s.Schema, payload)
		if err != nil {
			return nil, err
		}
		if after != nil && rev.Epoch < *after {
			continue
		}
		if before != nil && rev.Epoch >= *before {
			continue
		}
		if ok, _, _ := intersectRevision(rev, start, stop, dtypes); !ok {
			continue
		}
		revs = append(revs, rev)
	}
	// Reverse so newer revisions are consumed first (§4.5 step 2).
	for i, j := 0, len(revs)-1; i < j; i, j = i+1, j-1 {
		revs[i], revs[j] = revs[j], revs[i]
	}

	slices, err := s.readCover(revs, start, stop, closed)
	if err != nil {
		return nil, err
	}
	sort.Slice(slices, func(i, j int) bool {
		return slices[i].Start.Compare(slices[j].Start, dtypes) < 0
	})
	return slices, nil
}

// Frame materializes a Read result into a single concatenated Frame,
// the core of Query.frame() (§4.6).
func (s *Series) Frame(start, stop Key, after, before *int64, closed Closed) (*Frame, error) {
	slices, err := s.Read(start, stop, after, before, closed)
	if err != nil {
		return nil, err
	}
	frames := make([]*Frame, 0, len(slices))
	for _, sl := range slices {
		f, err := materializeSlice(s.Schema, sl.Segment)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return Concat(s.Schema, frames)
}

func materializeSlice(schema *Schema, seg Segment) (*Frame, error) {
	cols := make(map[string]Array, len(schema.Columns))
	for _, c := range schema.Columns {
		a, err := seg.Read(schema, c.Name)
		if err != nil {
			return nil, err
		}
		cols[c.Name] = a
	}
	return NewFrame(schema, cols)
}

// Pull mirrors the underlying changelog then fetches any column blob
// referenced by a newly-pulled revision that isn't already present
// locally (§4.5 Pull). A bloom filter is seeded from the digests
// already referenced before the pull (§11). A digest the filter has
// not seen skips the POD existence check and is fetched directly; a
// MightContain hit is confirmed with IsFile before the fetch is
// skipped, so a false positive costs one redundant check and never a
// missed write.
func (s *Series) Pull(remote *Series) error {
	before, err := s.Changelog.nodes()
	if err != nil {
		return err
	}
	hadChild := make(map[string]bool, len(before))
	for _, n := range before {
		hadChild[n.child] = true
	}
	localDigests, err := s.digestsOf(before)
	if err != nil {
		return err
	}
	seen := newDigestBloom()
	for d := range localDigests {
		seen.Add(d)
	}

	if err := s.Changelog.Pull(remote.Changelog); err != nil {
		return err
	}

	after, err := s.Changelog.nodes()
	if err != nil {
		return err
	}
	for _, n := range after {
		if hadChild[n.child] {
			continue
		}
		payload, err := s.Changelog.ReadPayload(n)
		if err != nil {
			return err
		}
		rev, err := DecodeRevision(s.Schema, payload)
		if err != nil {
			return err
		}
		for _, digest := range rev.Digests {
			path := hashedPath(digest)
			if seen.MightContain(digest) && s.SegmentPOD.IsFile(path) {
				continue
			}
			blob, err := remote.SegmentPOD.Read(path)
			if err != nil {
				return err
			}
			if _, err := s.SegmentPOD.Write(path, blob); err != nil {
				return err
			}
			seen.Add(digest)
		}
	}
	return nil
}

// squashChunkSize is the row count per rewritten revision (§4.5
// Squash: "step = 500_000").
const squashChunkSize = 500_000

// Squash reads the entire series in chunks, writes each chunk as a
// new root revision, then truncates history down to just the
// rewritten commits (§4.5 Squash).
func (s *Series) Squash() error {
	full, err := s.Frame(nil, nil, nil, nil, ClosedBoth)
	if err != nil {
		return err
	}
	n := full.Length()
	var newIDs []string
	if n == 0 {
		if s.Config.Logger != nil {
			s.Config.Logger.Info("squash: empty series, truncating to nothing")
		}
		return s.Changelog.Truncate()
	}
	for lo := 0; lo < n; lo += squashChunkSize {
		hi := lo + squashChunkSize
		if hi > n {
			hi = n
		}
		chunk := full.Slice(lo, hi)
		id, err := s.Write(chunk, nil, nil, phi)
		if err != nil {
			return err
		}
		newIDs = append(newIDs, id)
	}
	if s.Config.Logger != nil {
		s.Config.Logger.Info("squash complete", zap.Int("revisions", len(newIDs)))
	}
	return s.Changelog.Truncate(newIDs...)
}

// Digests returns every column digest referenced by every revision in
// the changelog (supplemented feature, §12: "Series.Digests()",
// grounded on lakota/series.py digests()).
func (s *Series) Digests() (map[string]bool, error) {
	nodes, err := s.Changelog.Walk()
	if err != nil {
		return nil, err
	}
	return s.digestsOf(nodes)
}

// GC removes any blob under the series' segment POD whose digest is
// not referenced by any revision still reachable from the changelog.
// Best-effort (§12, §13): squash's own correctness invariant does not
// depend on GC ever running.
func (s *Series) GC() (int, error) {
	live, err := s.Digests()
	if err != nil {
		return 0, err
	}
	paths, err := s.SegmentPOD.Walk("", -1)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		digest := unhashPath(p)
		if live[digest] {
			continue
		}
		if err := s.SegmentPOD.Rm(p, false); err != nil {
			return removed, err
		}
		removed++
	}
	if s.Config.Logger != nil {
		s.Config.Logger.Info("gc complete", zap.Int("removed", removed))
	}
	return removed, nil
}

// unhashPath reverses hashedPath: "ab/12/cd34ef…" -> "ab12cd34ef…".
func unhashPath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			continue
		}
		out = append(out, p[i])
	}
	return string(out)
}
