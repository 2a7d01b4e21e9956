// Index-column tuples used as revision and segment boundaries (§3:
// "the index key is the tuple of index-column values at a row").
package strata

// Key is the tuple of index-column values identifying a row's
// position. Elements follow the native Get representation of the
// corresponding dtype (see Array.Get).
type Key []any

// Compare orders two keys lexicographically over dtypes, the
// column-wise dtypes of the index columns in schema order. When two
// keys of unequal length agree over their shared prefix, the shorter
// key orders first. Prefix-only ("clamped") boundary comparisons
// (§4.5) go through clampCompare, which truncates both keys first.
func (k Key) Compare(other Key, dtypes []DType) int {
	n := len(k)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if c := compareElem(dtypes[i], k[i], other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k) < len(other):
		return -1
	case len(k) > len(other):
		return 1
	default:
		return 0
	}
}

// Clamp truncates k to its first n elements, the Go equivalent of the
// original's slice-based key truncation used before an intersect
// comparison against a shorter boundary key.
func (k Key) Clamp(n int) Key {
	if n >= len(k) {
		return k
	}
	return k[:n]
}

// Equal reports whether two keys have identical elements.
func (k Key) Equal(other Key, dtypes []DType) bool {
	return len(k) == len(other) && k.Compare(other, dtypes) == 0
}
