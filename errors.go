// Package strata is a versioned, content-addressed store for ordered
// columnar time-series. Data is organised as a repository of named
// collections; each collection holds labeled series sharing a schema;
// each series is a totally ordered, index-keyed sequence of rows.
//
// Writes produce immutable, content-addressed segments and are linked
// into a hash-chained changelog. Reads resolve a point-in-time or
// range-in-time view by merging the segments selected across the
// revision set, last-writer-wins on overlapping index ranges.
package strata

import "errors"

// Sentinel errors returned by strata operations. Pure compute errors
// (SchemaError, CodecError, ValueError) are fatal to the call and are
// always one of these, optionally wrapped with %w for detail. IO
// failures from the POD layer are surfaced unwrapped — retry/backoff
// is the caller's responsibility.
var (
	// ErrSchema covers dtype mismatch, missing column, an unsorted
	// frame, or a duplicate label on collection/repository create.
	ErrSchema = errors.New("strata: schema error")

	// ErrNotFound covers a missing blob, commit, or label.
	ErrNotFound = errors.New("strata: not found")

	// ErrConflict is returned when creating a label that already exists.
	ErrConflict = errors.New("strata: conflict")

	// ErrCodec covers a corrupt or undecodable blob.
	ErrCodec = errors.New("strata: codec error")

	// ErrValue covers an invalid query parameter: unknown key, bad
	// closed value, non-positive pagination step.
	ErrValue = errors.New("strata: invalid value")
)
