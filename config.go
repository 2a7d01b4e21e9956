// RuntimeConfig: the process-local knobs that replace the original's
// process-global settings (§9 design note, §10.3).
package strata

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RuntimeConfig carries the logger and concurrency knobs a Series (or
// Collection/Repository) runs with. A zero-value RuntimeConfig is
// valid: nil Logger means silence, Threaded false means sequential
// POD access.
type RuntimeConfig struct {
	// Logger receives Series write (debug), squash and gc progress.
	// Pull, changelog branch merges and POD errors are not logged.
	// Nil disables logging entirely.
	Logger *zap.Logger

	// Threaded switches the per-label squash fan-out of Collection and
	// Repository from sequential to errgroup-parallel. Segment column
	// reads and writes always run sequentially.
	Threaded bool

	// PoolSize bounds concurrent goroutines when Threaded; defaults
	// to 8 when unset.
	PoolSize int

	// ReadBuffer is a read-buffer size; defaults to 64KiB when unset.
	// No POD implementation currently reads it.
	ReadBuffer int
}

// withDefaults fills in the zero-value fields the same way the
// teacher's Open zero-fills HashAlgorithm/ReadBuffer/MaxRecordSize.
func (c RuntimeConfig) withDefaults() RuntimeConfig {
	if c.PoolSize <= 0 {
		c.PoolSize = 8
	}
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = 64 * 1024
	}
	return c
}

// forEach runs fn over each item, sequentially or via an
// errgroup-bounded worker pool depending on cfg.Threaded.
func forEach[T any](cfg RuntimeConfig, items []T, fn func(T) error) error {
	cfg = cfg.withDefaults()
	if !cfg.Threaded || len(items) <= 1 {
		for _, it := range items {
			if err := fn(it); err != nil {
				return err
			}
		}
		return nil
	}
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.PoolSize)
	for _, it := range items {
		it := it
		g.Go(func() error { return fn(it) })
	}
	return g.Wait()
}
