package strata

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestForEachSequential(t *testing.T) {
	var order []int
	err := forEach(RuntimeConfig{}, []int{1, 2, 3}, func(i int) error {
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("expected sequential order %v, got %v", want, order)
		}
	}
}

func TestForEachThreadedRunsAll(t *testing.T) {
	var count int64
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	err := forEach(RuntimeConfig{Threaded: true, PoolSize: 4}, items, func(int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(len(items)) {
		t.Fatalf("expected all %d items processed, got %d", len(items), count)
	}
}

func TestForEachPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := forEach(RuntimeConfig{}, []int{1, 2, 3}, func(i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected forEach to propagate the error, got %v", err)
	}
}

func TestForEachThreadedPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	err := forEach(RuntimeConfig{Threaded: true, PoolSize: 4}, items, func(i int) error {
		if i == 10 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected forEach to propagate the error, got %v", err)
	}
}

func TestRuntimeConfigWithDefaults(t *testing.T) {
	cfg := RuntimeConfig{}.withDefaults()
	if cfg.PoolSize != 8 {
		t.Fatalf("expected default PoolSize 8, got %d", cfg.PoolSize)
	}
	if cfg.ReadBuffer != 64*1024 {
		t.Fatalf("expected default ReadBuffer 65536, got %d", cfg.ReadBuffer)
	}

	explicit := RuntimeConfig{PoolSize: 2, ReadBuffer: 1024}.withDefaults()
	if explicit.PoolSize != 2 || explicit.ReadBuffer != 1024 {
		t.Fatalf("withDefaults must not override explicit values: %+v", explicit)
	}
}
