package strata

import "testing"

func buildFrame(t *testing.T, ts []int64, vals []float64) *Frame {
	t.Helper()
	schema := tsValueSchema(t)
	f, err := NewFrame(schema, map[string]Array{
		"timestamp": &numArray[int64]{dt: DTimestamp, vals: append([]int64(nil), ts...)},
		"value":     &numArray[float64]{dt: DFloat64, vals: append([]float64(nil), vals...)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFrameCheckSorted(t *testing.T) {
	f := buildFrame(t, []int64{1, 2, 3}, []float64{1, 2, 3})
	if err := f.CheckSorted(); err != nil {
		t.Fatal(err)
	}
	bad := buildFrame(t, []int64{1, 1, 3}, []float64{1, 2, 3})
	if err := bad.CheckSorted(); err == nil {
		t.Fatal("expected error for duplicate index key")
	}
}

func TestFrameIndexAndSlice(t *testing.T) {
	f := buildFrame(t, []int64{10, 20, 30, 40}, []float64{1, 2, 3, 4})
	if pos := f.Index(Key{int64(20)}, false); pos != 1 {
		t.Fatalf("expected position 1, got %d", pos)
	}
	if pos := f.Index(Key{int64(20)}, true); pos != 2 {
		t.Fatalf("expected position 2 for right search, got %d", pos)
	}
	sliced := f.Slice(1, 3)
	if sliced.Length() != 2 {
		t.Fatalf("expected length 2, got %d", sliced.Length())
	}
}

func TestFrameIndexSliceClosedVariants(t *testing.T) {
	f := buildFrame(t, []int64{1, 2, 3, 4}, []float64{10, 20, 30, 40})

	left := f.IndexSlice(Key{int64(2)}, Key{int64(3)}, ClosedLeft)
	assertTimestamps(t, left, []int64{2})

	both := f.IndexSlice(Key{int64(2)}, Key{int64(3)}, ClosedBoth)
	assertTimestamps(t, both, []int64{2, 3})

	right := f.IndexSlice(Key{int64(2)}, Key{int64(3)}, ClosedRight)
	assertTimestamps(t, right, []int64{3})

	none := f.IndexSlice(Key{int64(2)}, Key{int64(3)}, ClosedNone)
	assertTimestamps(t, none, nil)
}

func TestFramePointQueryUsesClosedBoth(t *testing.T) {
	f := buildFrame(t, []int64{1, 2, 3}, []float64{10, 20, 30})
	point := f.IndexSlice(Key{int64(2)}, nil, ClosedLeft)
	assertTimestamps(t, point, []int64{2})
}

func assertTimestamps(t *testing.T, f *Frame, want []int64) {
	t.Helper()
	arr, err := f.Column("timestamp")
	if err != nil {
		t.Fatal(err)
	}
	if arr.Len() != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), arr.Len())
	}
	for i, w := range want {
		if arr.Get(i).(int64) != w {
			t.Fatalf("row %d: got %v want %v", i, arr.Get(i), w)
		}
	}
}

func TestFrameEqual(t *testing.T) {
	a := buildFrame(t, []int64{1, 2}, []float64{1, 2})
	b := buildFrame(t, []int64{1, 2}, []float64{1, 2})
	c := buildFrame(t, []int64{1, 2}, []float64{1, 3})
	if !a.Equal(b) {
		t.Fatal("expected equal frames to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected differing frames to compare unequal")
	}
}

func TestFrameRowDict(t *testing.T) {
	f := buildFrame(t, []int64{1, 2, 3}, []float64{10, 20, 30})
	row := f.RowDict(Key{int64(2)})
	if row == nil || row["value"].(float64) != 20 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if f.RowDict(Key{int64(99)}) != nil {
		t.Fatal("expected nil for missing key")
	}
}

func TestConcatLastWriterWins(t *testing.T) {
	schema := tsValueSchema(t)
	older := buildFrame(t, []int64{1, 2, 3}, []float64{1, 1, 1})
	newer := buildFrame(t, []int64{2, 3, 4}, []float64{2, 2, 2})
	merged, err := Concat(schema, []*Frame{older, newer})
	if err != nil {
		t.Fatal(err)
	}
	assertTimestamps(t, merged, []int64{1, 2, 3, 4})
	vals, _ := merged.Column("value")
	want := []float64{1, 2, 2, 2}
	for i, w := range want {
		if vals.Get(i).(float64) != w {
			t.Fatalf("row %d: got %v want %v (last-writer-wins violated)", i, vals.Get(i), w)
		}
	}
}

func TestFrameEvalComparison(t *testing.T) {
	f := buildFrame(t, []int64{1, 2, 3}, []float64{10, 20, 30})
	schema, err := NewSchema([]Column{
		{Name: "timestamp", DType: DTimestamp, Index: true},
		{Name: "value", DType: DFloat64},
		{Name: "threshold", DType: DFloat64},
	})
	if err != nil {
		t.Fatal(err)
	}
	wide, err := NewFrame(schema, map[string]Array{
		"timestamp": f.Columns["timestamp"],
		"value":     f.Columns["value"],
		"threshold": &numArray[float64]{dt: DFloat64, vals: []float64{15, 15, 15}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := wide.Eval(">", "value", "threshold")
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{false, true, true}
	for i, w := range want {
		if out.Get(i).(bool) != w {
			t.Fatalf("row %d: got %v want %v", i, out.Get(i), w)
		}
	}
}
