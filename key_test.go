package strata

import "testing"

func TestKeyComparePrefix(t *testing.T) {
	dtypes := []DType{DInt64, DInt64}
	full := Key{int64(5), int64(10)}
	prefix := Key{int64(5)}
	if full.Compare(prefix, dtypes) <= 0 {
		t.Fatal("full key sharing a prefix should compare > the shorter prefix key")
	}
	if prefix.Compare(full, dtypes) >= 0 {
		t.Fatal("shorter prefix key should compare < the full key sharing it")
	}
}

func TestKeyCompareEqual(t *testing.T) {
	dtypes := []DType{DInt64}
	a := Key{int64(7)}
	b := Key{int64(7)}
	if a.Compare(b, dtypes) != 0 {
		t.Fatal("equal single-element keys should compare equal")
	}
}

func TestKeyClamp(t *testing.T) {
	k := Key{int64(1), int64(2), int64(3)}
	clamped := k.Clamp(2)
	if len(clamped) != 2 || clamped[0] != int64(1) || clamped[1] != int64(2) {
		t.Fatalf("unexpected clamp result: %v", clamped)
	}
	if len(k.Clamp(10)) != 3 {
		t.Fatal("clamping beyond length should be a no-op")
	}
}
