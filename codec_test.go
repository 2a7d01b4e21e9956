package strata

import "testing"

func TestCodecRawRoundTrip(t *testing.T) {
	a := &numArray[int64]{dt: DInt64, vals: []int64{1, -2, 3, 1 << 40}}
	buf, err := encodeChain(a, []CodecKind{CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeChain(DInt64, buf, []CodecKind{CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	if !arrayEqual(a, out) {
		t.Fatalf("round trip mismatch: got %v", out)
	}
}

func TestCodecZstdRawRoundTrip(t *testing.T) {
	a := &numArray[float64]{dt: DFloat64, vals: []float64{1.5, -2.25, 3.0}}
	buf, err := encodeChain(a, []CodecKind{CodecZstd, CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeChain(DFloat64, buf, []CodecKind{CodecZstd, CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	if !arrayEqual(a, out) {
		t.Fatalf("round trip mismatch: got %v", out)
	}
}

func TestCodecGzipRawRoundTrip(t *testing.T) {
	a := &numArray[int32]{dt: DInt32, vals: []int32{10, 20, 30}}
	buf, err := encodeChain(a, []CodecKind{CodecGzip, CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeChain(DInt32, buf, []CodecKind{CodecGzip, CodecRaw})
	if err != nil {
		t.Fatal(err)
	}
	if !arrayEqual(a, out) {
		t.Fatalf("round trip mismatch: got %v", out)
	}
}

func TestCodecVlenUTF8RoundTrip(t *testing.T) {
	a := &strArray{vals: []string{"alpha", "", "bravo charlie"}}
	buf, err := encodeChain(a, []CodecKind{CodecVlenUTF8})
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeChain(DString, buf, []CodecKind{CodecVlenUTF8})
	if err != nil {
		t.Fatal(err)
	}
	if !arrayEqual(a, out) {
		t.Fatalf("round trip mismatch: got %v", out)
	}
}

func TestCodecDeltaRoundTrip(t *testing.T) {
	a := &numArray[int64]{dt: DTimestamp, vals: []int64{1000, 1005, 1005, 2000}}
	buf, err := encodeChain(a, []CodecKind{CodecDelta})
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeChain(DTimestamp, buf, []CodecKind{CodecDelta})
	if err != nil {
		t.Fatal(err)
	}
	if !arrayEqual(a, out) {
		t.Fatalf("round trip mismatch: got %v", out)
	}
}

func TestCodecVlenUTF8RequiresStringArray(t *testing.T) {
	a := &numArray[int32]{dt: DInt32, vals: []int32{1}}
	if _, err := encodeChain(a, []CodecKind{CodecVlenUTF8}); err == nil {
		t.Fatal("expected error encoding a non-string array as vlen-utf8")
	}
}
