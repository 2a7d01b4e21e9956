package strata

import "testing"

func TestEncodeDecodeRevisionRoundTrip(t *testing.T) {
	schema := tsValueSchema(t)
	rev := Revision{
		Start:   Key{int64(100)},
		Stop:    Key{int64(900)},
		Len:     42,
		Digests: map[string]string{"timestamp": digestHex([]byte("a")), "value": digestHex([]byte("b"))},
		Epoch:   1700000000000,
	}
	buf, err := EncodeRevision(schema, rev)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRevision(schema, buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Start[0] != rev.Start[0] || got.Stop[0] != rev.Stop[0] {
		t.Fatalf("bounds mismatch: got %+v", got)
	}
	if got.Len != rev.Len || got.Epoch != rev.Epoch {
		t.Fatalf("scalar fields mismatch: got %+v", got)
	}
	for k, v := range rev.Digests {
		if got.Digests[k] != v {
			t.Fatalf("digest %q mismatch: got %q want %q", k, got.Digests[k], v)
		}
	}
}
