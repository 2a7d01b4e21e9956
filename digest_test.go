package strata

import "testing"

func TestDigestHexIsDeterministic(t *testing.T) {
	a := digestHex([]byte("hello"))
	b := digestHex([]byte("hello"))
	if a != b {
		t.Fatalf("digestHex must be deterministic: %q != %q", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected 40 hex chars, got %d", len(a))
	}
	if digestHex([]byte("world")) == a {
		t.Fatal("distinct inputs should not collide in this test")
	}
}

func TestHashedPathFanOut(t *testing.T) {
	digest := digestHex([]byte("x"))
	p := hashedPath(digest)
	want := digest[0:2] + "/" + digest[2:4] + "/" + digest[4:]
	if p != want {
		t.Fatalf("got %q want %q", p, want)
	}
	if unhashPath(p) != digest {
		t.Fatalf("unhashPath(hashedPath(d)) = %q, want %q", unhashPath(p), digest)
	}
}

func TestDigestBloomAddAndContain(t *testing.T) {
	b := newDigestBloom()
	digests := []string{digestHex([]byte("a")), digestHex([]byte("b")), digestHex([]byte("c"))}
	for _, d := range digests {
		b.Add(d)
	}
	for _, d := range digests {
		if !b.MightContain(d) {
			t.Fatalf("expected bloom to report %q as present after Add", d)
		}
	}
}

func TestDigestBloomLikelyAbsent(t *testing.T) {
	b := newDigestBloom()
	b.Add(digestHex([]byte("only-this-one")))
	if b.MightContain(digestHex([]byte("definitely-not-added"))) {
		t.Skip("bloom false positive on this input, not a correctness failure")
	}
}

func TestSchemaCacheMemoizesByText(t *testing.T) {
	c := newSchemaCache()
	text := "timestamp timestamp*\nvalue f8"
	s1, err := c.get(text)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := c.get(text)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("expected identical schema text to return the cached pointer")
	}
}

func TestSchemaCacheDistinctTextNotShared(t *testing.T) {
	c := newSchemaCache()
	s1, err := c.get("a i64*")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := c.get("b i64*")
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("distinct schema text must not share a cached pointer")
	}
	if s1.Columns[0].Name != "a" || s2.Columns[0].Name != "b" {
		t.Fatalf("unexpected columns: %+v %+v", s1.Columns, s2.Columns)
	}
}
