package strata

import "testing"

func tsValueSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]Column{
		{Name: "timestamp", DType: DTimestamp, Index: true},
		{Name: "value", DType: DFloat64},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSchemaDumpsLoadsRoundTrip(t *testing.T) {
	s := tsValueSchema(t)
	text := s.Dumps()
	loaded, err := LoadSchema(text)
	if err != nil {
		t.Fatalf("LoadSchema(%q): %v", text, err)
	}
	if loaded.Dumps() != text {
		t.Fatalf("round trip mismatch:\n%q\n%q", text, loaded.Dumps())
	}
}

func TestSchemaLoadsExplicitCodecs(t *testing.T) {
	text := "timestamp timestamp* | delta\nvalue f8"
	s, err := LoadSchema(text)
	if err != nil {
		t.Fatal(err)
	}
	col, ok := s.Column("timestamp")
	if !ok || len(col.Codecs) != 1 || col.Codecs[0] != CodecDelta {
		t.Fatalf("expected explicit delta codec, got %+v", col)
	}
}

func TestSchemaRequiresIndexColumn(t *testing.T) {
	_, err := NewSchema([]Column{{Name: "value", DType: DFloat64}})
	if err == nil {
		t.Fatal("expected error for schema with no index column")
	}
}

func TestSchemaRejectsDuplicateColumn(t *testing.T) {
	_, err := NewSchema([]Column{
		{Name: "ts", DType: DTimestamp, Index: true},
		{Name: "ts", DType: DInt64},
	})
	if err == nil {
		t.Fatal("expected error for duplicate column name")
	}
}

func TestSchemaIndexColumnsSortFirst(t *testing.T) {
	s, err := NewSchema([]Column{
		{Name: "value", DType: DFloat64},
		{Name: "ts", DType: DTimestamp, Index: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Columns[0].Name != "ts" {
		t.Fatalf("expected index column first, got %+v", s.Columns)
	}
}

func TestSchemaSerializeDeserializeKey(t *testing.T) {
	s := tsValueSchema(t)
	k := Key{int64(123456)}
	buf, err := s.SerializeKey(k)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.DeserializeKey(buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != k[0] {
		t.Fatalf("key round trip mismatch: got %v want %v", got, k)
	}
}
