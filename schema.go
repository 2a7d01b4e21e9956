// Schema: the declarative column list driving codec, frame and
// digest behavior (§3, §4.1, §6 "Schema text format").
package strata

import (
	"fmt"
	"strings"
)

// Column describes one schema column.
type Column struct {
	Name   string
	DType  DType
	Codecs []CodecKind
	Index  bool
}

// Schema is an ordered column list. Index columns always sort first
// (§3: "index columns come first in sort order").
type Schema struct {
	Columns []Column
}

// NewSchema builds and validates a Schema, reordering so index
// columns lead, matching the sort-key ordering the rest of the
// package assumes.
func NewSchema(cols []Column) (*Schema, error) {
	var idx, rest []Column
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrSchema, c.Name)
		}
		seen[c.Name] = true
		if len(c.Codecs) == 0 {
			c.Codecs = c.DType.defaultCodecs()
		}
		if c.Index {
			idx = append(idx, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: schema requires at least one index column", ErrSchema)
	}
	return &Schema{Columns: append(idx, rest...)}, nil
}

// IndexColumns returns the leading index columns, in sort-key order.
func (s *Schema) IndexColumns() []Column {
	var out []Column
	for _, c := range s.Columns {
		if !c.Index {
			break
		}
		out = append(out, c)
	}
	return out
}

// IndexDTypes returns the dtypes of the index columns, the slice
// Key.Compare needs for element-wise comparison.
func (s *Schema) IndexDTypes() []DType {
	idx := s.IndexColumns()
	out := make([]DType, len(idx))
	for i, c := range idx {
		out[i] = c.DType
	}
	return out
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ClampKey truncates key to the first n elements. The intersect
// comparison in Series.Read does not call it; it uses clampCompare.
func (s *Schema) ClampKey(k Key, n int) Key {
	return k.Clamp(n)
}

// Dumps renders the schema's canonical textual form (§6): one column
// per line, "name dtype[*][codec1 codec2 …]", an optional leading "|"
// separating dtype from an explicit codec list.
func (s *Schema) Dumps() string {
	var b strings.Builder
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.DType.String())
		if c.Index {
			b.WriteByte('*')
		}
		if !isDefaultCodecs(c.DType, c.Codecs) {
			b.WriteString(" |")
			for _, ck := range c.Codecs {
				b.WriteByte(' ')
				b.WriteString(ck.String())
			}
		}
	}
	return b.String()
}

func isDefaultCodecs(dt DType, chain []CodecKind) bool {
	def := dt.defaultCodecs()
	if len(def) != len(chain) {
		return false
	}
	for i := range def {
		if def[i] != chain[i] {
			return false
		}
	}
	return true
}

// LoadSchema parses a schema's canonical textual form (§6), the
// inverse of Dumps.
func LoadSchema(text string) (*Schema, error) {
	var cols []Column
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		col, err := parseColumnLine(line)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return NewSchema(cols)
}

func parseColumnLine(line string) (Column, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Column{}, fmt.Errorf("%w: malformed schema line %q", ErrSchema, line)
	}
	name := fields[0]
	dtypeTok := fields[1]
	index := strings.HasSuffix(dtypeTok, "*")
	if index {
		dtypeTok = strings.TrimSuffix(dtypeTok, "*")
	}
	dt, err := ParseDType(dtypeTok)
	if err != nil {
		return Column{}, err
	}
	col := Column{Name: name, DType: dt, Index: index}
	rest := fields[2:]
	if len(rest) > 0 && rest[0] == "|" {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		codecs := make([]CodecKind, 0, len(rest))
		for _, tok := range rest {
			ck, err := ParseCodecKind(tok)
			if err != nil {
				return Column{}, err
			}
			codecs = append(codecs, ck)
		}
		col.Codecs = codecs
	}
	return col, nil
}

// EncodeColumn runs a column's codec chain forward.
func (s *Schema) EncodeColumn(name string, a Array) ([]byte, error) {
	c, ok := s.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown column %q", ErrSchema, name)
	}
	return encodeChain(a, c.Codecs)
}

// DecodeColumn runs a column's codec chain in reverse.
func (s *Schema) DecodeColumn(name string, buf []byte) (Array, error) {
	c, ok := s.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown column %q", ErrSchema, name)
	}
	return decodeChain(c.DType, buf, c.Codecs)
}

// SerializeKey packs an index key's elements as raw fixed-width bytes
// concatenated in schema order, the revision start/stop encoding
// named in §3 ("serialized-index-tuple").
func (s *Schema) SerializeKey(k Key) ([]byte, error) {
	idx := s.IndexColumns()
	if len(k) > len(idx) {
		return nil, fmt.Errorf("%w: key has %d elements, schema has %d index columns", ErrSchema, len(k), len(idx))
	}
	var out []byte
	for i, v := range k {
		dt := idx[i].DType
		w := dt.fixedWidth()
		if w == 0 {
			// strings are not valid index elements in the raw tuple
			// encoding; vlen-prefix them inline instead.
			sv := v.(string)
			buf := make([]byte, 4+len(sv))
			putUint32(buf, uint32(len(sv)))
			copy(buf[4:], sv)
			out = append(out, buf...)
			continue
		}
		buf := make([]byte, w)
		putRawElem(buf, dt, v)
		out = append(out, buf...)
	}
	return out, nil
}

// DeserializeKey is the inverse of SerializeKey, decoding exactly n
// leading index columns from buf.
func (s *Schema) DeserializeKey(buf []byte, n int) (Key, error) {
	idx := s.IndexColumns()
	if n > len(idx) {
		return nil, fmt.Errorf("%w: requested %d index columns, schema has %d", ErrSchema, n, len(idx))
	}
	k := make(Key, n)
	for i := 0; i < n; i++ {
		dt := idx[i].DType
		w := dt.fixedWidth()
		if w == 0 {
			if len(buf) < 4 {
				return nil, fmt.Errorf("%w: truncated key", ErrCodec)
			}
			slen := int(getUint32(buf))
			buf = buf[4:]
			if len(buf) < slen {
				return nil, fmt.Errorf("%w: truncated key", ErrCodec)
			}
			k[i] = string(buf[:slen])
			buf = buf[slen:]
			continue
		}
		if len(buf) < w {
			return nil, fmt.Errorf("%w: truncated key", ErrCodec)
		}
		arr, err := decodeRaw(dt, buf[:w])
		if err != nil {
			return nil, err
		}
		k[i] = arr.Get(0)
		buf = buf[w:]
	}
	return k, nil
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getUint32(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}
