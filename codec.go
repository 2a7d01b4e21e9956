// Column codecs (§4.1). A column's codec chain ends with one element
// stage (raw, delta or vlen-utf8) that turns the array into bytes; any
// codecs before it are byte compression stages (zstd, gzip). Encoding
// runs the last codec first and then the compression stages from the
// end of the list back to its start, so the first codec listed is the
// outermost layer; decoding undoes them in the opposite order.
//
// Encoder/decoder construction is expensive (internal state tables),
// so zstd's are built once at init and reused — the same reasoning
// the teacher applies to its own zstd handles. SpeedFastest mirrors
// the teacher's choice: columns are compressed on every write (hot
// path) and decompressed only on read (cold path).
package strata

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// CodecKind names one stage in a column's codec chain.
type CodecKind int

const (
	CodecRaw CodecKind = iota
	CodecZstd
	CodecGzip
	CodecDelta
	CodecVlenUTF8
)

var codecNames = map[CodecKind]string{
	CodecRaw:      "raw",
	CodecZstd:     "zstd",
	CodecGzip:     "gzip",
	CodecDelta:    "delta",
	CodecVlenUTF8: "vlen-utf8",
}

var namesToCodec = func() map[string]CodecKind {
	m := make(map[string]CodecKind, len(codecNames))
	for k, v := range codecNames {
		m[v] = k
	}
	return m
}()

func (c CodecKind) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}
	return fmt.Sprintf("codec(%d)", int(c))
}

// ParseCodecKind parses a schema-text codec token.
func ParseCodecKind(s string) (CodecKind, error) {
	c, ok := namesToCodec[s]
	if !ok {
		return 0, fmt.Errorf("%w: unknown codec %q", ErrSchema, s)
	}
	return c, nil
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodeRaw packs a numeric array's elements little-endian, one fixed
// width slot per element; bool packs as one byte per element. String
// arrays have no raw width and are rejected; they go through vlen-utf8.
func encodeRaw(a Array) ([]byte, error) {
	w := a.DType().fixedWidth()
	if w == 0 {
		return nil, fmt.Errorf("%w: dtype %v has no raw width", ErrCodec, a.DType())
	}
	buf := make([]byte, a.Len()*w)
	for i := 0; i < a.Len(); i++ {
		putRawElem(buf[i*w:(i+1)*w], a.DType(), a.Get(i))
	}
	return buf, nil
}

func putRawElem(dst []byte, dt DType, v any) {
	switch dt {
	case DBool:
		if v.(bool) {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case DInt8:
		dst[0] = byte(v.(int8))
	case DInt16:
		binary.LittleEndian.PutUint16(dst, uint16(v.(int16)))
	case DInt32:
		binary.LittleEndian.PutUint32(dst, uint32(v.(int32)))
	case DInt64:
		binary.LittleEndian.PutUint64(dst, uint64(v.(int64)))
	case DTimestamp:
		binary.LittleEndian.PutUint64(dst, uint64(v.(int64)))
	case DDate:
		binary.LittleEndian.PutUint32(dst, uint32(v.(int32)))
	case DFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v.(float32)))
	case DFloat64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v.(float64)))
	default:
		panic(fmt.Sprintf("strata: dtype %v has no raw encoding", dt))
	}
}

func decodeRaw(dt DType, buf []byte) (Array, error) {
	w := dt.fixedWidth()
	if w == 0 {
		return nil, fmt.Errorf("%w: dtype %v has no raw width", ErrCodec, dt)
	}
	if len(buf)%w != 0 {
		return nil, fmt.Errorf("%w: raw buffer length %d not a multiple of width %d", ErrCodec, len(buf), w)
	}
	n := len(buf) / w
	arr := NewArray(dt)
	switch a := arr.(type) {
	case *numArray[int8]:
		a.vals = make([]int8, n)
		for i := range a.vals {
			a.vals[i] = int8(buf[i])
		}
	case *numArray[int16]:
		a.vals = make([]int16, n)
		for i := range a.vals {
			a.vals[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		}
	case *numArray[int32]:
		a.vals = make([]int32, n)
		for i := range a.vals {
			a.vals[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case *numArray[int64]:
		a.vals = make([]int64, n)
		for i := range a.vals {
			a.vals[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
		}
	case *numArray[float32]:
		a.vals = make([]float32, n)
		for i := range a.vals {
			a.vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case *numArray[float64]:
		a.vals = make([]float64, n)
		for i := range a.vals {
			a.vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
	case *boolArray:
		a.vals = make([]bool, n)
		for i := range a.vals {
			a.vals[i] = buf[i] != 0
		}
	default:
		return nil, fmt.Errorf("%w: dtype %v has no raw decoder", ErrCodec, dt)
	}
	return arr, nil
}

// encodeVlenUTF8 packs a string array as a uint32 length-prefixed
// sequence, the variable-length encoding string columns default to.
func encodeVlenUTF8(a *strArray) []byte {
	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, s := range a.vals {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		buf.Write(lenBuf[:])
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func decodeVlenUTF8(buf []byte) (*strArray, error) {
	var vals []string
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, fmt.Errorf("%w: vlen-utf8: truncated length prefix", ErrCodec)
		}
		n := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		if uint32(len(buf)) < n {
			return nil, fmt.Errorf("%w: vlen-utf8: truncated payload", ErrCodec)
		}
		vals = append(vals, string(buf[:n]))
		buf = buf[n:]
	}
	return &strArray{vals: vals}, nil
}

// encodeDelta takes an already-sorted integer column and stores its
// first element followed by first-differences, exploiting the monotone index
// columns this codec is meant for (§4.1, "delta ... for monotone
// integer/timestamp index columns").
func encodeDelta(a Array) ([]byte, error) {
	if a.Len() == 0 {
		return nil, nil
	}
	// Re-encode as int64 deltas regardless of source width; delta is
	// only ever applied to index columns, which are fixed-width and
	// at most 8 bytes wide.
	out := make([]byte, 8*a.Len())
	prev := toInt64(a.DType(), a.Get(0))
	binary.LittleEndian.PutUint64(out[0:8], uint64(prev))
	for i := 1; i < a.Len(); i++ {
		cur := toInt64(a.DType(), a.Get(i))
		binary.LittleEndian.PutUint64(out[i*8:(i+1)*8], uint64(cur-prev))
		prev = cur
	}
	return out, nil
}

func decodeDelta(dt DType, buf []byte) (Array, error) {
	if len(buf) == 0 {
		return NewArray(dt), nil
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("%w: delta buffer length %d not a multiple of 8", ErrCodec, len(buf))
	}
	n := len(buf) / 8
	vals := make([]int64, n)
	cur := int64(binary.LittleEndian.Uint64(buf[0:8]))
	vals[0] = cur
	for i := 1; i < n; i++ {
		d := int64(binary.LittleEndian.Uint64(buf[i*8 : (i+1)*8]))
		cur += d
		vals[i] = cur
	}
	return fromInt64(dt, vals), nil
}

func toInt64(dt DType, v any) int64 {
	switch dt {
	case DInt8:
		return int64(v.(int8))
	case DInt16:
		return int64(v.(int16))
	case DInt32:
		return int64(v.(int32))
	case DInt64, DTimestamp:
		return v.(int64)
	case DDate:
		return int64(v.(int32))
	default:
		panic(fmt.Sprintf("strata: dtype %v not deltable", dt))
	}
}

func fromInt64(dt DType, vals []int64) Array {
	switch dt {
	case DInt8:
		out := make([]int8, len(vals))
		for i, v := range vals {
			out[i] = int8(v)
		}
		return &numArray[int8]{dt: dt, vals: out}
	case DInt16:
		out := make([]int16, len(vals))
		for i, v := range vals {
			out[i] = int16(v)
		}
		return &numArray[int16]{dt: dt, vals: out}
	case DInt32:
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		return &numArray[int32]{dt: dt, vals: out}
	case DInt64, DTimestamp:
		return &numArray[int64]{dt: dt, vals: vals}
	case DDate:
		out := make([]int32, len(vals))
		for i, v := range vals {
			out[i] = int32(v)
		}
		return &numArray[int32]{dt: dt, vals: out}
	default:
		panic(fmt.Sprintf("strata: dtype %v not deltable", dt))
	}
}

// encodeChain runs a column array through its codec chain, producing
// the bytes written to a segment (§4.1): the last codec first, then
// the compression stages from chain[len-2] back to chain[0].
func encodeChain(a Array, chain []CodecKind) ([]byte, error) {
	buf, err := encodeStage(a, chain[len(chain)-1])
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 2; i >= 0; i-- {
		buf, err = compressStage(buf, chain[i])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// decodeChain reverses encodeChain: outer-to-inner decompression
// stages, then the terminal element-decoding stage.
func decodeChain(dt DType, buf []byte, chain []CodecKind) (Array, error) {
	var err error
	for i := 0; i < len(chain)-1; i++ {
		buf, err = decompressStage(buf, chain[i])
		if err != nil {
			return nil, err
		}
	}
	return decodeStage(dt, buf, chain[len(chain)-1])
}

func encodeStage(a Array, kind CodecKind) ([]byte, error) {
	switch kind {
	case CodecRaw:
		return encodeRaw(a)
	case CodecDelta:
		return encodeDelta(a)
	case CodecVlenUTF8:
		sa, ok := a.(*strArray)
		if !ok {
			return nil, fmt.Errorf("%w: vlen-utf8 requires a string column", ErrCodec)
		}
		return encodeVlenUTF8(sa), nil
	default:
		return nil, fmt.Errorf("%w: %v is not a terminal codec stage", ErrCodec, kind)
	}
}

func decodeStage(dt DType, buf []byte, kind CodecKind) (Array, error) {
	switch kind {
	case CodecRaw:
		return decodeRaw(dt, buf)
	case CodecDelta:
		return decodeDelta(dt, buf)
	case CodecVlenUTF8:
		return decodeVlenUTF8(buf)
	default:
		return nil, fmt.Errorf("%w: %v is not a terminal codec stage", ErrCodec, kind)
	}
}

func compressStage(buf []byte, kind CodecKind) ([]byte, error) {
	switch kind {
	case CodecZstd:
		return zstdEncoder.EncodeAll(buf, nil), nil
	case CodecGzip:
		var out bytes.Buffer
		w := gzip.NewWriter(&out)
		if _, err := w.Write(buf); err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrCodec, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrCodec, err)
		}
		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %v is not a compression stage", ErrCodec, kind)
	}
}

func decompressStage(buf []byte, kind CodecKind) ([]byte, error) {
	switch kind {
	case CodecZstd:
		out, err := zstdDecoder.DecodeAll(buf, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCodec, err)
		}
		return out, nil
	case CodecGzip:
		r, err := gzip.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrCodec, err)
		}
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrCodec, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v is not a compression stage", ErrCodec, kind)
	}
}
