// Revision: one changelog entry payload naming the segments active on
// an index range at commit time (§3, §6 "compact self-describing
// binary ... zstd-compressed MessagePack").
package strata

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

var mpHandle codec.MsgpackHandle

// revisionWire is the on-the-wire shape of a Revision, field names
// kept short since they're serialized on every commit.
type revisionWire struct {
	Start   []byte            `codec:"a"`
	Stop    []byte            `codec:"b"`
	Len     uint64            `codec:"c"`
	Digests map[string]string `codec:"d"`
	Epoch   int64             `codec:"e"`
}

// Revision is a changelog entry: the index range and column digests a
// write produced, plus the commit time (§3).
type Revision struct {
	Start   Key
	Stop    Key
	Len     uint64
	Digests map[string]string
	Epoch   int64
}

// EncodeRevision serializes a revision to zstd-compressed MessagePack
// bytes, the format named in §6.
func EncodeRevision(schema *Schema, rev Revision) ([]byte, error) {
	startBytes, err := schema.SerializeKey(rev.Start)
	if err != nil {
		return nil, err
	}
	stopBytes, err := schema.SerializeKey(rev.Stop)
	if err != nil {
		return nil, err
	}
	wire := revisionWire{
		Start:   startBytes,
		Stop:    stopBytes,
		Len:     rev.Len,
		Digests: rev.Digests,
		Epoch:   rev.Epoch,
	}
	var packed []byte
	enc := codec.NewEncoderBytes(&packed, &mpHandle)
	if err := enc.Encode(wire); err != nil {
		return nil, fmt.Errorf("%w: msgpack: %w", ErrCodec, err)
	}
	return zstdEncoder.EncodeAll(packed, nil), nil
}

// DecodeRevision reverses EncodeRevision. The number of index columns
// used to deserialize start/stop is taken from the schema, since
// start/stop are serialized to full index-tuple width.
func DecodeRevision(schema *Schema, buf []byte) (Revision, error) {
	packed, err := zstdDecoder.DecodeAll(buf, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("%w: zstd: %w", ErrCodec, err)
	}
	var wire revisionWire
	dec := codec.NewDecoderBytes(packed, &mpHandle)
	if err := dec.Decode(&wire); err != nil {
		return Revision{}, fmt.Errorf("%w: msgpack: %w", ErrCodec, err)
	}
	nidx := len(schema.IndexColumns())
	start, err := schema.DeserializeKey(wire.Start, nidx)
	if err != nil {
		return Revision{}, err
	}
	stop, err := schema.DeserializeKey(wire.Stop, nidx)
	if err != nil {
		return Revision{}, err
	}
	return Revision{
		Start:   start,
		Stop:    stop,
		Len:     wire.Len,
		Digests: wire.Digests,
		Epoch:   wire.Epoch,
	}, nil
}
