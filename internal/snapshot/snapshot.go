// Package snapshot serializes and deserializes an index's shards to a
// fixed-layout binary format, the way internal/common encodes
// IndexRecord: manual big-endian field packing rather than a reflection
// based codec, optionally wrapped in lz4 compression the way
// internal/indexer's external sorter spills chunks through an
// lz4.Writer.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/csvquery/bloomidx/internal/bloomparams"
	"github.com/csvquery/bloomidx/internal/bucket"
	"github.com/csvquery/bloomidx/internal/ngram"
	"github.com/csvquery/bloomidx/internal/shard"
)

// magic identifies a bloomidx snapshot file; version allows the layout
// to evolve without breaking old readers silently.
const (
	magic   = "BLMX"
	version = uint32(1)
)

// Header carries the index-level settings that sit alongside its
// shards: the target false-positive probability, tokenizer enrichment
// flag, and document count.
type Header struct {
	Prob   float64
	Enrich bool
	Size   uint64
}

// Write serializes header and shards to w, compressed with lz4 when
// compress is true.
func Write(w io.Writer, header Header, shards []*shard.Shard, compress bool) error {
	bw := bufio.NewWriterSize(w, 256*1024)

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := writeUint32(bw, version); err != nil {
		return err
	}
	if err := writeBool(bw, compress); err != nil {
		return err
	}

	var body io.Writer = bw
	var lzw *lz4.Writer
	if compress {
		lzw = lz4.NewWriter(bw)
		body = lzw
	}

	if err := writeBody(body, header, shards); err != nil {
		return err
	}

	if lzw != nil {
		if err := lzw.Close(); err != nil {
			return fmt.Errorf("snapshot: closing lz4 writer: %w", err)
		}
	}
	return bw.Flush()
}

func writeBody(w io.Writer, header Header, shards []*shard.Shard) error {
	if err := writeUint64(w, math.Float64bits(header.Prob)); err != nil {
		return err
	}
	if err := writeBool(w, header.Enrich); err != nil {
		return err
	}
	if err := writeUint64(w, header.Size); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(shards))); err != nil {
		return err
	}

	for _, s := range shards {
		if err := writeShard(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeShard(w io.Writer, s *shard.Shard) error {
	params := s.Params()
	if err := writeUint32(w, params.M); err != nil {
		return err
	}
	if err := writeUint32(w, params.K); err != nil {
		return err
	}
	buckets := s.Buckets()
	if err := writeUint32(w, uint32(len(buckets))); err != nil {
		return err
	}
	for _, b := range buckets {
		if err := writeBucket(w, b); err != nil {
			return err
		}
	}
	return nil
}

func writeBucket(w io.Writer, b *bucket.Bucket) error {
	params := b.Params()
	if err := writeUint32(w, params.M); err != nil {
		return err
	}
	if err := writeUint32(w, params.K); err != nil {
		return err
	}
	if err := writeUint32(w, b.Count()); err != nil {
		return err
	}
	cols := b.Columns()
	buf := make([]byte, len(cols)*8)
	for i, c := range cols {
		binary.BigEndian.PutUint64(buf[i*8:], c)
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}

	ids := b.IDs()
	idBuf := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.BigEndian.PutUint64(idBuf[i*8:], id)
	}
	_, err := w.Write(idBuf)
	return err
}

// Read deserializes a snapshot written by Write.
func Read(r io.Reader) (Header, []*shard.Shard, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading magic: %w", err)
	}
	if string(gotMagic[:]) != magic {
		return Header{}, nil, fmt.Errorf("snapshot: bad magic %q", gotMagic)
	}

	gotVersion, err := readUint32(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading version: %w", err)
	}
	if gotVersion != version {
		return Header{}, nil, fmt.Errorf("snapshot: unsupported version %d", gotVersion)
	}

	compress, err := readBool(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading compress flag: %w", err)
	}

	var body io.Reader = r
	if compress {
		body = lz4.NewReader(r)
	}
	return readBody(body)
}

func readBody(r io.Reader) (Header, []*shard.Shard, error) {
	probBits, err := readUint64(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading prob: %w", err)
	}
	enrich, err := readBool(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading enrich flag: %w", err)
	}
	size, err := readUint64(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading size: %w", err)
	}
	numShards, err := readUint32(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: reading shard count: %w", err)
	}

	shards := make([]*shard.Shard, numShards)
	for i := range shards {
		s, err := readShard(r)
		if err != nil {
			return Header{}, nil, fmt.Errorf("snapshot: reading shard %d: %w", i, err)
		}
		shards[i] = s
	}

	header := Header{
		Prob:   math.Float64frombits(probBits),
		Enrich: enrich,
		Size:   size,
	}
	return header, shards, nil
}

func readShard(r io.Reader) (*shard.Shard, error) {
	m, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	k, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	params := bloomparams.Params{M: m, K: k}

	numBuckets, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	buckets := make([]*bucket.Bucket, numBuckets)
	for i := range buckets {
		b, err := readBucket(r)
		if err != nil {
			return nil, err
		}
		buckets[i] = b
	}

	s := shard.FromSnapshot(params, buckets)
	s.AssertConsistent()
	return s, nil
}

func readBucket(r io.Reader) (*bucket.Bucket, error) {
	m, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	k, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	params := bloomparams.Params{M: m, K: k}

	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	colBuf := make([]byte, int(params.Bits())*8)
	if _, err := io.ReadFull(r, colBuf); err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	cols := make([]uint64, params.Bits())
	for i := range cols {
		cols[i] = binary.BigEndian.Uint64(colBuf[i*8:])
	}

	var idBuf [bucket.Width * 8]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return nil, fmt.Errorf("reading ids: %w", err)
	}
	var ids [bucket.Width]uint64
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(idBuf[i*8:])
	}

	return bucket.FromSnapshot(params, cols, ids, count), nil
}

// WriteFile opens (or creates) path and writes a full snapshot to it.
func WriteFile(path string, header Header, shards []*shard.Shard, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: creating %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, header, shards, compress)
}

// ReadFile opens path and deserializes a snapshot from it.
func ReadFile(path string) (Header, []*shard.Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// EnrichOptions maps a Header's Enrich flag to ngram.Options, the
// tokenizer configuration an index is reconstructed with.
func (h Header) EnrichOptions() ngram.Options {
	return ngram.Options{EnrichBigramsUnigrams: h.Enrich}
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeBool(w io.Writer, v bool) error {
	var b byte
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}
