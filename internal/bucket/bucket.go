// Package bucket implements the W-document transposed Bloom filter store
// described in spec.md §4.4: a column-oriented matrix where bit i of
// every document's Bloom filter lives in one machine word, so a
// conjunctive query over q bits resolves to q word-wide ANDs.
package bucket

import (
	"fmt"

	"github.com/csvquery/bloomidx/internal/bloomfilter"
	"github.com/csvquery/bloomidx/internal/bloomparams"
)

// Width is the number of documents a single bucket holds — the document
// axis word width from spec.md §3. It doubles as the machine word width
// used to align Bloom filter length (spec.md §4.2), since the source
// ties both to the same W.
const Width = bloomparams.Width

// Bucket stores up to Width documents as transposed Bloom columns.
//
// cols has params.Bits() entries; bit d of cols[i] is bit i of the
// Bloom filter belonging to the document in slot d. ids[d] is the
// external document key stored in slot d. Append-only: slots
// d >= count are guaranteed zero in every column.
type Bucket struct {
	params bloomparams.Params
	cols   []uint64
	ids    [Width]uint64
	count  uint32
}

// New allocates an empty bucket for params.
func New(params bloomparams.Params) *Bucket {
	return &Bucket{
		params: params,
		cols:   make([]uint64, params.Bits()),
	}
}

// Params returns the Bloom parameters this bucket was created with.
func (b *Bucket) Params() bloomparams.Params { return b.params }

// Count returns the number of documents currently stored.
func (b *Bucket) Count() uint32 { return b.count }

// IsFull reports whether the bucket holds Width documents.
func (b *Bucket) IsFull() bool { return b.count == Width }

// Add encodes features into a Bloom filter under the bucket's params and
// stores it in the next free slot, recording key as that slot's document
// id. Add panics if the bucket is already full — callers (Shard) must
// check IsFull first; this is the "fatal condition, implementation bug"
// class spec.md §7 calls for an assertion rather than an error.
func (b *Bucket) Add(features []string, key uint64) {
	if b.IsFull() {
		panic(fmt.Sprintf("bucket: add into full bucket (count=%d)", b.count))
	}

	bits := bloomfilter.Encode(features, b.params)
	for _, i := range bits.SetBits() {
		b.cols[i] |= 1 << b.count
	}
	b.ids[b.count] = key
	b.count++
}

// SearchAnd ANDs the columns named by queryBits and returns the document
// keys of every set result bit, ascending by slot index. Empty queryBits
// must be rejected by the caller (spec.md §4.4); SearchAnd returns nil
// for it rather than matching everything.
func (b *Bucket) SearchAnd(queryBits []uint32) []uint64 {
	if len(queryBits) == 0 {
		return nil
	}

	res := b.cols[queryBits[0]]
	for _, qb := range queryBits[1:] {
		res &= b.cols[qb]
		if res == 0 {
			break
		}
	}
	return b.collect(res)
}

// SearchOr ORs the columns named by queryBits and returns the document
// keys of every set result bit, ascending by slot index.
func (b *Bucket) SearchOr(queryBits []uint32) []uint64 {
	if len(queryBits) == 0 {
		return nil
	}

	var res uint64
	for _, qb := range queryBits {
		res |= b.cols[qb]
	}
	return b.collect(res)
}

// collect extracts the document keys of the slots set in res, ascending.
func (b *Bucket) collect(res uint64) []uint64 {
	if res == 0 {
		return nil
	}
	var out []uint64
	for d := uint32(0); d < Width; d++ {
		if res&(1<<d) != 0 {
			out = append(out, b.ids[d])
		}
	}
	return out
}

// Columns exposes the raw column words, read-only, for the snapshot
// writer (internal/snapshot). The slice must not be mutated by callers.
func (b *Bucket) Columns() []uint64 { return b.cols }

// IDs exposes the raw slot→key array, read-only, for the snapshot
// writer.
func (b *Bucket) IDs() [Width]uint64 { return b.ids }

// FromSnapshot reconstructs a bucket from its raw parts, used only by
// internal/snapshot when deserializing.
func FromSnapshot(params bloomparams.Params, cols []uint64, ids [Width]uint64, count uint32) *Bucket {
	return &Bucket{params: params, cols: cols, ids: ids, count: count}
}
