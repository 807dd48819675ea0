// Package bloomfilter encodes a feature set into a fixed-length Bloom
// bitset (spec.md §4.3): k hash positions per feature, each position
// derived from a salted 64-bit hash of the feature string.
package bloomfilter

import (
	"encoding/binary"
	"math/bits"

	"github.com/cespare/xxhash/v2"

	"github.com/csvquery/bloomidx/internal/bloomparams"
)

// Bitset is the full m-bit Bloom filter for one document, stored as
// bloomparams.Width-bit words: filter bit p is bit p%Width of
// Words[p/Width]. Bucket.Add does not copy these words; it walks
// SetBits and sets the document's slot bit in column p for each p.
type Bitset struct {
	Words []uint64
	Bits  uint32
}

// New allocates a zeroed bitset sized for params.
func New(params bloomparams.Params) Bitset {
	return Bitset{
		Words: make([]uint64, params.M),
		Bits:  params.Bits(),
	}
}

// Encode builds the Bloom bitset for features under params, setting k
// bits per feature via a salted xxhash64.
func Encode(features []string, params bloomparams.Params) Bitset {
	b := New(params)
	for _, f := range features {
		b.add(f, params.K)
	}
	return b
}

// add sets the k probe positions for one feature.
func (b *Bitset) add(feature string, k uint32) {
	for i := uint32(0); i < k; i++ {
		pos := hashProbe(feature, i) % uint64(b.Bits)
		b.Words[pos/bloomparams.Width] |= 1 << (pos % bloomparams.Width)
	}
}

// SetBits enumerates the ascending positions of every set bit — the
// query_bits list spec.md §4.5 passes to each bucket.
func (b Bitset) SetBits() []uint32 {
	var out []uint32
	for wi, w := range b.Words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, uint32(wi)*bloomparams.Width+uint32(tz))
			w &= w - 1
		}
	}
	return out
}

// hashProbe derives the i-th probe hash for a feature: a salted
// xxhash64, matching the "deterministic hash fed the feature then a
// usize salt" scheme spec.md §4.3 allows.
func hashProbe(feature string, i uint32) uint64 {
	var salt [4]byte
	binary.LittleEndian.PutUint32(salt[:], i)

	d := xxhash.New()
	_, _ = d.WriteString(feature)
	_, _ = d.Write(salt[:])
	return d.Sum64()
}
