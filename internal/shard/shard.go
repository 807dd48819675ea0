// Package shard implements the append-only sequence of same-parameter
// buckets described in spec.md §4.5, and the query-bit computation that
// feeds each bucket's AND/OR search.
package shard

import (
	"fmt"

	"github.com/csvquery/bloomidx/internal/bloomfilter"
	"github.com/csvquery/bloomidx/internal/bloomparams"
	"github.com/csvquery/bloomidx/internal/bucket"
)

// Shard is an ordered list of buckets sharing one BloomParams identity.
// All but the last bucket are full; the last may be partial.
type Shard struct {
	params  bloomparams.Params
	buckets []*bucket.Bucket
}

// New creates an empty shard for params.
func New(params bloomparams.Params) *Shard {
	return &Shard{params: params}
}

// Params returns the (m, k) pair identifying this shard.
func (s *Shard) Params() bloomparams.Params { return s.params }

// Buckets exposes the bucket list, read-only, for the snapshot writer
// and Index.SizeBytes. Search and SearchOr walk buckets sequentially.
func (s *Shard) Buckets() []*bucket.Bucket { return s.buckets }

// Add appends features under key to the last non-full bucket, creating
// a new one first if the shard is empty or its last bucket is full.
func (s *Shard) Add(features []string, key uint64) {
	s.lastBucket().Add(features, key)
}

func (s *Shard) lastBucket() *bucket.Bucket {
	if len(s.buckets) == 0 || s.buckets[len(s.buckets)-1].IsFull() {
		s.buckets = append(s.buckets, bucket.New(s.params))
	}
	return s.buckets[len(s.buckets)-1]
}

// Search computes features' query bits under the shard's params and
// concatenates every bucket's SearchAnd result, in bucket order.
func (s *Shard) Search(features []string) []uint64 {
	queryBits := s.queryBits(features)
	if len(queryBits) == 0 {
		return nil
	}

	var out []uint64
	for _, b := range s.buckets {
		out = append(out, b.SearchAnd(queryBits)...)
	}
	return out
}

// SearchOr computes features' query bits under the shard's params and
// concatenates every bucket's SearchOr result, in bucket order.
func (s *Shard) SearchOr(features []string) []uint64 {
	queryBits := s.queryBits(features)
	if len(queryBits) == 0 {
		return nil
	}

	var out []uint64
	for _, b := range s.buckets {
		out = append(out, b.SearchOr(queryBits)...)
	}
	return out
}

// queryBits builds a Bloom filter from features under the shard's own
// (m, k) and returns its ascending set-bit positions (spec.md §4.5).
func (s *Shard) queryBits(features []string) []uint32 {
	if len(features) == 0 {
		return nil
	}
	return bloomfilter.Encode(features, s.params).SetBits()
}

// FromSnapshot reconstructs a shard from its raw parts, used only by
// internal/snapshot when deserializing.
func FromSnapshot(params bloomparams.Params, buckets []*bucket.Bucket) *Shard {
	return &Shard{params: params, buckets: buckets}
}

// AssertConsistent panics if any bucket's own parameters don't match the
// shard's — the "inconsistent (m, k)" fatal condition spec.md §7 calls
// for an assertion on, not a user-visible error. internal/snapshot calls
// this right after FromSnapshot, where each bucket's params were just
// read independently off the wire rather than inherited from the shard.
func (s *Shard) AssertConsistent() {
	for _, b := range s.buckets {
		if b.Params() != s.params {
			panic(fmt.Sprintf("shard: bucket params %+v do not match shard params %+v", b.Params(), s.params))
		}
	}
}
