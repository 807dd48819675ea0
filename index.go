// Package bloomidx implements a small-footprint, in-process full-text
// search engine over short textual records, built on a bit-sliced
// (column-oriented) Bloom filter index (spec.md §1–2).
//
// The public surface is the Index type: Add/AddMessage to insert
// documents, Search/SearchOr to query them. Everything else — value
// storage, snapshotting, bulk loading, the Unix-socket server — is an
// external collaborator layered on top, under internal/.
package bloomidx

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/csvquery/bloomidx/internal/bloomparams"
	"github.com/csvquery/bloomidx/internal/ngram"
	"github.com/csvquery/bloomidx/internal/shard"
)

// DefaultProb is the canonical target false-positive rate for the
// plain-trigram tokenizer (spec.md §9: "with trigrams only, 0.01-0.1 is
// more appropriate"). EnrichedProb is the default cmd/bloomidx uses
// instead when bigram/unigram enrichment is enabled without an explicit
// prob, matching the source's enriched-tokenizer default.
const (
	DefaultProb  = 0.01
	EnrichedProb = 0.6
)

// Index is the top-level router over shards: it assigns every inserted
// document to the shard whose Bloom parameters match its feature count,
// and fans queries out across all shards (spec.md §4.6).
//
// Index is single-writer, multi-reader (spec.md §5): Add/AddMessage/
// Clear take mu exclusively, so they are serialized against each other
// and against every other method; Search/SearchOr/Size/SizeBytes take
// mu shared and may run concurrently with each other.
type Index struct {
	mu     sync.RWMutex
	shards []*shard.Shard
	size   uint64
	prob   float64
	opt    ngram.Options
}

// New creates an empty index with the default configuration: plain
// trigrams, prob = DefaultProb.
func New() *Index {
	return NewWithOptions(DefaultProb, ngram.Options{})
}

// NewWithProb creates an empty index targeting the given false-positive
// probability, plain trigrams only.
func NewWithProb(prob float64) *Index {
	return NewWithOptions(prob, ngram.Options{})
}

// NewWithOptions creates an empty index with an explicit target
// false-positive probability and tokenizer enrichment setting.
func NewWithOptions(prob float64, opt ngram.Options) *Index {
	return &Index{prob: prob, opt: opt}
}

// Add tokenizes text, assigns it the next document key (size+1), and
// returns that key. Documents that tokenize to no features still
// consume a key (spec.md §4.6 step 2 / §9's adopted convention) but are
// unreachable by Search.
func (ix *Index) Add(text string) uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	key := ix.size + 1
	ix.addLocked(text, key)
	return key
}

// AddMessage is the caller-supplied-key variant of Add (spec.md §6).
// size still advances by exactly one regardless of the key's value.
func (ix *Index) AddMessage(text string, key uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.addLocked(text, key)
}

func (ix *Index) addLocked(text string, key uint64) {
	ix.size++

	features := ngram.Tokenize(text, ix.opt)
	if len(features) == 0 {
		return
	}

	params := bloomparams.Estimate(len(features), ix.prob)
	ix.shardFor(params).Add(features, key)
}

// shardFor returns the shard matching params, creating one if absent.
// Must be called with mu held for writing.
func (ix *Index) shardFor(params bloomparams.Params) *shard.Shard {
	for _, s := range ix.shards {
		if s.Params() == params {
			return s
		}
	}
	s := shard.New(params)
	ix.shards = append(ix.shards, s)
	return s
}

// Search tokenizes query and fans the lookup out across all shards in
// parallel, returning the concatenation of their results (spec.md
// §4.6). Cross-shard order is unspecified; within a shard, results are
// bucket order then ascending slot order.
//
// When exact is true, query is tokenized as a single document (its
// n-grams must all appear together in a matching document's feature
// set). When false, query is split on whitespace, each word is
// tokenized independently, and the union of those per-word features is
// searched as one conjunctive filter: a document matches if it contains
// every word's n-grams, but n-grams spanning a word boundary in the
// query are not required (spec.md §4.6 step 2).
//
// An empty query returns every key issued so far, [1, size].
func (ix *Index) Search(query string, exact bool) []uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if query == "" {
		return ix.allKeysLocked()
	}

	features := ix.queryFeaturesLocked(query, exact)
	if len(features) == 0 {
		return nil
	}

	return ix.fanOutLocked(func(s *shard.Shard) []uint64 {
		return s.Search(features)
	})
}

// SearchOr tokenizes query as a single feature set (like Search's exact
// mode) and fans a union-style lookup out across all shards: any
// feature in the query may match (spec.md §4.6 search_or).
func (ix *Index) SearchOr(query string) []uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if query == "" {
		return ix.allKeysLocked()
	}

	features := ngram.Tokenize(query, ix.opt)
	if len(features) == 0 {
		return nil
	}

	return ix.fanOutLocked(func(s *shard.Shard) []uint64 {
		return s.SearchOr(features)
	})
}

// queryFeaturesLocked implements the exact/non-exact tokenization split
// from spec.md §4.6 step 2.
func (ix *Index) queryFeaturesLocked(query string, exact bool) []string {
	if exact {
		return ngram.Tokenize(query, ix.opt)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, word := range ngram.SplitWords(query) {
		for _, f := range ngram.Tokenize(word, ix.opt) {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// fanOutLocked runs fn against every shard concurrently using a
// work-stealing pool (spec.md §5's "parallel search" guidance,
// concretely golang.org/x/sync/errgroup) and concatenates the results.
// Must be called with mu held (for reading or writing).
func (ix *Index) fanOutLocked(fn func(*shard.Shard) []uint64) []uint64 {
	if len(ix.shards) == 0 {
		return nil
	}
	if len(ix.shards) == 1 {
		return fn(ix.shards[0])
	}

	results := make([][]uint64, len(ix.shards))
	g, _ := errgroup.WithContext(context.Background())
	for i, s := range ix.shards {
		i, s := i, s
		g.Go(func() error {
			results[i] = fn(s)
			return nil
		})
	}
	_ = g.Wait() // fn never errors; Wait only joins the goroutines

	var out []uint64
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// allKeysLocked returns every key issued so far, [1, size].
func (ix *Index) allKeysLocked() []uint64 {
	if ix.size == 0 {
		return nil
	}
	out := make([]uint64, ix.size)
	for i := range out {
		out[i] = uint64(i) + 1
	}
	return out
}

// Clear empties all shards and resets size to zero.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.shards = nil
	ix.size = 0
}

// Size returns the number of Add/AddMessage calls since construction or
// the last Clear.
func (ix *Index) Size() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// SizeBytes estimates the serialized size of the index's shards, in
// bytes: per bucket, its column words and id slots. Snapshot header and
// per-shard/per-bucket length fields are not counted.
func (ix *Index) SizeBytes() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	const wordBytes = 8
	var total uint64
	for _, s := range ix.shards {
		for _, b := range s.Buckets() {
			total += uint64(len(b.Columns())) * wordBytes
			total += uint64(len(b.IDs())) * wordBytes
		}
	}
	return total
}

// Prob returns the index's configured target false-positive rate.
func (ix *Index) Prob() float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.prob
}

// Options returns the index's tokenizer enrichment configuration.
func (ix *Index) Options() ngram.Options {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.opt
}

// Shards exposes the shard list, read-only, for internal/snapshot.
// Callers must not mutate the returned slice or its shards.
func (ix *Index) Shards() []*shard.Shard {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.shards
}

// FromSnapshot reconstructs an index from raw parts, used only by
// internal/snapshot when deserializing.
func FromSnapshot(shards []*shard.Shard, size uint64, prob float64, opt ngram.Options) *Index {
	return &Index{shards: shards, size: size, prob: prob, opt: opt}
}
