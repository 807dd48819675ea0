// Package valuestore holds the original text behind each document key
// that the search index only ever sees as n-gram features. The index
// itself never stores text (spec.md §1's "small-footprint" goal);
// callers pair it with a Store to turn matched keys back into text.
package valuestore

import (
	"fmt"
	"strings"
)

// Store maps a document key to the text it was built from.
type Store interface {
	// Put records text under key, overwriting any previous value.
	Put(key uint64, text string) error
	// Get returns the text stored under key, or ok=false if absent. A
	// non-nil err means the lookup itself failed (I/O, a closed or
	// corrupted database) and text/ok must not be trusted — callers must
	// not treat a failed lookup as "key absent".
	Get(key uint64) (text string, ok bool, err error)
	// Delete removes key, if present.
	Delete(key uint64) error
	// Close releases any resources held by the store.
	Close() error
}

// FilterExact takes the key list returned by a Bloom search (which may
// contain false positives) and narrows it to only those documents whose
// stored text actually contains needle, verifying membership against
// ground truth the way spec.md §9's single-condition "word" search
// narrows multi-shard results (original_source's exact post-filter
// pattern).
func FilterExact(s Store, keys []uint64, needle string) ([]uint64, error) {
	var out []uint64
	for _, key := range keys {
		text, ok, err := s.Get(key)
		if err != nil {
			return nil, fmt.Errorf("valuestore: looking up key %d: %w", key, err)
		}
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(text), strings.ToLower(needle)) {
			out = append(out, key)
		}
	}
	return out, nil
}

// ErrNotFound is a sentinel for a missing key. None of the Store
// implementations in this package return it: Get reports an absent key
// with ok=false, and Delete of an absent key returns nil.
var ErrNotFound = fmt.Errorf("valuestore: key not found")
