// Package ngram extracts the character n-gram features used to build and
// query a bit-sliced Bloom index: trigrams by default, plus optional
// bigram and unigram enrichment.
package ngram

import (
	"strings"
	"unicode"
)

// Options controls tokenizer enrichment. The zero value is the default,
// trigram-only configuration.
type Options struct {
	// EnrichBigramsUnigrams appends bigram and distinct-unigram features
	// after the trigram windows. Disabled by default.
	EnrichBigramsUnigrams bool
}

// Tokenize maps text to a deduplicated, order-preserving sequence of
// n-gram features. The same function is used at insert and query time so
// that feature sets are directly comparable.
//
// Preprocessing: code points that are neither ASCII nor printable are
// dropped, then the remainder is lowercased rune by rune with
// unicode.ToLower (not ASCII-only). Trigram windows are
// emitted for every i in [1, len(chars)-2]; texts shorter than 3 runes
// yield no trigrams. When opt.EnrichBigramsUnigrams is set, bigram
// windows and then the set of distinct single runes are appended.
func Tokenize(text string, opt Options) []string {
	chars := clean(text)
	if len(chars) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(chars)*2)
	var out []string

	appendFeature := func(f string) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}

	if len(chars) >= 3 {
		for i := 1; i <= len(chars)-2; i++ {
			appendFeature(string(chars[i-1 : i+2]))
		}
	}

	if opt.EnrichBigramsUnigrams {
		if len(chars) >= 2 {
			for i := 1; i <= len(chars)-1; i++ {
				appendFeature(string(chars[i-1 : i+1]))
			}
		}
		for _, c := range chars {
			appendFeature(string(c))
		}
	}

	return out
}

// clean drops non-ASCII, non-printable runes and lowercases the rest,
// returning the processed code-point array used by the windowing passes.
func clean(text string) []rune {
	chars := make([]rune, 0, len(text))
	for _, r := range text {
		if r > unicode.MaxASCII && !unicode.IsPrint(r) {
			continue
		}
		chars = append(chars, unicode.ToLower(r))
	}
	return chars
}

// SplitWords splits a query into whitespace-separated words, trimmed of
// surrounding space. Used by Index.Search's non-exact mode, where each
// word is tokenized independently (spec.md §4.6).
func SplitWords(query string) []string {
	fields := strings.Fields(query)
	return fields
}
