package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeTrigrams(t *testing.T) {
	got := Tokenize("Hello, wor杯ld!", Options{})
	want := []string{"hel", "ell", "llo", "lo,", "o, ", ", w", " wo", "wor", "or杯", "r杯l", "杯ld", "ld!"}
	assert.Equal(t, want, got)
}

func TestTokenizeShortInputYieldsNothing(t *testing.T) {
	assert.Nil(t, Tokenize("", Options{}))
	assert.Nil(t, Tokenize("a", Options{}))
	assert.Nil(t, Tokenize("ab", Options{}))
}

func TestTokenizeDeterministicAndCaseInsensitive(t *testing.T) {
	lower := Tokenize("hello world", Options{})
	upper := Tokenize("HELLO WORLD", Options{})
	assert.Equal(t, lower, upper)

	again := Tokenize("hello world", Options{})
	assert.Equal(t, lower, again)
}

func TestTokenizeDedupesRepeatedWindows(t *testing.T) {
	got := Tokenize("aaaa", Options{})
	assert.Equal(t, []string{"aaa"}, got)
}

func TestTokenizeEnrichmentAppendsBigramsAndUnigrams(t *testing.T) {
	got := Tokenize("Hello", Options{EnrichBigramsUnigrams: true})
	assert.Equal(t, []string{"hel", "ell", "llo", "he", "el", "ll", "lo", "h", "e", "l", "o"}, got)
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, SplitWords("  hello   world  "))
	assert.Empty(t, SplitWords("   "))
}
