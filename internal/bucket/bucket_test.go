package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvquery/bloomidx/internal/bloomfilter"
	"github.com/csvquery/bloomidx/internal/bloomparams"
)

func TestAddAndSearchAndNoFalseNegative(t *testing.T) {
	params := bloomparams.Estimate(3, 0.1)
	b := New(params)

	b.Add([]string{"hel", "ell", "llo"}, 1)
	b.Add([]string{"wor", "orl", "rld"}, 2)

	query := bloomfilter.Encode([]string{"hel"}, params).SetBits()
	got := b.SearchAnd(query)
	assert.Contains(t, got, uint64(1))
	assert.NotContains(t, got, uint64(2))
}

func TestSearchAndAscendingBySlot(t *testing.T) {
	params := bloomparams.Estimate(1, 0.1)
	b := New(params)
	b.Add([]string{"abc"}, 10)
	b.Add([]string{"abc"}, 20)
	b.Add([]string{"abc"}, 30)

	query := bloomfilter.Encode([]string{"abc"}, params).SetBits()
	got := b.SearchAnd(query)
	assert.Equal(t, []uint64{10, 20, 30}, got)
}

func TestSearchOrUnionsMatches(t *testing.T) {
	params := bloomparams.Estimate(1, 0.1)
	b := New(params)
	b.Add([]string{"abc"}, 1)
	b.Add([]string{"xyz"}, 2)

	abcBits := bloomfilter.Encode([]string{"abc"}, params).SetBits()
	xyzBits := bloomfilter.Encode([]string{"xyz"}, params).SetBits()
	query := append(append([]uint32{}, abcBits...), xyzBits...)

	got := b.SearchOr(query)
	assert.ElementsMatch(t, []uint64{1, 2}, got)
}

func TestIsFullAtWidthCapacity(t *testing.T) {
	params := bloomparams.Estimate(1, 0.1)
	b := New(params)
	for i := uint32(0); i < Width; i++ {
		require.False(t, b.IsFull())
		b.Add([]string{"abc"}, uint64(i))
	}
	assert.True(t, b.IsFull())
}

func TestAddIntoFullBucketPanics(t *testing.T) {
	params := bloomparams.Estimate(1, 0.1)
	b := New(params)
	for i := uint32(0); i < Width; i++ {
		b.Add([]string{"abc"}, uint64(i))
	}
	assert.Panics(t, func() {
		b.Add([]string{"abc"}, 999)
	})
}

func TestEmptyQueryBitsRejected(t *testing.T) {
	params := bloomparams.Estimate(1, 0.1)
	b := New(params)
	b.Add([]string{"abc"}, 1)
	assert.Empty(t, b.SearchAnd(nil))
	assert.Empty(t, b.SearchOr(nil))
}
