package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvquery/bloomidx"
	"github.com/csvquery/bloomidx/internal/valuestore"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadFileInsertsEveryNonEmptyLine(t *testing.T) {
	path := writeTempFile(t, "alpha\nbeta\n\ngamma\n")

	ix := bloomidx.New()
	inserted, err := LoadFile(ix, path)
	require.NoError(t, err)

	assert.Equal(t, 3, inserted)
	assert.Equal(t, uint64(3), ix.Size())
}

func TestLoadFileHandlesFileWithoutTrailingNewline(t *testing.T) {
	path := writeTempFile(t, "only line, no trailing newline")

	ix := bloomidx.New()
	inserted, err := LoadFile(ix, path)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestLoadFileEmptyFile(t *testing.T) {
	path := writeTempFile(t, "")

	ix := bloomidx.New()
	inserted, err := LoadFile(ix, path)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestLoadFileMissingFileErrors(t *testing.T) {
	ix := bloomidx.New()
	_, err := LoadFile(ix, "/nonexistent/path/for/test")
	assert.Error(t, err)
}

// TestLoadFilePreservesFileOrder insert order must match line order
// regardless of worker count, so Index.Add's size+1 keys line up with
// the source file deterministically. A value store records each key's
// text; if ordering were scrambled by worker races, some key would
// hold the wrong line's text.
func TestLoadFilePreservesFileOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 5000; i++ {
		lines = append(lines, fmt.Sprintf("line-%05d unique-marker", i))
	}
	path := writeTempFile(t, strings.Join(lines, "\n")+"\n")

	store := valuestore.NewMemory()
	ix := bloomidx.New()
	recorder := &recordingIndex{ix: ix, store: store}

	inserted, err := loadFileInto(recorder, path)
	require.NoError(t, err)
	require.Equal(t, len(lines), inserted)

	for i, want := range lines {
		got, ok, err := store.Get(uint64(i + 1))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

// recordingIndex wraps an *bloomidx.Index and also records each added
// line's text under the key Add returns, so the test can check that
// LoadFile's insertion order matches the source file's line order.
type recordingIndex struct {
	ix    *bloomidx.Index
	store *valuestore.Memory
}

func (r *recordingIndex) Add(text string) uint64 {
	key := r.ix.Add(text)
	_ = r.store.Put(key, text)
	return key
}

// loadFileInto mirrors LoadFile's body against any Add-only sink, so
// this test can observe insertion order without depending on
// LoadFile's concrete *bloomidx.Index parameter type.
func loadFileInto(ins interface{ Add(string) uint64 }, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}

	data, err := mmapFile(f, stat.Size())
	if err != nil {
		return 0, err
	}
	defer munmapFile(data)

	if len(data) == 0 {
		return 0, nil
	}

	ranges := partitionLines(data, 8)
	channels := make([]chan string, len(ranges))
	for i, rng := range ranges {
		channels[i] = make(chan string, 64)
		go scanRange(data[rng.start:rng.end], channels[i])
	}

	inserted := 0
	for _, ch := range channels {
		for text := range ch {
			if text == "" {
				continue
			}
			ins.Add(text)
			inserted++
		}
	}
	return inserted, nil
}

func TestPartitionLinesNeverSplitsALine(t *testing.T) {
	data := []byte("one\ntwo\nthree\nfour\nfive\nsix\nseven\n")
	ranges := partitionLines(data, 3)

	var reconstructed []byte
	for _, r := range ranges {
		reconstructed = append(reconstructed, data[r.start:r.end]...)
	}
	assert.Equal(t, data, reconstructed)

	for _, r := range ranges[:len(ranges)-1] {
		assert.Equal(t, byte('\n'), data[r.end-1], "range %v does not end on a newline", r)
	}
}

func TestLoadReaderInsertsSequentially(t *testing.T) {
	ix := bloomidx.New()
	scanner := bufio.NewScanner(strings.NewReader("one\ntwo\nthree\n"))

	inserted, err := LoadReader(ix, scanner)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	assert.Equal(t, uint64(3), ix.Size())
}
