// Package loader bulk-ingests a newline-delimited text file into an
// Index: the file is memory-mapped once, partitioned into
// runtime.NumCPU() byte ranges snapped to line boundaries, each range
// scanned for newlines in its own goroutine with internal/simd's SWAR
// scanner, and the resulting lines are drained in file order by a
// single collector goroutine that calls Index.Add sequentially —
// mirroring internal/indexer's mmap-scan-then-single-writer pipeline
// shape, generalized from CSV rows to arbitrary text lines.
package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/csvquery/bloomidx"
	"github.com/csvquery/bloomidx/internal/simd"
)

// LoadFile bulk-loads path, one document per line, into idx via Add.
// Empty lines are skipped. Line-splitting runs in parallel across
// workers, but every Add (and so every tokenization, which Add does)
// happens on one goroutine, in file order — the single-writer
// constraint (spec.md §5) and the parallel scan meet only at that
// boundary.
func LoadFile(idx *bloomidx.Index, path string) (inserted int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("loader: opening %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("loader: stat %s: %w", path, err)
	}

	data, err := mmapFile(f, stat.Size())
	if err != nil {
		return 0, err
	}
	defer munmapFile(data)

	if len(data) == 0 {
		return 0, nil
	}

	ranges := partitionLines(data, runtime.NumCPU())

	channels := make([]chan string, len(ranges))
	for i, rng := range ranges {
		channels[i] = make(chan string, 64)
		go scanRange(data[rng.start:rng.end], channels[i])
	}

	for _, ch := range channels {
		for text := range ch {
			if text == "" {
				continue
			}
			idx.Add(text)
			inserted++
		}
	}

	return inserted, nil
}

// byteRange is a contiguous, line-boundary-aligned slice of the mapped
// file: every range but the last ends immediately after a newline, so
// no line spans two ranges and draining ranges in order reproduces the
// file's own line order.
type byteRange struct {
	start, end int
}

// partitionLines splits data into up to workers contiguous ranges, each
// snapped forward to the next newline so lines are never split across
// a range boundary.
func partitionLines(data []byte, workers int) []byteRange {
	if workers < 1 {
		workers = 1
	}
	n := len(data)
	chunk := n / workers
	if chunk == 0 {
		return []byteRange{{0, n}}
	}

	ranges := make([]byteRange, 0, workers)
	start := 0
	for i := 0; i < workers-1 && start < n; i++ {
		idealEnd := start + chunk
		if idealEnd >= n {
			break
		}
		end := n
		if nl := bytes.IndexByte(data[idealEnd:], '\n'); nl >= 0 {
			end = idealEnd + nl + 1
		}
		ranges = append(ranges, byteRange{start, end})
		start = end
	}
	if start < n {
		ranges = append(ranges, byteRange{start, n})
	}
	return ranges
}

// scanRange finds every line in chunk with a SWAR newline scan and
// emits each line's text on out, closing out once the range is fully
// scanned.
func scanRange(chunk []byte, out chan<- string) {
	defer close(out)

	offsets := simd.IndexAllByte(nil, chunk, '\n')
	lineStart := 0
	for _, end := range offsets {
		out <- string(chunk[lineStart:end])
		lineStart = end + 1
	}
	if lineStart < len(chunk) {
		out <- string(chunk[lineStart:])
	}
}

// LoadReader is a non-mmap streaming variant for inputs that aren't
// seekable files (stdin pipes, sockets): it trades the parallel
// line-split for bufio.Scanner, inserting sequentially.
func LoadReader(idx *bloomidx.Index, r *bufio.Scanner) (inserted int, err error) {
	for r.Scan() {
		text := r.Text()
		if text == "" {
			continue
		}
		idx.Add(text)
		inserted++
	}
	if err := r.Err(); err != nil {
		return inserted, fmt.Errorf("loader: scanning input: %w", err)
	}
	return inserted, nil
}
