// Package main benchmarks bloomidx's Add and Search throughput against
// a synthetic corpus of short text documents.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/csvquery/bloomidx"
)

var words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf",
	"hotel", "india", "juliet", "kilo", "lima", "mike", "november",
	"oscar", "papa", "quebec", "romeo", "sierra", "tango", "uniform",
	"victor", "whiskey", "xray", "yankee", "zulu",
}

func main() {
	docs := 200_000
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			docs = n
		}
	}

	fmt.Printf("Generating %d synthetic documents...\n", docs)
	rng := rand.New(rand.NewSource(123))
	texts := make([]string, docs)
	for i := range texts {
		texts[i] = randomSentence(rng)
	}

	ix := bloomidx.New()

	fmt.Println("Benchmarking Add...")
	start := time.Now()
	for _, t := range texts {
		ix.Add(t)
	}
	addElapsed := time.Since(start)

	fmt.Println("Benchmarking Search...")
	start = time.Now()
	queries := 1000
	for i := 0; i < queries; i++ {
		ix.Search(texts[i%len(texts)], true)
	}
	searchElapsed := time.Since(start)

	fmt.Printf("\n--------------------------------------------------\n")
	fmt.Printf("Documents:        %d\n", docs)
	fmt.Printf("Index size:       %d bytes\n", ix.SizeBytes())
	fmt.Printf("Add throughput:   %.0f docs/s (%v total)\n", float64(docs)/addElapsed.Seconds(), addElapsed)
	fmt.Printf("Search latency:   %v/query (%d queries)\n", searchElapsed/time.Duration(queries), queries)
	fmt.Printf("--------------------------------------------------\n")
}

func randomSentence(rng *rand.Rand) string {
	n := 4 + rng.Intn(6)
	s := words[rng.Intn(len(words))]
	for i := 1; i < n; i++ {
		s += " " + words[rng.Intn(len(words))]
	}
	return s
}
