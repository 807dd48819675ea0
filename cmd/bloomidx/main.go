// Package main provides the bloomidx CLI - a small-footprint full-text
// search index over short text records.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/csvquery/bloomidx"
	"github.com/csvquery/bloomidx/internal/config"
	"github.com/csvquery/bloomidx/internal/loader"
	"github.com/csvquery/bloomidx/internal/ngram"
	"github.com/csvquery/bloomidx/internal/server"
	"github.com/csvquery/bloomidx/internal/snapshot"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-07-31"
)

var (
	shutdownChan = make(chan os.Signal, 1)
	cleanupFuncs []func()
)

func main() {
	setupSignalHandler()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "index":
		runIndex(os.Args[2:])
	case "search":
		runSearch(os.Args[2:])
	case "daemon":
		runDaemon(os.Args[2:])
	case "version":
		fmt.Printf("bloomidx v%s (%s)\n", Version, BuildDate)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupSignalHandler() {
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdownChan
		fmt.Fprintln(os.Stderr, "received shutdown signal, cleaning up...")
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
		os.Exit(130)
	}()
}

func printUsage() {
	fmt.Println(`bloomidx - small-footprint full-text search over a bit-sliced Bloom index

Usage:
    bloomidx <command> [arguments]

Commands:
    index    Bulk-load a newline-delimited text file and write a snapshot
    search   Search an existing snapshot
    daemon   Start a Unix domain socket server over a snapshot
    version  Show version
    help     Show this help

Use "bloomidx <command> --help" for command-specific options.`)
}

// runIndex handles the index command: loads --input into a fresh
// index and writes it (plus its JSON sidecar config) to --output.
func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)

	input := fs.String("input", "", "Input newline-delimited text file")
	output := fs.String("output", "", "Output snapshot path")
	prob := fs.Float64("prob", bloomidx.DefaultProb, "Target Bloom false-positive probability")
	enrich := fs.Bool("enrich", false, "Enrich tokenizer with bigrams and unigrams")
	compress := fs.Bool("compress", false, "lz4-compress the snapshot")

	_ = fs.Parse(args)

	probSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "prob" {
			probSet = true
		}
	})
	if *enrich && !probSet {
		*prob = bloomidx.EnrichedProb
	}

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Error: --input and --output are required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	ix := bloomidx.NewWithOptions(*prob, ngram.Options{EnrichBigramsUnigrams: *enrich})

	inserted, err := loader.LoadFile(ix, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Inserted %d lines\n", inserted)

	header := snapshot.Header{Prob: *prob, Enrich: *enrich, Size: ix.Size()}
	if err := snapshot.WriteFile(*output, header, ix.Shards(), *compress); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config sidecar: %v\n", err)
		os.Exit(1)
	}
	cfg.Prob = *prob
	cfg.Enrich = *enrich
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config sidecar: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote snapshot to %s (%d documents, %d bytes)\n", *output, ix.Size(), ix.SizeBytes())
}

// runSearch handles the search command: reads a snapshot and a single
// query from --query, or from stdin line by line when --query is empty.
func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	snapPath := fs.String("snapshot", "", "Snapshot path")
	query := fs.String("query", "", "Query text; if empty, read queries from stdin")
	or := fs.Bool("or", false, "Use search_or (union) instead of search (intersection)")
	exact := fs.Bool("exact", true, "Tokenize the query as one unit instead of per-word")

	_ = fs.Parse(args)

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --snapshot is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	header, shards, err := snapshot.ReadFile(*snapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading snapshot: %v\n", err)
		os.Exit(1)
	}
	ix := bloomidx.FromSnapshot(shards, header.Size, header.Prob, header.EnrichOptions())

	runOne := func(q string) {
		var keys []uint64
		if *or {
			keys = ix.SearchOr(q)
		} else {
			keys = ix.Search(q, *exact)
		}
		fmt.Printf("%v\n", keys)
	}

	if *query != "" {
		runOne(*query)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		runOne(scanner.Text())
	}
}

// runDaemon handles the daemon command.
func runDaemon(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)

	socket := fs.String("socket", "/tmp/bloomidx.sock", "Socket path")
	snapPath := fs.String("snapshot", "", "Snapshot path to load on start and save on shutdown")
	workers := fs.Int("workers", 50, "Max concurrent connections")
	compress := fs.Bool("compress", false, "lz4-compress the snapshot on shutdown")

	_ = fs.Parse(args)

	cfg := server.DaemonConfig{
		SocketPath:     *socket,
		SnapshotPath:   *snapPath,
		MaxConcurrency: *workers,
		Compress:       *compress,
	}

	if err := server.RunDaemon(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Daemon Error: %v\n", err)
		os.Exit(1)
	}
}
