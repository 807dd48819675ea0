// Package server provides a Unix-domain-socket daemon exposing an
// Index's add/search operations to external clients over newline
// delimited JSON requests.
package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/csvquery/bloomidx"
	"github.com/csvquery/bloomidx/internal/config"
	"github.com/csvquery/bloomidx/internal/snapshot"
)

// DaemonConfig holds configuration for the Unix socket daemon.
type DaemonConfig struct {
	SocketPath     string
	SnapshotPath   string
	MaxConcurrency int
	IdleTimeout    time.Duration
	// Compress controls whether Shutdown's final snapshot write uses
	// lz4 compression.
	Compress bool
}

// UDSDaemon serves one Index over a Unix domain socket. Index.Add runs
// under the index's own single-writer lock, so concurrent "add"
// requests are already serialized correctly; UDSDaemon's semaphore
// only bounds total in-flight connections, not index access.
type UDSDaemon struct {
	config   DaemonConfig
	index    *bloomidx.Index
	listener net.Listener
	sem      chan struct{}
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewUDSDaemon creates a daemon serving ix.
func NewUDSDaemon(cfg DaemonConfig, ix *bloomidx.Index) *UDSDaemon {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 50
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = os.Getenv("BLOOMIDX_SOCKET")
		if cfg.SocketPath == "" {
			cfg.SocketPath = "/tmp/bloomidx.sock"
		}
	}

	return &UDSDaemon{
		config:   cfg,
		index:    ix,
		sem:      make(chan struct{}, cfg.MaxConcurrency),
		shutdown: make(chan struct{}),
	}
}

// Start binds the socket and serves connections until Shutdown is
// called or a SIGTERM/SIGINT is received.
func (d *UDSDaemon) Start() error {
	if _, err := os.Stat(d.config.SocketPath); err == nil {
		if err := os.Remove(d.config.SocketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", d.config.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to bind socket %s: %w", d.config.SocketPath, err)
	}
	d.listener = listener

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		d.Shutdown()
	}()

	fmt.Printf("bloomidx daemon started on %s (size=%d)\n", d.config.SocketPath, d.index.Size())

	for {
		select {
		case <-d.shutdown:
			return nil
		default:
		}

		if ul, ok := listener.(*net.UnixListener); ok {
			_ = ul.SetDeadline(time.Now().Add(1 * time.Second))
		}

		conn, err := listener.Accept()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				continue
			}
			select {
			case <-d.shutdown:
				return nil
			default:
				fmt.Fprintf(os.Stderr, "accept error: %v\n", err)
				continue
			}
		}

		d.wg.Add(1)
		go d.handleConnection(conn)
	}
}

// Shutdown stops accepting connections, drains in-flight requests, and
// persists a final snapshot if SnapshotPath is set.
func (d *UDSDaemon) Shutdown() {
	close(d.shutdown)
	if d.listener != nil {
		_ = d.listener.Close()
	}
	d.wg.Wait()
	_ = os.Remove(d.config.SocketPath)

	if d.config.SnapshotPath != "" {
		if err := d.persist(); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot on shutdown failed: %v\n", err)
		}
	}
	fmt.Println("bloomidx daemon shutdown complete")
}

func (d *UDSDaemon) persist() error {
	header := snapshot.Header{
		Prob:   d.index.Prob(),
		Enrich: d.index.Options().EnrichBigramsUnigrams,
		Size:   d.index.Size(),
	}
	if err := snapshot.WriteFile(d.config.SnapshotPath, header, d.index.Shards(), d.config.Compress); err != nil {
		return err
	}
	cfg, err := config.Load(d.config.SnapshotPath)
	if err != nil {
		return err
	}
	cfg.Prob = header.Prob
	cfg.Enrich = header.Enrich
	return cfg.Save()
}

func (d *UDSDaemon) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	defer func() { _ = conn.Close() }()

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-d.shutdown:
		return
	}

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-d.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(d.config.IdleTimeout))

		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		response := d.processRequest(line)

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_, _ = conn.Write(response)
		_, _ = conn.Write([]byte("\n"))
	}
}

// Request is the JSON shape of an incoming daemon request.
type Request struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	Query  string `json:"query,omitempty"`
	Key    uint64 `json:"key,omitempty"`
	Exact  bool   `json:"exact,omitempty"`
}

func (d *UDSDaemon) processRequest(data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return d.errorResponse("invalid JSON: " + err.Error())
	}

	switch req.Action {
	case "ping":
		return d.successResponse(map[string]interface{}{"pong": true})

	case "add":
		key := d.index.Add(req.Text)
		return d.successResponse(map[string]interface{}{"key": key})

	case "add_message":
		d.index.AddMessage(req.Text, req.Key)
		return d.successResponse(map[string]interface{}{"key": req.Key})

	case "search":
		keys := d.index.Search(req.Query, req.Exact)
		return d.successResponse(map[string]interface{}{"keys": keys})

	case "search_or":
		keys := d.index.SearchOr(req.Query)
		return d.successResponse(map[string]interface{}{"keys": keys})

	case "clear":
		d.index.Clear()
		return d.successResponse(map[string]interface{}{"cleared": true})

	case "status":
		return d.handleStatus()

	default:
		return d.errorResponse("unknown action: " + req.Action)
	}
}

func (d *UDSDaemon) handleStatus() []byte {
	return d.successResponse(map[string]interface{}{
		"status":     "running",
		"size":       d.index.Size(),
		"sizeBytes":  d.index.SizeBytes(),
		"prob":       d.index.Prob(),
		"socketPath": d.config.SocketPath,
	})
}

func (d *UDSDaemon) errorResponse(msg string) []byte {
	b, _ := json.Marshal(map[string]interface{}{"error": msg})
	return b
}

func (d *UDSDaemon) successResponse(data map[string]interface{}) []byte {
	data["error"] = nil
	b, _ := json.Marshal(data)
	return b
}

// RunDaemon is the entry point called from cmd/bloomidx's daemon
// subcommand: it loads an existing snapshot if present, then serves
// requests until shutdown.
func RunDaemon(cfg DaemonConfig) error {
	ix := bloomidx.New()

	if cfg.SnapshotPath != "" {
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			header, shards, err := snapshot.ReadFile(cfg.SnapshotPath)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}
			ix = bloomidx.FromSnapshot(shards, header.Size, header.Prob, header.EnrichOptions())
		}
	}

	daemon := NewUDSDaemon(cfg, ix)
	return daemon.Start()
}
