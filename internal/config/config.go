// Package config manages the JSON sidecar file that records an index's
// tokenizer and Bloom-parameter settings alongside its snapshot, so a
// reloaded index reconstructs documents with the same feature set it
// was built with.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Config is the persisted, user-facing configuration for an index.
type Config struct {
	// Prob is the target false-positive probability passed to
	// bloomparams.Estimate for every document added.
	Prob float64 `json:"prob"`
	// Enrich enables bigram/unigram enrichment in the tokenizer.
	Enrich bool `json:"enrich"`

	path string
	mu   sync.Mutex
}

// sidecarSuffix matches the naming convention of sibling sidecar files
// in this codebase (schema, update overrides): <snapshot path>_config.json.
const sidecarSuffix = "_config.json"

// PathFor derives the sidecar config path for a given snapshot path.
func PathFor(snapshotPath string) string {
	dir := filepath.Dir(snapshotPath)
	base := filepath.Base(snapshotPath)
	return filepath.Join(dir, base+sidecarSuffix)
}

// Default returns the canonical plain-trigram configuration.
func Default() Config {
	return Config{Prob: 0.01}
}

// Load reads the sidecar config for snapshotPath, returning Default()
// if no sidecar file exists yet.
func Load(snapshotPath string) (*Config, error) {
	path := PathFor(snapshotPath)
	c := Default()
	c.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
	}
	c.path = path
	return &c, nil
}

// Save persists c to its sidecar path.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}
