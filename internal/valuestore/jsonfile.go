package valuestore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONFile persists key->text pairs to a single JSON sidecar file, in
// the style of updatemgr.UpdateManager's offset->column->value sidecar:
// load once at construction, rewrite the whole file on every Put and
// Delete (Close writes nothing). JSON object keys must be strings, so
// keys are formatted with fmt.Sprintf("%d", key) and kept in that
// string form in memory as well.
type JSONFile struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// OpenJSONFile loads path if it exists, or starts empty.
func OpenJSONFile(path string) (*JSONFile, error) {
	j := &JSONFile{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valuestore: reading %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &j.data); err != nil {
			return nil, fmt.Errorf("valuestore: parsing %s: %w", path, err)
		}
	}
	return j, nil
}

func (j *JSONFile) Put(key uint64, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[keyString(key)] = text
	return j.saveLocked()
}

func (j *JSONFile) Get(key uint64) (string, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	text, ok := j.data[keyString(key)]
	return text, ok, nil
}

func (j *JSONFile) Delete(key uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.data, keyString(key))
	return j.saveLocked()
}

func (j *JSONFile) Close() error { return nil }

func (j *JSONFile) saveLocked() error {
	raw, err := json.MarshalIndent(j.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, raw, 0644)
}

func keyString(key uint64) string {
	return fmt.Sprintf("%d", key)
}
