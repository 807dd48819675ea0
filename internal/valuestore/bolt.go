package valuestore

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var documentsBucket = []byte("documents")

// Bolt is a Store backed by a single-file bbolt database, for deployments
// that need the value store to survive process restarts without paying
// for a full external database.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("valuestore: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("valuestore: creating bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Put(key uint64, text string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Put(encodeKey(key), []byte(text))
	})
}

func (b *Bolt) Get(key uint64) (string, bool, error) {
	var text string
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(documentsBucket).Get(encodeKey(key))
		if v != nil {
			text = string(v)
			ok = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("valuestore: bolt get: %w", err)
	}
	return text, ok, nil
}

func (b *Bolt) Delete(key uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Delete(encodeKey(key))
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func encodeKey(key uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	return buf[:]
}
