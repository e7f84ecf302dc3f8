package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
)

// Database wraps the Badger key-value store used for ledger persistence.
type Database struct {
	db *badger.DB
}

// NewDatabase opens (or creates) the Badger database at path.
func NewDatabase(path string) (*Database, error) {
	// Remove any stale lock file left behind by an unclean shutdown
	lockFile := filepath.Join(path, "LOCK")
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing lock file: %v", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithDetectConflicts(false)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open Badger database: %v", err)
	}
	return &Database{db: db}, nil
}

// Set sets a key-value pair in the Badger database
func (d *Database) Set(key, value []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get retrieves a value for a given key from the Badger database
func (d *Database) Get(key []byte) ([]byte, error) {
	var valCopy []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	return valCopy, err
}

// Has reports whether the key exists.
func (d *Database) Has(key []byte) (bool, error) {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete deletes a key-value pair from the Badger database
func (d *Database) Delete(key []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// NotFound reports whether err is Badger's missing-key error.
func NotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

// Close closes the Badger database
func (d *Database) Close() {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Printf("Failed to close Badger database: %v", err)
		}
	}
}
