package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const formatVersion = "1"

// Bucket names
var (
	ConfigBucket   = []byte("config")   // format version, timestamps
	PayloadsBucket = []byte("payloads") // journal entries
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

var (
	ErrEntryNotFound  = errors.New("journal entry not found")
	ErrNotInitialized = errors.New("journal not initialized")
)

// Storage provides BBolt-based storage for the payload journal
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a journal database, creating parent directories
// with owner-only permissions.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database. It is a no-op when a failed Compact left no
// open handle.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates the bucket structure. It is idempotent.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, PayloadsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}

		if err := config.Put(ConfigVersion, []byte(formatVersion)); err != nil {
			return err
		}

		now, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, now); err != nil {
			return err
		}
		return config.Put(ConfigModified, now)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Put stores a new entry and returns it with ID, Created and Size filled in
func (s *Storage) Put(entry Entry) (Entry, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		payloads := tx.Bucket(PayloadsBucket)
		if payloads == nil {
			return ErrNotInitialized
		}

		seq, err := payloads.NextSequence()
		if err != nil {
			return err
		}

		entry.ID = FormatID(seq)
		if entry.Created.IsZero() {
			entry.Created = time.Now()
		}
		entry.Size = len(entry.Payload)

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := payloads.Put([]byte(entry.ID), data); err != nil {
			return err
		}

		return touch(tx)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to store entry: %w", err)
	}
	return entry, nil
}

// Get returns a single entry
func (s *Storage) Get(id string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		payloads := tx.Bucket(PayloadsBucket)
		if payloads == nil {
			return ErrNotInitialized
		}
		data := payloads.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// List returns all entries, oldest first
func (s *Storage) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		payloads := tx.Bucket(PayloadsBucket)
		if payloads == nil {
			return ErrNotInitialized
		}
		return payloads.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// Count returns the number of entries
func (s *Storage) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		payloads := tx.Bucket(PayloadsBucket)
		if payloads == nil {
			return ErrNotInitialized
		}
		n = payloads.Stats().KeyN
		return nil
	})
	return n, err
}

// Delete removes an entry
func (s *Storage) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		payloads := tx.Bucket(PayloadsBucket)
		if payloads == nil {
			return ErrNotInitialized
		}
		if payloads.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		if err := payloads.Delete([]byte(id)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// touch updates the modified timestamp within tx
func touch(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return ErrNotInitialized
	}
	modified, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, modified)
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting entries, since bbolt never shrinks the file.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets, sequences included so IDs are never reused
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}
	s.db = nil

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	db, err := bolt.Open(srcPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	s.db = db

	return nil
}
