// Package cache keeps the build journal: one BoltDB record per source file
// describing its most recent compile.
//
// The journal never decides on its own whether a unit is up to date; object
// and dependency-cache mtimes do that. It records what happened:
//
//  1. Which object each source produced, and whether the compile succeeded
//  2. How long the compile took, and in which run
//  3. A fingerprint of the exact compile command line
//
// The fingerprint lets a build opt in to rebuilding units whose flags
// changed since their last compile.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// bucketName is the BoltDB bucket holding one entry per source file
const bucketName = "builds"

// Cache is the build journal backed by BoltDB
type Cache struct {
	db   *bbolt.DB
	path string
}

// Stats summarises the journal
type Stats struct {
	Entries  int
	Failures int

	// Most recent run, zero when the journal is empty
	LastRunID string
	LastRun   time.Time

	// Sum of the recorded compile durations
	TotalDuration time.Duration
}

// New opens (creating if needed) the journal at path
func New(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Cache{
		db:   db,
		path: path,
	}, nil
}

// OpenReadOnly opens an existing journal without taking the write lock, for
// callers that only look entries up
func OpenReadOnly(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	return &Cache{
		db:   db,
		path: path,
	}, nil
}

// Path of the journal file
func (c *Cache) Path() string {
	return c.path
}

// Close closes the journal database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Get returns the entry recorded for source, or nil if there is none
func (c *Cache) Get(source string) (*Entry, error) {
	var entry *Entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		data := b.Get([]byte(source))
		if data == nil {
			return nil
		}

		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal entry: %w", err)
	}

	return entry, nil
}

// Store records entries in a single transaction, replacing earlier entries
// for the same sources
func (c *Cache) Store(entries ...Entry) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}

			if err := b.Put([]byte(entry.Source), data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store journal entries: %w", err)
	}

	return nil
}

// Entries returns every entry, ordered by source path
func (c *Cache) Entries() ([]Entry, error) {
	var entries []Entry

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}

			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return entries, nil
}

// Clear removes all entries
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Stats returns journal statistics
func (c *Cache) Stats() (Stats, error) {
	entries, err := c.Entries()
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	s.Entries = len(entries)

	for _, e := range entries {
		if !e.Success {
			s.Failures++
		}

		s.TotalDuration += e.Duration

		if e.Timestamp.After(s.LastRun) {
			s.LastRun = e.Timestamp
			s.LastRunID = e.RunID
		}
	}

	return s, nil
}
