package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/codeatlas/codeatlas/internal/models"
)

const cacheBucket = "parsed_indexes"

// cacheRecord is the stored form of a parsed index file
type cacheRecord struct {
	ModTime time.Time           `json:"mod_time"`
	Entries []models.IndexEntry `json:"entries"`
}

// Cache keeps parsed index files in a bbolt database keyed by path.
// Entries are invalidated by modification time, so a regenerated index
// file is reparsed on next read.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens or creates the cache database
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Get returns cached entries for a path when the stored modification
// time matches
func (c *Cache) Get(path string, modTime time.Time) ([]models.IndexEntry, bool) {
	var record cacheRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cacheBucket))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		data := bucket.Get([]byte(path))
		if data == nil {
			return bolt.ErrBucketNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil || !record.ModTime.Equal(modTime) {
		return nil, false
	}
	return record.Entries, true
}

// Put stores parsed entries for a path
func (c *Cache) Put(path string, modTime time.Time, entries []models.IndexEntry) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		if err != nil {
			return err
		}
		data, err := json.Marshal(cacheRecord{ModTime: modTime, Entries: entries})
		if err != nil {
			return err
		}
		return bucket.Put([]byte(path), data)
	})
}

// Close closes the underlying database
func (c *Cache) Close() error {
	return c.db.Close()
}
