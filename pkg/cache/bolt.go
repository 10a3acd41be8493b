package cache

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bolt is a durable Cache backed by a single bbolt database, one bucket
// per namespace. Buckets are created lazily on first Put/Get for a
// namespace, since the namespace set is fixed but this package does not
// hardcode it.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (creating if absent) a bbolt database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open bolt database: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Put(namespace, key, payload string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return fmt.Errorf("cache: create bucket %s: %w", namespace, err)
		}
		return bucket.Put([]byte(key), []byte(payload))
	})
}

func (b *Bolt) Get(namespace, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		value = string(data)
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("cache: get %s/%s: %w", namespace, key, err)
	}
	return value, found, nil
}
