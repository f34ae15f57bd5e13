package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BucketSlots holds one entry per slot key.
const BucketSlots = "slots"

// BoltSlot stores slots in a bbolt database file.
type BoltSlot struct {
	db *bolt.DB
}

// NewBoltSlot opens (or creates) the database and its bucket.
func NewBoltSlot(dbPath string) (*BoltSlot, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketSlots)); err != nil {
			return fmt.Errorf("create bucket %s: %w", BucketSlots, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltSlot{db: db}, nil
}

func (s *BoltSlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSlots))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSlots)
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid for the life of the transaction
			payload = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, payload != nil, nil
}

func (s *BoltSlot) Put(_ context.Context, key string, payload []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSlots))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketSlots)
		}
		return b.Put([]byte(key), payload)
	})
}

func (s *BoltSlot) Close() error {
	return s.db.Close()
}
