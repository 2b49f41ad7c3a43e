// Package storage provides the document store the prediction and
// notification records are written to. It uses BoltDB as the underlying
// engine: one bucket per collection, JSON-encoded documents keyed by id.
//
// The RecordStore interface is the capability the rest of the service
// depends on; handlers receive it injected so tests can substitute the
// in-memory implementation.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Collection names, mirroring the production document store.
const (
	CollectionPredictions   = "ai_predictions"
	CollectionNotifications = "notifications"
	CollectionPreferences   = "notificationPreferences"
)

// RecordStore is the document-store capability: put and get JSON documents
// by collection and id.
type RecordStore interface {
	Put(ctx context.Context, collection, id string, doc any) error
	Get(ctx context.Context, collection, id string, out any) (bool, error)
	Close() error
}

// BoltStore is the BoltDB-backed RecordStore.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the document database under dataPath.
func NewBoltStore(dataPath string) (*BoltStore, error) {
	dbPath := filepath.Join(dataPath, "occurrence-records.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{CollectionPredictions, CollectionNotifications, CollectionPreferences} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Put stores a document, overwriting any existing one under the same id.
func (s *BoltStore) Put(ctx context.Context, collection, id string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create %s bucket: %w", collection, err)
		}
		return b.Put([]byte(id), data)
	})
}

// Get unmarshals the document with the given id into out. The boolean
// reports whether the document exists.
func (s *BoltStore) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal document %s/%s: %w", collection, id, err)
	}
	return true, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
