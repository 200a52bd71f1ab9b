package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	bolt "go.etcd.io/bbolt"
)

var memoryBucket = []byte("memories")

// Bolt is a MemoryStore persisted in a local bbolt file
type Bolt struct {
	db       *bolt.DB
	embedder interfaces.Embedder
}

// NewBolt opens (or creates) the store file at path
func NewBolt(path string, embedder interfaces.Embedder) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("path", path))
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open bolt database", goerr.V("path", path))
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(memoryBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create memory bucket")
	}

	return &Bolt{db: db, embedder: embedder}, nil
}

// Close releases the database file
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Add(ctx context.Context, text string, role model.Role, timestamp time.Time) (*model.MemoryRecord, error) {
	rec, err := newRecord(ctx, b.embedder, text, role, timestamp)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal record")
	}

	var stored *model.MemoryRecord
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(memoryBucket)
		if existing := bucket.Get([]byte(rec.ID)); existing != nil {
			var prev model.MemoryRecord
			if err := json.Unmarshal(existing, &prev); err != nil {
				return goerr.Wrap(err, "failed to unmarshal existing record", goerr.V("id", rec.ID))
			}
			stored = &prev
			return nil
		}

		stored = rec
		return bucket.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to put record", goerr.V("id", rec.ID))
	}

	return stored, nil
}

func (b *Bolt) Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]*model.RetrievalResult, error) {
	if topK < 1 {
		return []*model.RetrievalResult{}, nil
	}

	records, err := b.load()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []*model.RetrievalResult{}, nil
	}

	vec, err := embedQuery(ctx, b.embedder, query)
	if err != nil {
		return nil, err
	}

	return rankRecords(vec, records, topK, newSearchConfig(opts)), nil
}

func (b *Bolt) List(ctx context.Context) ([]*model.MemoryRecord, error) {
	records, err := b.load()
	if err != nil {
		return nil, err
	}
	sortChronological(records)
	return records, nil
}

func (b *Bolt) load() ([]*model.MemoryRecord, error) {
	var records []*model.MemoryRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(memoryBucket).ForEach(func(k, v []byte) error {
			var rec model.MemoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return goerr.Wrap(err, "failed to unmarshal record", goerr.V("id", string(k)))
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load records")
	}
	return records, nil
}
