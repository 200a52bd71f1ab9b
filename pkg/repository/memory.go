package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
)

// Memory is an in-process MemoryStore. Records live for the lifetime of the process.
type Memory struct {
	embedder interfaces.Embedder

	mu      sync.RWMutex
	records []*model.MemoryRecord
	index   map[model.RecordID]*model.MemoryRecord
}

// NewMemory creates an empty in-process store
func NewMemory(embedder interfaces.Embedder) *Memory {
	return &Memory{
		embedder: embedder,
		index:    make(map[model.RecordID]*model.MemoryRecord),
	}
}

func (m *Memory) Add(ctx context.Context, text string, role model.Role, timestamp time.Time) (*model.MemoryRecord, error) {
	rec, err := newRecord(ctx, m.embedder, text, role, timestamp)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.index[rec.ID]; ok {
		return existing, nil
	}
	m.records = append(m.records, rec)
	m.index[rec.ID] = rec

	return rec, nil
}

func (m *Memory) Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]*model.RetrievalResult, error) {
	if topK < 1 || m.Len() == 0 {
		return []*model.RetrievalResult{}, nil
	}

	vec, err := embedQuery(ctx, m.embedder, query)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return rankRecords(vec, m.records, topK, newSearchConfig(opts)), nil
}

func (m *Memory) List(ctx context.Context) ([]*model.MemoryRecord, error) {
	m.mu.RLock()
	records := make([]*model.MemoryRecord, len(m.records))
	copy(records, m.records)
	m.mu.RUnlock()

	sortChronological(records)
	return records, nil
}

// Len returns the number of stored records
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
