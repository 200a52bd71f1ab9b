package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/adapter/mock"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type storeFactory func(t *testing.T, embedder interfaces.Embedder) repository.MemoryStore

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, embedder interfaces.Embedder) repository.MemoryStore {
			return repository.NewMemory(embedder)
		},
		"bolt": func(t *testing.T, embedder interfaces.Embedder) repository.MemoryStore {
			store, err := repository.NewBolt(filepath.Join(t.TempDir(), "memory.db"), embedder)
			gt.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func newKeywordEmbedder() *mock.KeywordEmbedder {
	return mock.NewKeywordEmbedder("coffee", "marathon", "python", "name")
}

func TestSearchEmptyStore(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, newKeywordEmbedder())

			results, err := store.Search(context.Background(), "anything", 5)
			gt.NoError(t, err)
			gt.V(t, results).NotNil()
			gt.A(t, results).Length(0)
		})
	}
}

func TestSearchOrdering(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			_, err := store.Add(ctx, "I love coffee in the morning", model.RoleUser, baseTime)
			gt.NoError(t, err)
			_, err = store.Add(ctx, "Training for a marathon this spring", model.RoleUser, baseTime.Add(time.Minute))
			gt.NoError(t, err)
			_, err = store.Add(ctx, "Writing python scripts", model.RoleAssistant, baseTime.Add(2*time.Minute))
			gt.NoError(t, err)

			results, err := store.Search(ctx, "marathon", 2)
			gt.NoError(t, err)
			gt.A(t, results).Length(2)
			gt.Equal(t, results[0].Content, "Training for a marathon this spring")
			gt.True(t, results[0].Score > results[1].Score)
		})
	}
}

func TestSearchFewerThanTopK(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			_, err := store.Add(ctx, "coffee", model.RoleUser, baseTime)
			gt.NoError(t, err)

			results, err := store.Search(ctx, "coffee", 10)
			gt.NoError(t, err)
			gt.A(t, results).Length(1)

			results, err = store.Search(ctx, "coffee", 0)
			gt.NoError(t, err)
			gt.A(t, results).Length(0)
		})
	}
}

func TestSearchDeterministic(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, adapter.NewHashEmbedder(32))

			for i := range 12 {
				_, err := store.Add(ctx, fmt.Sprintf("turn number %d", i), model.RoleUser, baseTime.Add(time.Duration(i)*time.Second))
				gt.NoError(t, err)
			}

			first, err := store.Search(ctx, "turn number 3", 5)
			gt.NoError(t, err)
			for range 5 {
				again, err := store.Search(ctx, "turn number 3", 5)
				gt.NoError(t, err)
				gt.A(t, again).Length(len(first))
				for i := range first {
					gt.Equal(t, again[i].RecordID, first[i].RecordID)
					gt.Equal(t, again[i].Score, first[i].Score)
				}
			}
			gt.Equal(t, first[0].Content, "turn number 3")
		})
	}
}

func TestSearchTieBreaksByRecency(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			older, err := store.Add(ctx, "coffee again", model.RoleUser, baseTime)
			gt.NoError(t, err)
			newer, err := store.Add(ctx, "coffee again", model.RoleUser, baseTime.Add(time.Hour))
			gt.NoError(t, err)
			gt.NotEqual(t, older.ID, newer.ID)

			results, err := store.Search(ctx, "coffee", 2)
			gt.NoError(t, err)
			gt.A(t, results).Length(2)
			gt.Equal(t, results[0].RecordID, newer.ID)
			gt.Equal(t, results[1].RecordID, older.ID)
		})
	}
}

func TestAddIdempotent(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			a, err := store.Add(ctx, "My name is Alex", model.RoleUser, baseTime)
			gt.NoError(t, err)
			b, err := store.Add(ctx, "My name is Alex", model.RoleUser, baseTime)
			gt.NoError(t, err)
			gt.Equal(t, a.ID, b.ID)

			records, err := store.List(ctx)
			gt.NoError(t, err)
			gt.A(t, records).Length(1)
		})
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			_, err := store.Add(ctx, "   ", model.RoleUser, baseTime)
			gt.True(t, errors.Is(err, repository.ErrEmptyText))

			_, err = store.Add(ctx, "hello", model.Role("system"), baseTime)
			gt.True(t, errors.Is(err, model.ErrInvalidRole))
		})
	}
}

func TestSearchWithRole(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			_, err := store.Add(ctx, "do you like coffee", model.RoleUser, baseTime)
			gt.NoError(t, err)
			_, err = store.Add(ctx, "coffee coffee coffee", model.RoleAssistant, baseTime.Add(time.Minute))
			gt.NoError(t, err)

			results, err := store.Search(ctx, "coffee", 5, repository.WithRole(model.RoleUser))
			gt.NoError(t, err)
			gt.A(t, results).Length(1)
			gt.Equal(t, results[0].Role, model.RoleUser)
		})
	}
}

func TestListChronological(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, newKeywordEmbedder())

			_, err := store.Add(ctx, "third", model.RoleUser, baseTime.Add(2*time.Minute))
			gt.NoError(t, err)
			_, err = store.Add(ctx, "first", model.RoleUser, baseTime)
			gt.NoError(t, err)
			_, err = store.Add(ctx, "second", model.RoleAssistant, baseTime.Add(time.Minute))
			gt.NoError(t, err)

			records, err := store.List(ctx)
			gt.NoError(t, err)
			gt.A(t, records).Length(3)
			gt.Equal(t, records[0].Text, "first")
			gt.Equal(t, records[1].Text, "second")
			gt.Equal(t, records[2].Text, "third")
		})
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, goerr.New("embedding service unavailable")
}

func TestAddPropagatesEmbeddingFailure(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, failingEmbedder{})

			_, err := store.Add(ctx, "hello", model.RoleUser, baseTime)
			gt.Error(t, err)

			records, err := store.List(ctx)
			gt.NoError(t, err)
			gt.A(t, records).Length(0)
		})
	}
}

func TestMemoryConcurrentAddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(adapter.NewHashEmbedder(16))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Add(ctx, fmt.Sprintf("message %d", i), model.RoleUser, baseTime.Add(time.Duration(i)*time.Second))
			gt.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			results, err := store.Search(ctx, "message", 5)
			gt.NoError(t, err)
			for _, r := range results {
				gt.True(t, r.Content != "")
			}
		}()
	}
	wg.Wait()

	gt.Equal(t, store.Len(), 50)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")
	embedder := newKeywordEmbedder()

	store, err := repository.NewBolt(path, embedder)
	gt.NoError(t, err)
	_, err = store.Add(ctx, "I drink coffee daily", model.RoleUser, baseTime)
	gt.NoError(t, err)
	gt.NoError(t, store.Close())

	reopened, err := repository.NewBolt(path, embedder)
	gt.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "coffee", 3)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].Content, "I drink coffee daily")
	gt.True(t, results[0].Timestamp.Equal(baseTime))
}

func TestCosineSimilarity(t *testing.T) {
	gt.Equal(t, repository.CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1.0)
	gt.Equal(t, repository.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0)
	gt.Equal(t, repository.CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), 0.0)
	gt.Equal(t, repository.CosineSimilarity([]float32{0, 0}, []float32{1, 0}), 0.0)
}
