package repository

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
)

// CosineSimilarity calculates cosine similarity between two vectors.
// Vectors of different length or zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// newRecord embeds text and builds a complete record before any store sees it
func newRecord(ctx context.Context, embedder interfaces.Embedder, text string, role model.Role, timestamp time.Time) (*model.MemoryRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyText, "refusing to store empty text")
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}

	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text", goerr.V("role", role))
	}
	embedding := make([]float32, len(vec))
	copy(embedding, vec)

	return &model.MemoryRecord{
		ID:        model.NewRecordID(text, timestamp),
		Text:      text,
		Role:      role,
		Timestamp: timestamp,
		Embedding: embedding,
	}, nil
}

func embedQuery(ctx context.Context, embedder interfaces.Embedder, query string) ([]float32, error) {
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	return vec, nil
}

// compareResults orders by score descending, then newer first, then by ID
func compareResults(a, b *model.RetrievalResult) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.RecordID, b.RecordID)
}

func sortResults(results []*model.RetrievalResult) {
	slices.SortFunc(results, compareResults)
}

// rankRecords scores all matching records against the query vector and keeps the best topK
func rankRecords(query []float32, records []*model.MemoryRecord, topK int, cfg searchConfig) []*model.RetrievalResult {
	results := make([]*model.RetrievalResult, 0, len(records))
	for _, rec := range records {
		if !cfg.match(rec) {
			continue
		}
		results = append(results, toResult(rec, CosineSimilarity(query, rec.Embedding)))
	}

	sortResults(results)

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func toResult(rec *model.MemoryRecord, score float64) *model.RetrievalResult {
	return &model.RetrievalResult{
		RecordID:  rec.ID,
		Content:   rec.Text,
		Role:      rec.Role,
		Score:     score,
		Timestamp: rec.Timestamp,
	}
}

func sortChronological(records []*model.MemoryRecord) {
	slices.SortFunc(records, func(a, b *model.MemoryRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
