// Package mock provides deterministic embedders for tests.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// KeywordEmbedder maps each configured keyword to one axis. A text's vector counts
// keyword occurrences (case-insensitive) plus a small constant bias axis so that
// texts without keywords are not zero vectors.
type KeywordEmbedder struct {
	keywords []string
}

// NewKeywordEmbedder creates an embedder over the given keyword axes
func NewKeywordEmbedder(keywords ...string) *KeywordEmbedder {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &KeywordEmbedder{keywords: lowered}
}

func (k *KeywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(k.keywords)+1)
	for i, kw := range k.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(k.keywords)] = 0.1
	return vec, nil
}

// StaticEmbedder returns preset vectors per exact text and records calls
type StaticEmbedder struct {
	vectors  map[string][]float32
	fallback []float32

	mu    sync.Mutex
	calls []string
}

// NewStaticEmbedder creates an embedder answering from vectors. Unknown texts get
// fallback, or an error when fallback is nil.
func NewStaticEmbedder(vectors map[string][]float32, fallback []float32) *StaticEmbedder {
	return &StaticEmbedder{vectors: vectors, fallback: fallback}
}

func (s *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()

	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, goerr.New("no vector for text", goerr.V("text", text))
}

// Calls returns texts passed to Embed so far
func (s *StaticEmbedder) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}
