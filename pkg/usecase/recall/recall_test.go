package recall_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/adapter/mock"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/usecase/recall"
)

func TestDepth(t *testing.T) {
	tests := []struct {
		query string
		depth int
		first bool
	}{
		{query: "What was my first question?", depth: 1, first: true},
		{query: "what did I first ask", depth: 1, first: true},
		{query: "Go back to the START OF CHAT", depth: 1, first: true},
		{query: "show me everything we discussed", depth: 10},
		{query: "the entire conversation please", depth: 10},
		{query: "first question and all the rest", depth: 1, first: true},
		{query: "give me the gist", depth: 3},
		{query: "summarize what I said", depth: 3},
		{query: "what did I say about coffee", depth: 2},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			depth, first := recall.Depth(tc.query)
			gt.Equal(t, depth, tc.depth)
			gt.Equal(t, first, tc.first)
		})
	}
}

func seedStore(t *testing.T, n int) (*repository.Memory, time.Time) {
	store := repository.NewMemory(adapter.NewHashEmbedder(64))
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range n {
		_, err := store.Add(context.Background(), fmt.Sprintf("synthetic question %d", i), model.RoleUser, base.Add(time.Duration(i)*time.Minute))
		gt.NoError(t, err)
	}
	return store, base
}

func TestRecallMonotonicDepth(t *testing.T) {
	store, base := seedStore(t, 15)
	r := recall.New(store)
	ctx := context.Background()

	tests := []struct {
		query string
		count int
	}{
		{query: "show me everything", count: 10},
		{query: "give me the gist", count: 3},
		{query: "what did I say", count: 2},
		{query: "what was my first question", count: 1},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			result, err := r.Recall(ctx, tc.query)
			gt.NoError(t, err)
			gt.True(t, result.Found())
			gt.A(t, result.Matches).Length(tc.count)
		})
	}

	result, err := r.Recall(ctx, "what was my first question")
	gt.NoError(t, err)
	gt.Equal(t, result.Matches[0].Content, "synthetic question 0")
	gt.Equal(t, result.Matches[0].Timestamp, base)
}

func TestRecallFirstQuestionScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(adapter.NewHashEmbedder(64))
	t1 := time.Date(2025, 3, 1, 14, 5, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	_, err := store.Add(ctx, "My name is Alex", model.RoleUser, t1)
	gt.NoError(t, err)
	_, err = store.Add(ctx, "Nice to meet you Alex", model.RoleAssistant, t2)
	gt.NoError(t, err)

	result, err := recall.New(store).Recall(ctx, "what did I first ask")
	gt.NoError(t, err)
	gt.Equal(t, result.Depth, 1)
	gt.A(t, result.Matches).Length(1)
	gt.Equal(t, result.Matches[0].Content, "My name is Alex")
	gt.Equal(t, result.Matches[0].Timestamp, t1)
	gt.Equal(t, result.String(), `Your first question was "My name is Alex" (asked on March 01, 2025 at 02:05 PM).`)
}

func TestRecallNothingFound(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(adapter.NewHashEmbedder(64))
	r := recall.New(store)

	result, err := r.Recall(ctx, "what did I say about coffee")
	gt.NoError(t, err)
	gt.False(t, result.Found())
	gt.Equal(t, result.String(), recall.NotFoundMessage)

	result, err = r.Recall(ctx, "what was my first question")
	gt.NoError(t, err)
	gt.False(t, result.Found())
	gt.Equal(t, result.String(), recall.NotFoundMessage)
}

func TestRecallIgnoresAssistantTurns(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(mock.NewKeywordEmbedder("coffee"))
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := store.Add(ctx, "coffee coffee coffee", model.RoleAssistant, ts)
	gt.NoError(t, err)

	result, err := recall.New(store).Recall(ctx, "what did I say about coffee")
	gt.NoError(t, err)
	gt.False(t, result.Found())
}

func TestRecallFormatting(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(mock.NewKeywordEmbedder("coffee", "tea"))
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	_, err := store.Add(ctx, "I like coffee", model.RoleUser, ts)
	gt.NoError(t, err)

	result, err := recall.New(store).Recall(ctx, "coffee")
	gt.NoError(t, err)
	gt.A(t, result.Matches).Length(1)
	gt.Equal(t, result.String(), "Here are your most relevant past questions (top 2):\n\n"+
		`- [March 01, 2025 at 09:30 AM] "I like coffee" (score: 1.00)`)
}

func TestRecallMinScore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory(mock.NewKeywordEmbedder("coffee", "tea"))
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	_, err := store.Add(ctx, "I like tea", model.RoleUser, ts)
	gt.NoError(t, err)

	result, err := recall.New(store, recall.WithMinScore(0.5)).Recall(ctx, "coffee")
	gt.NoError(t, err)
	gt.False(t, result.Found())
}

type brokenStore struct {
	repository.MemoryStore
}

func (brokenStore) Search(ctx context.Context, query string, topK int, opts ...repository.SearchOption) ([]*model.RetrievalResult, error) {
	return nil, errors.New("embedding service down")
}

func TestRecallPropagatesStoreError(t *testing.T) {
	_, err := recall.New(brokenStore{}).Recall(context.Background(), "what did I say")
	gt.Error(t, err)
}
