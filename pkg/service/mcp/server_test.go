package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/adapter/mock"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/mcp"
	"github.com/m-mizutani/mnemo/pkg/usecase/rag"
	"github.com/m-mizutani/mnemo/pkg/usecase/recall"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func connect(t *testing.T) (*mcpsdk.ClientSession, *repository.Memory) {
	ctx := context.Background()
	embedder := mock.NewKeywordEmbedder("name", "coffee", "city")
	store := repository.NewMemory(embedder)
	profiles := repository.NewProfileMemory(model.ProfileFact{Key: "city", Value: "Lisbon"})
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	server := mcp.NewServer(mcp.Deps{
		Store:   store,
		Recall:  recall.New(store),
		Profile: rag.New(profiles, embedder),
		Now: func() time.Time {
			now = now.Add(time.Minute)
			return now
		},
	}, "test")

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverTransport, nil)
	gt.NoError(t, err)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session, store
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) string {
	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	gt.False(t, result.IsError)
	gt.A(t, result.Content).Length(1)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return text.Text
}

func TestListTools(t *testing.T) {
	session, _ := connect(t)

	tools, err := session.ListTools(context.Background(), nil)
	gt.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	gt.True(t, names["recall_memory"])
	gt.True(t, names["search_memory"])
	gt.True(t, names["query_profile"])
	gt.True(t, names["remember"])
}

func TestRememberAndRecall(t *testing.T) {
	session, store := connect(t)

	text := callText(t, session, "remember", map[string]any{"text": "My name is Alex"})
	gt.S(t, text).Contains("Stored turn")
	callText(t, session, "remember", map[string]any{"text": "I drink coffee daily"})
	gt.Equal(t, store.Len(), 2)

	text = callText(t, session, "recall_memory", map[string]any{"query": "what was my first question"})
	gt.S(t, text).Contains(`"My name is Alex"`)

	text = callText(t, session, "search_memory", map[string]any{"query": "coffee", "limit": 1})
	gt.S(t, text).Contains("I drink coffee daily")
}

func TestQueryProfile(t *testing.T) {
	session, _ := connect(t)

	text := callText(t, session, "query_profile", map[string]any{"query": "which city do I live in"})
	gt.Equal(t, text, "Here's what I know about you:\n- city: Lisbon")
}

func TestSearchEmptyStore(t *testing.T) {
	session, _ := connect(t)

	text := callText(t, session, "search_memory", map[string]any{"query": "coffee"})
	gt.Equal(t, text, "No stored turns yet.")
}

func TestRecallRequiresQuery(t *testing.T) {
	session, _ := connect(t)

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "recall_memory",
		Arguments: map[string]any{"query": ""},
	})
	// tool handler errors are reported as tool results, not protocol errors
	gt.NoError(t, err)
	gt.True(t, result.IsError)
}
