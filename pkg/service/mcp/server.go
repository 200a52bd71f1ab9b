// Package mcp exposes the memory store, recall and profile retrieval as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/usecase/rag"
	"github.com/m-mizutani/mnemo/pkg/usecase/recall"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps are the components served as tools
type Deps struct {
	Store   repository.MemoryStore
	Recall  *recall.Retriever
	Profile *rag.RAG
	Now     func() time.Time
}

type recallParams struct {
	Query string `json:"query" jsonschema:"Question about past conversation, e.g. 'what was my first question'"`
}

type searchParams struct {
	Query string `json:"query" jsonschema:"Text to search for in past conversation turns"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of turns to return (default 5)"`
	Role  string `json:"role,omitempty" jsonschema:"Restrict results to 'user' or 'assistant' turns"`
}

type profileParams struct {
	Query     string  `json:"query" jsonschema:"Question about the user, e.g. 'where do I live'"`
	TopK      int     `json:"top_k,omitempty" jsonschema:"Number of profile facts to retrieve (default 3)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Minimum similarity of the best fact (default 0.7)"`
}

type rememberParams struct {
	Text string `json:"text" jsonschema:"Conversation turn to store"`
	Role string `json:"role,omitempty" jsonschema:"'user' (default) or 'assistant'"`
}

type handler struct {
	deps Deps
}

// NewServer creates an MCP server with the memory tools registered
func NewServer(deps Deps, version string) *mcp.Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{deps: deps}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mnemo",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_memory",
		Description: "Answer a question about past conversations with the user. Phrases like 'first question', 'everything' or 'summary' change how many turns are returned.",
	}, h.recall)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: "Semantic search over stored conversation turns, returning similarity scores",
	}, h.search)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_profile",
		Description: "Look up facts about the user from their long-term profile",
	}, h.queryProfile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a conversation turn so it can be recalled later",
	}, h.remember)

	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func (h *handler) recall(ctx context.Context, req *mcp.CallToolRequest, params *recallParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, nil, goerr.New("query is required")
	}

	result, err := h.deps.Recall.Recall(ctx, params.Query)
	if err != nil {
		return nil, nil, err
	}
	return textResult(result.String()), nil, nil
}

func (h *handler) search(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, nil, goerr.New("query is required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 5
	}

	var opts []repository.SearchOption
	if params.Role != "" {
		role := model.Role(params.Role)
		if err := role.Validate(); err != nil {
			return nil, nil, err
		}
		opts = append(opts, repository.WithRole(role))
	}

	results, err := h.deps.Store.Search(ctx, params.Query, limit, opts...)
	if err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return textResult("No stored turns yet."), nil, nil
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%.3f\t%s\t%s\t%s", r.Score, r.Timestamp.Format(time.RFC3339), r.Role, r.Content))
	}
	return textResult(strings.Join(lines, "\n")), nil, nil
}

func (h *handler) queryProfile(ctx context.Context, req *mcp.CallToolRequest, params *profileParams) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, nil, goerr.New("query is required")
	}

	var opts []rag.QueryOption
	if params.TopK > 0 {
		opts = append(opts, rag.WithTopK(params.TopK))
	}
	if params.Threshold > 0 {
		opts = append(opts, rag.WithThreshold(params.Threshold))
	}

	answer, err := h.deps.Profile.Query(ctx, params.Query, opts...)
	if err != nil {
		return nil, nil, err
	}
	return textResult(answer.String()), nil, nil
}

func (h *handler) remember(ctx context.Context, req *mcp.CallToolRequest, params *rememberParams) (*mcp.CallToolResult, any, error) {
	role := model.RoleUser
	if params.Role != "" {
		role = model.Role(params.Role)
	}

	rec, err := h.deps.Store.Add(ctx, params.Text, role, h.deps.Now())
	if err != nil {
		return nil, nil, err
	}
	logging.From(ctx).Info("turn stored via MCP", "id", rec.ID, "role", rec.Role)

	return textResult("Stored turn " + string(rec.ID)), nil, nil
}
