package adapter

import (
	"context"
	_ "embed"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"google.golang.org/genai"
)

//go:embed prompt/classify.md
var classifyPrompt string

// ErrNoCandidate is returned when the model response carries no text
var ErrNoCandidate = goerr.New("no candidate in response")

// Gemini provides generation, embedding and intent classification backed by Gemini
type Gemini struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	dimensions      int32

	apiKey   string
	project  string
	location string
}

type GeminiOption func(*Gemini)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *Gemini) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *Gemini) {
		g.embeddingModel = model
	}
}

// WithEmbeddingDimensions sets the output dimensionality of embeddings.
// Firestore vector indexes accept at most 2048 dimensions.
func WithEmbeddingDimensions(dim int32) GeminiOption {
	return func(g *Gemini) {
		g.dimensions = dim
	}
}

// WithAPIKey switches the client to the Gemini API backend
func WithAPIKey(apiKey string) GeminiOption {
	return func(g *Gemini) {
		g.apiKey = apiKey
	}
}

// WithVertexAI switches the client to the Vertex AI backend
func WithVertexAI(project, location string) GeminiOption {
	return func(g *Gemini) {
		g.project = project
		g.location = location
	}
}

// NewGemini creates a Gemini client. Either WithAPIKey or WithVertexAI is required.
func NewGemini(ctx context.Context, opts ...GeminiOption) (*Gemini, error) {
	g := &Gemini{
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		dimensions:      768,
	}
	for _, opt := range opts {
		opt(g)
	}

	cfg := &genai.ClientConfig{}
	switch {
	case g.apiKey != "":
		cfg.APIKey = g.apiKey
		cfg.Backend = genai.BackendGeminiAPI
	case g.project != "":
		cfg.Project = g.project
		cfg.Location = g.location
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("gemini API key or Vertex AI project is required")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

// Generate implements interfaces.Generator. System messages become the system instruction.
func (g *Gemini) Generate(ctx context.Context, messages []model.Message) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.MessageRoleSystem:
			system = append(system, msg.Content)
		case model.MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", goerr.New("no message to generate from")
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), "")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}

	return responseText(resp)
}

// Embed implements interfaces.Embedder
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := g.dimensions
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", g.embeddingModel))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response", goerr.V("model", g.embeddingModel))
	}

	return resp.Embeddings[0].Values, nil
}

// Classify implements interfaces.Classifier. The response is constrained to the
// intent labels, but callers still treat it as free text.
func (g *Gemini) Classify(ctx context.Context, query string, recent []model.Turn) (string, error) {
	labels := make([]string, 0, len(model.Intents()))
	for _, intent := range model.Intents() {
		labels = append(labels, string(intent))
	}

	var b strings.Builder
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			b.WriteString(string(turn.Role) + ": " + turn.Content + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Query: " + query)

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(classifyPrompt, ""),
		ResponseMIMEType:  "text/x.enum",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeString,
			Enum: labels,
		},
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(b.String(), genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to classify query", goerr.V("query", query))
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidate
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrNoCandidate
	}

	return text.String(), nil
}
