package interfaces

import (
	"context"

	"github.com/m-mizutani/mnemo/pkg/model"
)

// Embedder converts text into a fixed-length vector. It must be deterministic
// for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier assigns an intent label to a query given the recent conversation.
// The label is free-form text; callers resolve it with model.ParseIntent.
type Classifier interface {
	Classify(ctx context.Context, query string, recent []model.Turn) (string, error)
}

// Generator produces a single-shot text completion
type Generator interface {
	Generate(ctx context.Context, messages []model.Message) (string, error)
}

// WebSearcher returns text snippets for a query, or an empty string when nothing is found
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Locator looks up the user's location. It returns nil when the location is unknown.
type Locator interface {
	Locate(ctx context.Context) (*model.Location, error)
}

// Summarizer condenses conversation turns into a short text
type Summarizer interface {
	Summarize(ctx context.Context, turns []model.Turn) (string, error)
}
