// Package recall answers questions about past conversation turns. The number of
// turns returned depends on how the question is phrased.
package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

// NotFoundMessage is shown when no past turn matches the query
const NotFoundMessage = "I couldn't find anything in our past chats related to that."

// TimeFormat is the human readable timestamp used in recall answers
const TimeFormat = "January 02, 2006 at 03:04 PM"

const (
	depthFirst   = 1
	depthAll     = 10
	depthSummary = 3
	depthDefault = 2
)

var depthRules = []struct {
	keywords []string
	depth    int
	first    bool
}{
	{keywords: []string{"first question", "initial query", "start of chat", "first ask"}, depth: depthFirst, first: true},
	{keywords: []string{"all", "entire", "everything", "full"}, depth: depthAll},
	{keywords: []string{"summarize", "summary", "gist"}, depth: depthSummary},
}

// Depth returns how many past turns a recall query asks for. first reports that
// the query asks for the earliest user turn rather than the most similar ones.
func Depth(query string) (depth int, first bool) {
	lowered := strings.ToLower(query)
	for _, rule := range depthRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.depth, rule.first
			}
		}
	}
	return depthDefault, false
}

// Result is the outcome of a recall query
type Result struct {
	Depth   int
	First   bool
	Matches []*model.RetrievalResult
}

// Found reports whether any past turn matched
func (r *Result) Found() bool {
	return r != nil && len(r.Matches) > 0
}

// String renders the result for direct display
func (r *Result) String() string {
	if !r.Found() {
		return NotFoundMessage
	}

	if r.First {
		m := r.Matches[0]
		return fmt.Sprintf("Your first question was %q (asked on %s).", m.Content, m.Timestamp.Format(TimeFormat))
	}

	lines := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		lines = append(lines, fmt.Sprintf("- [%s] %q (score: %.2f)", m.Timestamp.Format(TimeFormat), m.Content, m.Score))
	}
	return fmt.Sprintf("Here are your most relevant past questions (top %d):\n\n%s", r.Depth, strings.Join(lines, "\n"))
}

// Retriever searches conversation history for recall queries
type Retriever struct {
	store    repository.MemoryStore
	minScore float64
}

type Option func(*Retriever)

// WithMinScore drops matches scoring below score
func WithMinScore(score float64) Option {
	return func(r *Retriever) {
		r.minScore = score
	}
}

func New(store repository.MemoryStore, opts ...Option) *Retriever {
	// cosine similarity is never below -1
	r := &Retriever{store: store, minScore: -1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recall returns past user turns relevant to query. Nothing found is a Result
// with Found() == false, not an error.
func (r *Retriever) Recall(ctx context.Context, query string) (*Result, error) {
	depth, first := Depth(query)
	result := &Result{Depth: depth, First: first}

	logger := logging.From(ctx)
	logger.Debug("recall depth selected", "depth", depth, "first", first)

	if first {
		records, err := r.store.List(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list memory records")
		}
		for _, rec := range records {
			if rec.Role == model.RoleUser {
				result.Matches = []*model.RetrievalResult{{
					RecordID:  rec.ID,
					Content:   rec.Text,
					Role:      rec.Role,
					Score:     1,
					Timestamp: rec.Timestamp,
				}}
				break
			}
		}
		return result, nil
	}

	matches, err := r.store.Search(ctx, query, depth, repository.WithRole(model.RoleUser))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memory", goerr.V("depth", depth))
	}
	for _, m := range matches {
		if m.Score >= r.minScore {
			result.Matches = append(result.Matches, m)
		}
	}
	logger.Debug("recall matched", "count", len(result.Matches))

	return result, nil
}
