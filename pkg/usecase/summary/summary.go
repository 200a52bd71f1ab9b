package summary

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
)

const summarizeInstruction = "Summarize the following conversation in a few sentences. " +
	"Keep names, preferences, decisions and open questions. Reply with the summary only."

// Summarizer condenses conversation turns with a Generator
type Summarizer struct {
	gen interfaces.Generator
}

func New(gen interfaces.Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Summarize implements interfaces.Summarizer. No turns means an empty summary.
func (s *Summarizer) Summarize(ctx context.Context, turns []model.Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	resp, err := s.gen.Generate(ctx, []model.Message{
		model.SystemMessage(summarizeInstruction),
		model.UserMessage(Transcript(turns)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to summarize conversation", goerr.V("turns", len(turns)))
	}

	return strings.TrimSpace(resp), nil
}

// WebResult condenses web search snippets into an answer to query
func (s *Summarizer) WebResult(ctx context.Context, query, snippets string) (string, error) {
	resp, err := s.gen.Generate(ctx, []model.Message{
		model.SystemMessage("You summarize web search results for the user."),
		model.UserMessage("User asked: " + query + "\n\nWeb search returned the following:\n" + snippets +
			"\n\nAnswer clearly and briefly using this information."),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to summarize web result", goerr.V("query", query))
	}

	return strings.TrimSpace(resp), nil
}

// Transcript renders turns as "role: content" lines
func Transcript(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, string(turn.Role)+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

// TodayTurns returns turns on the same calendar day as now, in now's location
func TodayTurns(turns []model.Turn, now time.Time) []model.Turn {
	y, m, d := now.Date()
	var today []model.Turn
	for _, turn := range turns {
		ty, tm, td := turn.Timestamp.In(now.Location()).Date()
		if ty == y && tm == m && td == d {
			today = append(today, turn)
		}
	}
	return today
}
