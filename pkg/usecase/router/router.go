// Package router classifies each query by intent and dispatches it to the
// matching retrieval strategy, falling back to generation when retrieval has
// nothing useful.
package router

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/usecase/rag"
	"github.com/m-mizutani/mnemo/pkg/usecase/recall"
	"github.com/m-mizutani/mnemo/pkg/usecase/summary"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

const (
	classifyWindow = 5
	reflectWindow  = 6

	// web results with fewer characters than this are treated as no result
	minWebSnippetLen = 20

	locationNotFoundMessage = "Sorry, I couldn't detect your location."
)

// ErrEmptyGeneration is returned when the generator produced only whitespace
var ErrEmptyGeneration = goerr.New("generator returned an empty reply")

var (
	//go:embed prompt/reflect.md
	reflectPromptRaw string
	//go:embed prompt/personal.md
	personalPromptRaw string
	//go:embed prompt/web.md
	webPromptRaw string
	//go:embed prompt/general.md
	generalPromptRaw string

	reflectPromptTmpl  = template.Must(template.New("reflect").Parse(reflectPromptRaw))
	personalPromptTmpl = template.Must(template.New("personal").Parse(personalPromptRaw))
	webPromptTmpl      = template.Must(template.New("web").Parse(webPromptRaw))
	generalPromptTmpl  = template.Must(template.New("general").Parse(generalPromptRaw))
)

// RecallRetriever answers questions about past turns
type RecallRetriever interface {
	Recall(ctx context.Context, query string) (*recall.Result, error)
}

// ProfileRetriever answers questions from the user's profile
type ProfileRetriever interface {
	Query(ctx context.Context, text string, opts ...rag.QueryOption) (*rag.Answer, error)
}

// WebSummarizer condenses web snippets into an answer
type WebSummarizer interface {
	WebResult(ctx context.Context, query, snippets string) (string, error)
}

// Deps are the collaborators of a Router. All fields are required.
type Deps struct {
	Recall        RecallRetriever
	Profile       ProfileRetriever
	Profiles      repository.ProfileStore
	Classifier    interfaces.Classifier
	Generator     interfaces.Generator
	WebSearch     interfaces.WebSearcher
	Locator       interfaces.Locator
	Summarizer    interfaces.Summarizer
	WebSummarizer WebSummarizer
}

func (d Deps) validate() error {
	missing := []string{}
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("Recall", d.Recall != nil)
	check("Profile", d.Profile != nil)
	check("Profiles", d.Profiles != nil)
	check("Classifier", d.Classifier != nil)
	check("Generator", d.Generator != nil)
	check("WebSearch", d.WebSearch != nil)
	check("Locator", d.Locator != nil)
	check("Summarizer", d.Summarizer != nil)
	check("WebSummarizer", d.WebSummarizer != nil)

	if len(missing) > 0 {
		return goerr.New("router dependencies are missing", goerr.V("missing", missing))
	}
	return nil
}

// Router dispatches queries by intent. It is stateless across calls.
type Router struct {
	deps Deps
	now  func() time.Time
}

type Option func(*Router)

// WithClock replaces the clock used to select today's turns
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

func New(deps Deps, opts ...Option) (*Router, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := &Router{deps: deps, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Route classifies query and answers it. history is the conversation so far,
// oldest first, not including query itself.
func (r *Router) Route(ctx context.Context, query string, history []model.Turn) (*model.Reply, error) {
	label, err := r.deps.Classifier.Classify(ctx, query, model.RecentTurns(history, classifyWindow))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to classify query", goerr.V("query", query))
	}

	intent, known := model.LookupIntent(label)
	logger := logging.From(ctx).With("intent", intent)
	if !known {
		logger.Warn("unrecognized intent label, using general", "label", label)
	}
	ctx = logging.With(ctx, logger)
	logger.Debug("query classified", "label", label)

	var reply *model.Reply
	switch intent {
	case model.IntentRecall:
		reply, err = r.routeRecall(ctx, query)
	case model.IntentSelfReflect:
		reply, err = r.routeSelfReflect(ctx, history)
	case model.IntentLocation:
		reply, err = r.routeLocation(ctx, query)
	case model.IntentPersonal:
		reply, err = r.routePersonal(ctx, query)
	case model.IntentWebSearch:
		reply, err = r.routeWebSearch(ctx, query)
	default:
		intent = model.IntentGeneral
		reply, err = r.routeGeneral(ctx, query, history)
	}
	if err != nil {
		return nil, err
	}

	reply.Intent = intent
	logger.Info("query routed", "source", reply.Source)
	return reply, nil
}

func (r *Router) routeRecall(ctx context.Context, query string) (*model.Reply, error) {
	result, err := r.deps.Recall.Recall(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to recall past turns")
	}
	return &model.Reply{Source: model.SourceMemory, Text: result.String()}, nil
}

func (r *Router) routeSelfReflect(ctx context.Context, history []model.Turn) (*model.Reply, error) {
	prompt, err := render(reflectPromptTmpl, map[string]any{
		"Transcript": summary.Transcript(model.RecentTurns(history, reflectWindow)),
	})
	if err != nil {
		return nil, err
	}

	return r.generate(ctx, "You are an AI assistant analyzing your recent performance.", prompt, model.SourceLLM)
}

func (r *Router) routeLocation(ctx context.Context, query string) (*model.Reply, error) {
	logger := logging.From(ctx)

	loc, err := r.deps.Locator.Locate(ctx)
	if err != nil {
		logger.Warn("location lookup failed", "error", err)
		loc = nil
	}
	if loc != nil {
		return &model.Reply{
			Source: model.SourceMemory,
			Text:   fmt.Sprintf("Based on your IP, you're currently in %s, %s, %s.", loc.City, loc.Region, loc.Country),
		}, nil
	}

	logger.Info("location unknown, falling back to web search")
	snippets := r.searchWeb(ctx, query)
	if snippets == "" {
		return &model.Reply{Source: model.SourceWeb, Text: locationNotFoundMessage}, nil
	}

	text, err := r.deps.WebSummarizer.WebResult(ctx, query, snippets)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize web result")
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("web result summary is empty")
		return &model.Reply{Source: model.SourceWeb, Text: locationNotFoundMessage}, nil
	}
	return &model.Reply{Source: model.SourceWeb, Text: text}, nil
}

func (r *Router) routePersonal(ctx context.Context, query string) (*model.Reply, error) {
	answer, err := r.deps.Profile.Query(ctx, query, rag.WithTopK(rag.DefaultTopK), rag.WithThreshold(rag.DefaultThreshold))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query profile")
	}
	if answer.Found() {
		return &model.Reply{Source: model.SourceRAG, Text: answer.String()}, nil
	}

	logging.From(ctx).Info("no profile match, generating with full profile")
	profile, err := r.deps.Profiles.GetProfile(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile")
	}

	prompt, err := render(personalPromptTmpl, map[string]any{
		"Profile": profile.Text(),
		"Query":   query,
	})
	if err != nil {
		return nil, err
	}

	return r.generate(ctx, "You are the user's personal assistant.", prompt, model.SourceLLM)
}

func (r *Router) routeWebSearch(ctx context.Context, query string) (*model.Reply, error) {
	snippets := r.searchWeb(ctx, query)
	if n := utf8.RuneCountInString(snippets); n < minWebSnippetLen {
		logging.From(ctx).Info("web search returned nothing useful, falling back to profile", "length", n)
		answer, err := r.deps.Profile.Query(ctx, query)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query profile")
		}
		return &model.Reply{Source: model.SourceRAG, Text: answer.String()}, nil
	}

	prompt, err := render(webPromptTmpl, map[string]any{
		"Query":    query,
		"Snippets": snippets,
	})
	if err != nil {
		return nil, err
	}

	return r.generate(ctx, "You are a helpful assistant.", prompt, model.SourceWeb)
}

func (r *Router) routeGeneral(ctx context.Context, query string, history []model.Turn) (*model.Reply, error) {
	today := summary.TodayTurns(history, r.now())
	digest, err := r.deps.Summarizer.Summarize(ctx, today)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to summarize today's conversation", goerr.V("turns", len(today)))
	}

	prompt, err := render(generalPromptTmpl, map[string]any{
		"Summary": strings.TrimSpace(digest),
		"Query":   query,
	})
	if err != nil {
		return nil, err
	}

	return r.generate(ctx, "You are the user's assistant.", prompt, model.SourceLLM)
}

// searchWeb returns trimmed snippets, or "" when the search failed
func (r *Router) searchWeb(ctx context.Context, query string) string {
	snippets, err := r.deps.WebSearch.Search(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("web search failed", "error", err)
		return ""
	}
	return strings.TrimSpace(snippets)
}

func (r *Router) generate(ctx context.Context, system, prompt string, source model.Source) (*model.Reply, error) {
	text, err := r.deps.Generator.Generate(ctx, []model.Message{
		model.SystemMessage(system),
		model.UserMessage(prompt),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reply", goerr.V("source", source))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(ErrEmptyGeneration, "failed to generate reply", goerr.V("source", source))
	}
	return &model.Reply{Source: source, Text: text}, nil
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}
