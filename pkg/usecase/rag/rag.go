// Package rag answers personal questions from the user's profile facts.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/philippgille/chromem-go"
)

const (
	DefaultTopK      = 3
	DefaultThreshold = 0.7

	collectionName = "profile"

	// chromem scores in float32; a match at the threshold may round just below it
	scoreEpsilon = 1e-6
)

// Answer is the outcome of a profile query
type Answer struct {
	Facts []Match
}

// Match is a profile fact with its similarity to the query
type Match struct {
	Fact  model.ProfileFact
	Score float64
}

// NoAnswer is returned when the profile has nothing relevant enough
var NoAnswer = &Answer{}

// Found reports whether the answer came from the profile
func (a *Answer) Found() bool {
	return a != nil && a != NoAnswer && len(a.Facts) > 0
}

func (a *Answer) String() string {
	if !a.Found() {
		return "I couldn't find anything about that in your profile."
	}

	lines := []string{"Here's what I know about you:"}
	for _, m := range a.Facts {
		lines = append(lines, "- "+m.Fact.Text())
	}
	return strings.Join(lines, "\n")
}

type queryConfig struct {
	topK      int
	threshold float64
}

type QueryOption func(*queryConfig)

// WithTopK sets how many facts to retrieve
func WithTopK(n int) QueryOption {
	return func(c *queryConfig) {
		c.topK = n
	}
}

// WithThreshold sets the minimum similarity of the best fact for the answer to be accepted
func WithThreshold(t float64) QueryOption {
	return func(c *queryConfig) {
		c.threshold = t
	}
}

// RAG indexes profile facts in a chromem-go collection and answers queries from it
type RAG struct {
	profiles repository.ProfileStore
	embedder interfaces.Embedder

	mu          sync.Mutex
	db          *chromem.DB
	collection  *chromem.Collection
	fingerprint string
}

func New(profiles repository.ProfileStore, embedder interfaces.Embedder) *RAG {
	return &RAG{
		profiles: profiles,
		embedder: embedder,
		db:       chromem.NewDB(),
	}
}

// Query retrieves profile facts relevant to text. It returns NoAnswer when the
// best match is below the threshold or the profile is empty.
func (r *RAG) Query(ctx context.Context, text string, opts ...QueryOption) (*Answer, error) {
	cfg := queryConfig{topK: DefaultTopK, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.topK < 1 {
		return NoAnswer, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sync(ctx); err != nil {
		return nil, err
	}

	count := r.collection.Count()
	if count == 0 {
		return NoAnswer, nil
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query", goerr.V("query", text))
	}

	results, err := r.collection.QueryEmbedding(ctx, vec, min(cfg.topK, count), nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query profile index")
	}

	logger := logging.From(ctx)
	if len(results) == 0 || float64(results[0].Similarity)+scoreEpsilon < cfg.threshold {
		if len(results) > 0 {
			logger.Debug("profile match below threshold", "best", results[0].Similarity, "threshold", cfg.threshold)
		}
		return NoAnswer, nil
	}

	answer := &Answer{}
	for _, res := range results {
		answer.Facts = append(answer.Facts, Match{
			Fact:  model.ProfileFact{Key: res.Metadata["key"], Value: res.Metadata["value"]},
			Score: float64(res.Similarity),
		})
	}
	logger.Debug("profile answer accepted", "facts", len(answer.Facts), "best", results[0].Similarity)

	return answer, nil
}

// sync rebuilds the index when the profile changed since the last query
func (r *RAG) sync(ctx context.Context) error {
	profile, err := r.profiles.GetProfile(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to get profile")
	}

	fp := fingerprint(profile)
	if r.collection != nil && fp == r.fingerprint {
		return nil
	}

	if r.collection != nil {
		if err := r.db.DeleteCollection(collectionName); err != nil {
			return goerr.Wrap(err, "failed to drop profile index")
		}
	}

	collection, err := r.db.GetOrCreateCollection(collectionName, nil, r.embedder.Embed)
	if err != nil {
		return goerr.Wrap(err, "failed to create profile index")
	}

	for i, fact := range profile.Facts {
		vec, err := r.embedder.Embed(ctx, fact.Text())
		if err != nil {
			return goerr.Wrap(err, "failed to embed profile fact", goerr.V("key", fact.Key))
		}
		doc := chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   fact.Text(),
			Embedding: vec,
			Metadata:  map[string]string{"key": fact.Key, "value": fact.Value},
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			return goerr.Wrap(err, "failed to index profile fact", goerr.V("key", fact.Key))
		}
	}

	r.collection = collection
	r.fingerprint = fp
	logging.From(ctx).Debug("profile index rebuilt", "facts", len(profile.Facts))

	return nil
}

func fingerprint(profile *model.Profile) string {
	sum := sha256.Sum256([]byte(profile.Text()))
	return hex.EncodeToString(sum[:])
}
