package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
)

var (
	ErrEmptyText = goerr.New("text is empty")
)

// MemoryStore is an append-only store of embedded conversation turns
type MemoryStore interface {
	// Add embeds text and appends it as a record. Adding the same text with the
	// same timestamp again returns the existing record.
	Add(ctx context.Context, text string, role model.Role, timestamp time.Time) (*model.MemoryRecord, error)

	// Search returns up to topK records ordered by descending similarity to query.
	// Ties are ordered by most recent timestamp first. An empty store yields an empty result.
	Search(ctx context.Context, query string, topK int, opts ...SearchOption) ([]*model.RetrievalResult, error)

	// List returns all records ordered by ascending timestamp
	List(ctx context.Context) ([]*model.MemoryRecord, error)
}

// ProfileStore holds the user's long-term profile
type ProfileStore interface {
	// GetProfile returns the current profile. A missing profile is returned as empty.
	GetProfile(ctx context.Context) (*model.Profile, error)

	// PutFact inserts or replaces a single fact
	PutFact(ctx context.Context, fact model.ProfileFact) error
}

type searchConfig struct {
	role model.Role
}

// SearchOption narrows the candidates of a similarity search
type SearchOption func(*searchConfig)

// WithRole restricts search candidates to records of the given role
func WithRole(role model.Role) SearchOption {
	return func(c *searchConfig) {
		c.role = role
	}
}

func newSearchConfig(opts []SearchOption) searchConfig {
	var cfg searchConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c searchConfig) match(rec *model.MemoryRecord) bool {
	return c.role == "" || rec.Role == c.role
}
