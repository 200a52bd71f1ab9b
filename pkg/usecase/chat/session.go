package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

// Router answers a single query given the conversation so far
type Router interface {
	Route(ctx context.Context, query string, history []model.Turn) (*model.Reply, error)
}

// Session runs one conversation: it routes each message and records both sides
// of the exchange in the memory store and the transcript.
type Session struct {
	router    Router
	store     repository.MemoryStore
	profiles  repository.ProfileStore
	generator interfaces.Generator
	locator   interfaces.Locator
	storage   adapter.Storage

	history *model.History
	now     func() time.Time
}

// NewInput contains parameters for creating a new chat session
type NewInput struct {
	Router    Router
	Store     repository.MemoryStore
	Profiles  repository.ProfileStore
	Generator interfaces.Generator
	Locator   interfaces.Locator
	Storage   adapter.Storage  // Optional: transcripts are not persisted when nil
	SessionID *model.SessionID // Optional: specify to continue existing conversation
	Now       func() time.Time // Optional: defaults to time.Now
}

// Response is the result of a single Send
type Response struct {
	Query         string
	Reply         *model.Reply
	ProfileUpdate *model.ProfileFact
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	if input.Router == nil || input.Store == nil || input.Profiles == nil || input.Generator == nil || input.Locator == nil {
		return nil, goerr.New("router, store, profiles, generator and locator are required")
	}

	s := &Session{
		router:    input.Router,
		store:     input.Store,
		profiles:  input.Profiles,
		generator: input.Generator,
		locator:   input.Locator,
		storage:   input.Storage,
		now:       input.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	switch {
	case input.SessionID != nil && s.storage != nil:
		history, err := loadHistory(ctx, s.storage, *input.SessionID)
		if errors.Is(err, adapter.ErrObjectNotFound) {
			logging.From(ctx).Info("no saved conversation, starting a new one", "session_id", *input.SessionID)
			s.history = &model.History{ID: *input.SessionID}
		} else if err != nil {
			return nil, goerr.Wrap(err, "failed to load history", goerr.V("session_id", *input.SessionID))
		} else {
			s.history = history
		}
	case input.SessionID != nil:
		s.history = &model.History{ID: *input.SessionID}
	default:
		s.history = &model.History{}
	}

	return s, nil
}

// History returns the transcript of the session
func (s *Session) History() *model.History {
	return s.history
}

// Send routes message and records the exchange
func (s *Session) Send(ctx context.Context, message string) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, goerr.Wrap(repository.ErrEmptyText, "message is empty")
	}

	query := Preprocess(ctx, s.locator, message)
	prior := s.history.Turns

	reply, err := s.router.Route(ctx, query, prior)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to route query")
	}

	if strings.TrimSpace(reply.Text) == "" {
		return nil, goerr.Wrap(repository.ErrEmptyText, "reply is empty", goerr.V("intent", reply.Intent))
	}

	turns := []model.Turn{
		{Role: model.RoleUser, Content: query, Timestamp: s.now()},
		{Role: model.RoleAssistant, Content: reply.Text, Timestamp: s.now()},
	}
	for _, turn := range turns {
		if _, err := s.store.Add(ctx, turn.Content, turn.Role, turn.Timestamp); err != nil {
			return nil, goerr.Wrap(err, "failed to store turn", goerr.V("role", turn.Role))
		}
	}
	for _, turn := range turns {
		s.history.Append(turn)
	}

	if s.storage != nil {
		if err := saveHistory(ctx, s.storage, s.history, s.now()); err != nil {
			return nil, goerr.Wrap(err, "failed to save history")
		}
	}

	resp := &Response{Query: query, Reply: reply}

	if wantsProfileUpdate(message) {
		fact, err := updateProfile(ctx, s.generator, s.profiles, message)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to update profile")
		}
		resp.ProfileUpdate = fact
	}

	return resp, nil
}
