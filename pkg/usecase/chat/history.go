package chat

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
)

func historyKey(id model.SessionID) string {
	return "histories/" + string(id) + ".json"
}

// loadHistory loads a conversation transcript from storage
func loadHistory(ctx context.Context, storage adapter.Storage, id model.SessionID) (*model.History, error) {
	reader, err := storage.Get(ctx, historyKey(id))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read history data")
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal history", goerr.V("session_id", id))
	}
	if history.ID == "" {
		history.ID = id
	}

	return &history, nil
}

// saveHistory saves a conversation transcript to storage
func saveHistory(ctx context.Context, storage adapter.Storage, history *model.History, now time.Time) error {
	// Generate new session ID if not exists
	if history.ID == "" {
		history.ID = model.NewSessionID()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = now
	}
	history.UpdatedAt = now

	data, err := json.Marshal(history)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal history")
	}

	writer, err := storage.Put(ctx, historyKey(history.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer")
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write history to storage")
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer")
	}

	return nil
}
