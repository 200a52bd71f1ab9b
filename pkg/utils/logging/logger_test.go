package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		level    string
		expected slog.Level
		invalid  bool
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "INFO", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
		{level: "warning", expected: slog.LevelWarn},
		{level: " error ", expected: slog.LevelError},
		{level: "verbose", expected: slog.LevelInfo, invalid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			lvl, err := logging.ParseLevel(tc.level)
			gt.Equal(t, lvl, tc.expected)
			if tc.invalid {
				gt.True(t, errors.Is(err, logging.ErrInvalidLevel))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("warn", buf)

	logger.Info("routine message")
	logger.Warn("fallback taken")

	gt.S(t, buf.String()).NotContains("routine message")
	gt.S(t, buf.String()).Contains("fallback taken")
}

func TestNewWarnsOnInvalidLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("loud", buf)

	gt.S(t, buf.String()).Contains("invalid log level")
	logger.Info("still logs at info")
	gt.S(t, buf.String()).Contains("still logs at info")
}

func TestGoerrValuesAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)

	err := goerr.New("embedding failed", goerr.V("model", "gemini-embedding-001"))
	logger.Error("store add failed", "error", err)

	gt.S(t, buf.String()).Contains("embedding failed")
	gt.S(t, buf.String()).Contains("gemini-embedding-001")
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("intent", "recall")
	ctx := logging.With(context.Background(), logger)

	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Info("query routed")
	gt.S(t, buf.String()).Contains("query routed")
	gt.S(t, buf.String()).Contains("recall")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("info", buf)
	logging.SetDefault(custom)

	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, custom)

	retrieved.Info("from default")
	gt.S(t, buf.String()).Contains("from default")
}
