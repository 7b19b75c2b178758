package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromName(t *testing.T) {
	cases := map[string]string{
		"DEBUG":    "debug",
		"info":     "info",
		"":         "info",
		"WARNING":  "warn",
		"ERROR":    "error",
		"CRITICAL": "error",
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromName(in), in)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := NewLogger(
		WithLevel("WARNING"),
		WithEncoding("console"),
		WithOutputPaths([]string{path}),
		WithErrorPaths([]string{"stderr"}),
	)
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", String("document", "a.pdf"))
	_ = log.Sync()

	assert.FileExists(t, path)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger(WithLevel("loud"), WithOutputPaths([]string{"stdout"}), WithErrorPaths(nil))
	assert.ErrorContains(t, err, "can't parse log level")
}

func TestTestLoggerSharesEntriesAcrossChildren(t *testing.T) {
	log := NewTestLogger()
	child := log.Named("suggest").With(String("taskId", "t-1"))

	child.Info("analyzing")
	log.Error("boom")

	entries := log.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "suggest", entries[0].Logger)
	assert.Len(t, entries[0].Fields, 1)
	assert.Equal(t, []string{"boom"}, log.Messages("ERROR"))
	assert.NoError(t, child.Sync())
}

func TestContextLoggerFromContext(t *testing.T) {
	base := NewTestLogger()
	cl := NewContextLogger(base)

	ctx := WithDocument(WithTaskID(context.Background(), "t-9"), "/inbox/a.pdf")
	cl.FromContext(ctx).Info("hello")

	entries := base.GetEntries()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Fields, 2)
}
