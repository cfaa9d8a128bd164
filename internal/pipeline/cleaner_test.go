package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/webm2mp4-bot/internal/messages"
)

func cleanupBody(t *testing.T, req messages.CleanupRequest) []byte {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func TestCleanerRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	req := messages.CleanupRequest{
		InputPath:     filepath.Join(dir, "a.webm"),
		OutputPath:    filepath.Join(dir, "b.mp4"),
		ThumbnailPath: filepath.Join(dir, "c.jpg"),
	}
	for _, p := range req.Paths() {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	c := NewCleaner(zerolog.Nop())
	out := c.Handle(context.Background(), cleanupBody(t, req))

	require.Equal(t, StatusOK, out.Status)
	assert.Empty(t, out.Forwards, "cleaner is the terminal sink")
	for _, p := range req.Paths() {
		assert.NoFileExists(t, p)
	}
}

func TestCleanerIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	req := messages.CleanupRequest{InputPath: filepath.Join(dir, "a.webm")}
	require.NoError(t, os.WriteFile(req.InputPath, []byte("x"), 0o644))

	c := NewCleaner(zerolog.Nop())
	body := cleanupBody(t, req)

	first := c.Handle(context.Background(), body)
	require.Equal(t, StatusOK, first.Status)

	// Redelivered request names an already-removed path: still a success.
	second := c.Handle(context.Background(), body)
	assert.Equal(t, StatusOK, second.Status)
	assert.NoFileExists(t, req.InputPath)
}

func TestCleanerSkipsAbsentPaths(t *testing.T) {
	c := NewCleaner(zerolog.Nop())
	out := c.Handle(context.Background(), cleanupBody(t, messages.CleanupRequest{
		InputPath: "/nonexistent/path/a.webm",
	}))
	assert.Equal(t, StatusOK, out.Status)
}

func TestCleanerHandlesEmptyRequest(t *testing.T) {
	c := NewCleaner(zerolog.Nop())
	out := c.Handle(context.Background(), cleanupBody(t, messages.CleanupRequest{}))
	assert.Equal(t, StatusOK, out.Status)
}
