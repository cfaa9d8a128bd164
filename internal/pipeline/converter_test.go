package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/webm2mp4-bot/internal/ffmpeg"
	"github.com/you/webm2mp4-bot/internal/messages"
)

func convertBody(t *testing.T, inputPath string) []byte {
	t.Helper()
	body, err := json.Marshal(messages.ConvertRequest{
		Received:    messages.MessageRef{ChatID: 10, MessageID: 1},
		Placeholder: messages.MessageRef{ChatID: 10, MessageID: 2},
		InputPath:   inputPath,
	})
	require.NoError(t, err)
	return body
}

func TestConverterProducesUploadRequest(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.webm")
	require.NoError(t, os.WriteFile(input, []byte("webm"), 0o644))

	chat := newFakeChat()
	tc := &fakeTranscoder{}
	c := NewConverter(chat, tc, testQueues, dir, zerolog.Nop())

	out := c.Handle(context.Background(), convertBody(t, input))

	require.Equal(t, StatusOK, out.Status)
	require.Len(t, out.Forwards, 1)
	assert.Equal(t, testQueues.Uploader, out.Forwards[0].Queue)

	next := decodeForward[messages.UploadRequest](t, out.Forwards[0])
	assert.Equal(t, input, next.InputPath, "source path travels along for cleanup")
	assert.FileExists(t, next.OutputPath)
	assert.FileExists(t, next.ThumbnailPath)
	assert.Equal(t, ".mp4", filepath.Ext(next.OutputPath))
	assert.Equal(t, ".jpg", filepath.Ext(next.ThumbnailPath))

	assert.Equal(t, []string{
		"Conversion in progress 🚀",
		"Generating thumbnail 🖼️",
	}, []string{chat.edits[0].Text, chat.edits[1].Text})
	assert.Equal(t, "Your file is waiting to be uploaded 🕒", out.Notice.Text)
}

func TestConverterRejectsOnTranscoderExit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.webm")
	require.NoError(t, os.WriteFile(input, []byte("webm"), 0o644))

	chat := newFakeChat()
	tc := &fakeTranscoder{convertErr: &ffmpeg.ExitError{Stderr: "Invalid data", Err: errors.New("exit status 1")}}
	c := NewConverter(chat, tc, testQueues, dir, zerolog.Nop())

	out := c.Handle(context.Background(), convertBody(t, input))

	require.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, "Conversion failed 😱", out.Notice.Text)

	// No UploadRequest; cleanup names only the source.
	require.Len(t, out.Forwards, 1)
	assert.Equal(t, testQueues.Cleaner, out.Forwards[0].Queue)
	cleanup := decodeForward[messages.CleanupRequest](t, out.Forwards[0])
	assert.Equal(t, input, cleanup.InputPath)
	assert.Empty(t, cleanup.OutputPath)
	assert.Empty(t, cleanup.ThumbnailPath)
}

func TestConverterRejectsOnThumbnailExit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.webm")
	require.NoError(t, os.WriteFile(input, []byte("webm"), 0o644))

	chat := newFakeChat()
	tc := &fakeTranscoder{thumbErr: &ffmpeg.ExitError{Stderr: "no video stream", Err: errors.New("exit status 1")}}
	c := NewConverter(chat, tc, testQueues, dir, zerolog.Nop())

	out := c.Handle(context.Background(), convertBody(t, input))

	require.Equal(t, StatusRejected, out.Status)
	cleanup := decodeForward[messages.CleanupRequest](t, out.Forwards[0])
	assert.Equal(t, input, cleanup.InputPath)
	assert.NotEmpty(t, cleanup.OutputPath, "converted output must be reclaimed too")
	assert.Empty(t, cleanup.ThumbnailPath)
}

func TestConverterTransientWhenTranscoderUnavailable(t *testing.T) {
	dir := t.TempDir()
	chat := newFakeChat()
	tc := &fakeTranscoder{convertErr: errors.New("ffmpeg: executable not found")}
	c := NewConverter(chat, tc, testQueues, dir, zerolog.Nop())

	out := c.Handle(context.Background(), convertBody(t, filepath.Join(dir, "in.webm")))

	assert.Equal(t, StatusRetry, out.Status)
}
