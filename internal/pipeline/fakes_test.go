package pipeline

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

type sentText struct {
	ChatID int64
	Text   string
	Opts   telegram.SendOptions
}

type editedText struct {
	Ref  messages.MessageRef
	Text string
}

type sentVideo struct {
	ChatID    int64
	VideoName string
	ThumbName string
	ReplyTo   int
	Video     []byte
}

// fakeChat records every chat interaction and serves chat-hosted files from
// an in-memory map.
type fakeChat struct {
	mu      sync.Mutex
	sent    []sentText
	edits   []editedText
	deleted []messages.MessageRef
	videos  []sentVideo
	files   map[string][]byte

	editErr     error
	sendErr     error
	videoErr    error
	downloadErr error

	nextMessageID int
}

func newFakeChat() *fakeChat {
	return &fakeChat{files: map[string][]byte{}, nextMessageID: 100}
}

func (c *fakeChat) SendText(_ context.Context, chatID int64, text string, opts telegram.SendOptions) (messages.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return messages.MessageRef{}, c.sendErr
	}
	c.sent = append(c.sent, sentText{ChatID: chatID, Text: text, Opts: opts})
	c.nextMessageID++
	return messages.MessageRef{ChatID: chatID, MessageID: c.nextMessageID}, nil
}

func (c *fakeChat) EditText(_ context.Context, ref messages.MessageRef, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editErr != nil {
		return c.editErr
	}
	c.edits = append(c.edits, editedText{Ref: ref, Text: text})
	return nil
}

func (c *fakeChat) DeleteMessage(_ context.Context, ref messages.MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ref)
	return nil
}

func (c *fakeChat) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.downloadErr != nil {
		return c.downloadErr
	}
	_, err := w.Write(c.files[fileID])
	return err
}

func (c *fakeChat) SendVideo(_ context.Context, chatID int64, upload telegram.VideoUpload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.videoErr != nil {
		return c.videoErr
	}
	video, err := io.ReadAll(upload.Video)
	if err != nil {
		return err
	}
	c.videos = append(c.videos, sentVideo{
		ChatID:    chatID,
		VideoName: upload.VideoName,
		ThumbName: upload.ThumbnailName,
		ReplyTo:   upload.ReplyTo,
		Video:     video,
	})
	return nil
}

func (c *fakeChat) lastEdit() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.edits) == 0 {
		return ""
	}
	return c.edits[len(c.edits)-1].Text
}

// fakeTranscoder writes placeholder output files instead of running ffmpeg.
type fakeTranscoder struct {
	convertErr error
	thumbErr   error
	converted  []string
}

func (f *fakeTranscoder) Convert(_ context.Context, inputPath, outputPath string) error {
	if f.convertErr != nil {
		return f.convertErr
	}
	f.converted = append(f.converted, inputPath)
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

func (f *fakeTranscoder) Thumbnail(_ context.Context, _, outputPath string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(outputPath, []byte("jpg"), 0o644)
}
