// Package telegram wraps the Bot API surface the pipeline needs: status
// message management, file download by id and the final video upload.
package telegram

import (
	"context"
	"io"

	"github.com/you/webm2mp4-bot/internal/messages"
)

// SendOptions controls how a text message is posted.
type SendOptions struct {
	ReplyTo             int
	DisableNotification bool
}

// VideoUpload carries the streams for the final converted video. Names are
// used by Telegram as upload file names.
type VideoUpload struct {
	Video         io.Reader
	VideoName     string
	Thumbnail     io.Reader
	ThumbnailName string
	ReplyTo       int
}

// Client is the chat-platform contract. The pipeline treats every call as
// fallible and never lets a failed status edit abort a stage's real work.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (messages.MessageRef, error)
	EditText(ctx context.Context, ref messages.MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref messages.MessageRef) error
	// DownloadFile streams the chat-hosted file with the given id into w.
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	SendVideo(ctx context.Context, chatID int64, upload VideoUpload) error
}
