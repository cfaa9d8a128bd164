package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/logx"
	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

// Uploader posts the converted video back to the chat. Whatever happens, it
// is the stage that guarantees all three artifacts reach the cleaner.
type Uploader struct {
	chat   telegram.Client
	queues Queues
	log    zerolog.Logger
}

func NewUploader(chat telegram.Client, queues Queues, log zerolog.Logger) *Uploader {
	return &Uploader{chat: chat, queues: queues, log: log}
}

func (u *Uploader) Name() string { return "uploader" }

func (u *Uploader) Handle(ctx context.Context, body []byte) Outcome {
	var req messages.UploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return poison(fmt.Errorf("decode upload request: %w", err))
	}
	log := logx.WithJob(u.log, req.Received)

	cleanup := forward(u.queues.Cleaner, messages.CleanupRequest{
		InputPath:     req.InputPath,
		OutputPath:    req.OutputPath,
		ThumbnailPath: req.ThumbnailPath,
	})

	if err := u.chat.EditText(ctx, req.Placeholder, "Your file is uploading 🚀"); err != nil {
		log.Warn().Err(err).Msg("progress edit failed")
	}

	video, err := os.Open(req.OutputPath)
	if err != nil {
		u.notifyFailure(ctx, req, log)
		return rejected(Notice{}, fmt.Errorf("open output: %w", err), cleanup)
	}
	defer video.Close()

	thumbnail, err := os.Open(req.ThumbnailPath)
	if err != nil {
		u.notifyFailure(ctx, req, log)
		return rejected(Notice{}, fmt.Errorf("open thumbnail: %w", err), cleanup)
	}
	defer thumbnail.Close()

	// The placeholder goes away right before the video lands as the reply.
	if err := u.chat.DeleteMessage(ctx, req.Placeholder); err != nil {
		log.Warn().Err(err).Msg("placeholder delete failed")
	}

	upload := telegram.VideoUpload{
		Video:         video,
		VideoName:     filepath.Base(req.OutputPath),
		Thumbnail:     thumbnail,
		ThumbnailName: filepath.Base(req.ThumbnailPath),
		ReplyTo:       req.Received.MessageID,
	}
	if err := u.chat.SendVideo(ctx, req.Received.ChatID, upload); err != nil {
		u.notifyFailure(ctx, req, log)
		return rejected(Notice{}, fmt.Errorf("send video: %w", err), cleanup)
	}

	log.Info().Msg("upload complete")
	return ok(Notice{}, cleanup)
}

// notifyFailure sends a fresh status message: by this point the placeholder
// may already be deleted, so an edit cannot be trusted to land.
func (u *Uploader) notifyFailure(ctx context.Context, req messages.UploadRequest, log zerolog.Logger) {
	_, err := u.chat.SendText(ctx, req.Received.ChatID, "Error during file upload 😱", telegram.SendOptions{
		ReplyTo:             req.Received.MessageID,
		DisableNotification: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("upload failure notice failed")
	}
}
