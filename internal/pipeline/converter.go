package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/ffmpeg"
	"github.com/you/webm2mp4-bot/internal/logx"
	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

// Converter re-encodes the downloaded source and extracts its thumbnail.
type Converter struct {
	chat    telegram.Client
	tc      ffmpeg.Transcoder
	queues  Queues
	tempDir string
	log     zerolog.Logger
}

func NewConverter(chat telegram.Client, tc ffmpeg.Transcoder, queues Queues, tempDir string, log zerolog.Logger) *Converter {
	return &Converter{chat: chat, tc: tc, queues: queues, tempDir: tempDir, log: log}
}

func (c *Converter) Name() string { return "converter" }

func (c *Converter) Handle(ctx context.Context, body []byte) Outcome {
	var req messages.ConvertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return poison(fmt.Errorf("decode convert request: %w", err))
	}
	log := logx.WithJob(c.log, req.Received)

	if err := c.chat.EditText(ctx, req.Placeholder, "Conversion in progress 🚀"); err != nil {
		log.Warn().Err(err).Msg("progress edit failed")
	}

	outputPath := tempPath(c.tempDir, ".mp4")
	if err := c.tc.Convert(ctx, req.InputPath, outputPath); err != nil {
		var xe *ffmpeg.ExitError
		if errors.As(err, &xe) {
			return rejected(
				Notice{req.Placeholder, "Conversion failed 😱"},
				err,
				forward(c.queues.Cleaner, messages.CleanupRequest{InputPath: req.InputPath}),
			)
		}
		// Transcoder could not run at all. Source stays for redelivery, the
		// possibly half-written output goes to cleanup.
		return retry(err, forward(c.queues.Cleaner, messages.CleanupRequest{OutputPath: outputPath}))
	}

	if err := c.chat.EditText(ctx, req.Placeholder, "Generating thumbnail 🖼️"); err != nil {
		log.Warn().Err(err).Msg("progress edit failed")
	}

	thumbnailPath := tempPath(c.tempDir, ".jpg")
	if err := c.tc.Thumbnail(ctx, outputPath, thumbnailPath); err != nil {
		var xe *ffmpeg.ExitError
		if errors.As(err, &xe) {
			return rejected(
				Notice{req.Placeholder, "Generating thumbnail failed 😱"},
				err,
				forward(c.queues.Cleaner, messages.CleanupRequest{
					InputPath:  req.InputPath,
					OutputPath: outputPath,
				}),
			)
		}
		return retry(err, forward(c.queues.Cleaner, messages.CleanupRequest{
			OutputPath:    outputPath,
			ThumbnailPath: thumbnailPath,
		}))
	}

	log.Info().Str("output", outputPath).Str("thumbnail", thumbnailPath).Msg("conversion complete")
	next := messages.UploadRequest{
		Received:      req.Received,
		Placeholder:   req.Placeholder,
		InputPath:     req.InputPath,
		OutputPath:    outputPath,
		ThumbnailPath: thumbnailPath,
	}
	return ok(
		Notice{req.Placeholder, "Your file is waiting to be uploaded 🕒"},
		forward(c.queues.Uploader, next),
	)
}
