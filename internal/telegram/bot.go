package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/you/webm2mp4-bot/internal/messages"
)

// Bot implements Client on the Telegram Bot API.
type Bot struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

func NewBot(api *tgbotapi.BotAPI) *Bot {
	return &Bot{
		api: api,
		http: &http.Client{
			Timeout: 30 * time.Minute, // chat-hosted videos can be large
		},
	}
}

func (b *Bot) SendText(_ context.Context, chatID int64, text string, opts SendOptions) (messages.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = opts.ReplyTo
	msg.DisableNotification = opts.DisableNotification
	sent, err := b.api.Send(msg)
	if err != nil {
		return messages.MessageRef{}, fmt.Errorf("send text: %w", err)
	}
	return messages.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

func (b *Bot) EditText(_ context.Context, ref messages.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit text: %w", err)
	}
	return nil
}

func (b *Bot) DeleteMessage(_ context.Context, ref messages.MessageRef) error {
	del := tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)
	if _, err := b.api.Request(del); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (b *Bot) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("request file %s: %w", fileID, err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	return nil
}

func (b *Bot) SendVideo(_ context.Context, chatID int64, upload VideoUpload) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileReader{Name: upload.VideoName, Reader: upload.Video})
	video.Thumb = tgbotapi.FileReader{Name: upload.ThumbnailName, Reader: upload.Thumbnail}
	video.ReplyToMessageID = upload.ReplyTo
	video.DisableNotification = true
	video.SupportsStreaming = true
	if _, err := b.api.Send(video); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}
