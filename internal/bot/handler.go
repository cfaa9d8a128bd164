// Package bot recognizes eligible submissions in inbound Telegram updates
// and feeds the downloader queue.
package bot

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/queue"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

const (
	webmMimeType = "video/webm"
	startReply   = "Send me a video or link to WebM or add bot to group."
)

// Handler turns recognized submissions into DownloadRequests. One text
// message can carry several links and becomes several independent jobs.
type Handler struct {
	chat          telegram.Client
	queues        queue.Client
	downloadQueue string
	webmLink      *regexp.Regexp
	log           zerolog.Logger
}

func NewHandler(chat telegram.Client, queues queue.Client, downloadQueue string, log zerolog.Logger) *Handler {
	return &Handler{
		chat:          chat,
		queues:        queues,
		downloadQueue: downloadQueue,
		webmLink:      regexp.MustCompile(`https?[^ ]*\.webm`),
		log:           log,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		h.HandleMessage(ctx, upd.Message)
	case upd.ChannelPost != nil:
		h.HandleMessage(ctx, upd.ChannelPost)
	}
}

func (h *Handler) HandleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From != nil && m.From.IsBot {
		return
	}

	if m.IsCommand() && m.Command() == "start" {
		if _, err := h.chat.SendText(ctx, m.Chat.ID, startReply, telegram.SendOptions{}); err != nil {
			h.log.Warn().Err(err).Msg("start reply failed")
		}
		return
	}

	if m.Text != "" {
		if strings.Contains(strings.ToLower(m.Text), "!nsfw") {
			return
		}
		for _, link := range h.webmLink.FindAllString(m.Text, -1) {
			h.submit(ctx, m, messages.Source{Kind: messages.SourceLink, Link: link})
		}
		return
	}

	if doc := m.Document; doc != nil && strings.EqualFold(doc.MimeType, webmMimeType) {
		h.submit(ctx, m, messages.Source{
			Kind:   messages.SourceDocument,
			FileID: doc.FileID,
			Name:   doc.FileName,
		})
		return
	}

	if v := m.Video; v != nil && strings.EqualFold(v.MimeType, webmMimeType) {
		h.submit(ctx, m, messages.Source{
			Kind:   messages.SourceVideo,
			FileID: v.FileID,
			Name:   v.FileName,
		})
	}
}

func (h *Handler) submit(ctx context.Context, m *tgbotapi.Message, src messages.Source) {
	placeholder, err := h.chat.SendText(ctx, m.Chat.ID, "File is waiting to be downloaded 🕒", telegram.SendOptions{
		ReplyTo:             m.MessageID,
		DisableNotification: true,
	})
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", m.Chat.ID).Msg("placeholder send failed")
		return
	}

	req := messages.DownloadRequest{
		Received:    messages.MessageRef{ChatID: m.Chat.ID, MessageID: m.MessageID},
		Placeholder: placeholder,
		Source:      src,
	}
	body, _ := json.Marshal(req)
	if err := h.queues.Send(ctx, h.downloadQueue, body); err != nil {
		h.log.Error().Err(err).Msg("download enqueue failed")
		return
	}

	h.log.Info().
		Int64("chat_id", m.Chat.ID).
		Str("kind", string(src.Kind)).
		Msg("submission accepted")
}
