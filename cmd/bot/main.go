package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/you/webm2mp4-bot/internal/bot"
	"github.com/you/webm2mp4-bot/internal/config"
	"github.com/you/webm2mp4-bot/internal/logx"
	"github.com/you/webm2mp4-bot/internal/queue"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	logx.Setup(logx.FromEnv("bot"))
	log.Info().Msg("bot starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// health endpoint
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
		addr := fmt.Sprintf(":%d", cfg.HealthPort)
		log.Info().Str("addr", addr).Msg("bot health endpoint up")
		log.Error().Err(http.ListenAndServe(addr, nil)).Msg("health endpoint stopped")
	}()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}
	api.Debug = false
	log.Info().Str("username", api.Self.UserName).Msg("bot authorized")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	queues := queue.NewRedis(rdb, queue.RedisOptions{
		Prefix:      cfg.QueuePrefix,
		Visibility:  time.Duration(cfg.VisibilityTimeoutSec) * time.Second,
		ReceiveWait: time.Duration(cfg.ReceiveWaitSec) * time.Second,
	})

	handler := bot.NewHandler(telegram.NewBot(api), queues, cfg.DownloaderQueue, log.Logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	ctx := context.Background()
	for upd := range updates {
		handler.HandleUpdate(ctx, upd)
	}
}
