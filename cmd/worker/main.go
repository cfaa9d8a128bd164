package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/you/webm2mp4-bot/internal/config"
	"github.com/you/webm2mp4-bot/internal/ffmpeg"
	"github.com/you/webm2mp4-bot/internal/logx"
	"github.com/you/webm2mp4-bot/internal/metrics"
	"github.com/you/webm2mp4-bot/internal/pipeline"
	"github.com/you/webm2mp4-bot/internal/queue"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	logx.Setup(logx.FromEnv("worker"))
	log.Info().Msg("worker starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create temp dir")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth")
	}
	chat := telegram.NewBot(api)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	queues := queue.NewRedis(rdb, queue.RedisOptions{
		Prefix:      cfg.QueuePrefix,
		Visibility:  time.Duration(cfg.VisibilityTimeoutSec) * time.Second,
		ReceiveWait: time.Duration(cfg.ReceiveWaitSec) * time.Second,
	})
	names := pipeline.Queues{
		Downloader: cfg.DownloaderQueue,
		Converter:  cfg.ConverterQueue,
		Uploader:   cfg.UploaderQueue,
		Cleaner:    cfg.CleanerQueue,
	}

	transcoder := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, log.Logger)

	downloader := pipeline.NewDownloader(chat, names, pipeline.DownloaderConfig{
		TempDir:     cfg.TempDir,
		Attempts:    cfg.DownloadAttempts,
		HTTPTimeout: time.Duration(cfg.DownloadTimeoutMin) * time.Minute,
	}, log.Logger)
	converter := pipeline.NewConverter(chat, transcoder, names, cfg.TempDir, log.Logger)
	uploader := pipeline.NewUploader(chat, names, log.Logger)
	cleaner := pipeline.NewCleaner(log.Logger)

	pollDelay := time.Duration(cfg.PollDelayMs) * time.Millisecond
	workers := []*pipeline.Worker{
		pipeline.NewWorker(downloader, names.Downloader, queues, chat, pollDelay, log.Logger),
		pipeline.NewWorker(converter, names.Converter, queues, chat, pollDelay, log.Logger),
		pipeline.NewWorker(uploader, names.Uploader, queues, chat, pollDelay, log.Logger),
		pipeline.NewWorker(cleaner, names.Cleaner, queues, chat, pollDelay, log.Logger),
	}

	metricsSrv := metrics.StartServer(cfg.MetricsPort, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *pipeline.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info().Msg("worker stopped")
}
