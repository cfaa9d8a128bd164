package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN,required"`

	RedisAddr   string `env:"REDIS_ADDR"   envDefault:"localhost:6379"`
	QueuePrefix string `env:"QUEUE_PREFIX" envDefault:"webm2mp4"`

	DownloaderQueue string `env:"DOWNLOADER_QUEUE" envDefault:"downloader"`
	ConverterQueue  string `env:"CONVERTER_QUEUE"  envDefault:"converter"`
	UploaderQueue   string `env:"UPLOADER_QUEUE"   envDefault:"uploader"`
	CleanerQueue    string `env:"CLEANER_QUEUE"    envDefault:"cleaner"`

	VisibilityTimeoutSec int `env:"QUEUE_VISIBILITY_SEC"   envDefault:"300"`
	ReceiveWaitSec       int `env:"QUEUE_RECEIVE_WAIT_SEC" envDefault:"5"`
	PollDelayMs          int `env:"POLL_DELAY_MS"          envDefault:"1000"`

	TempDir string `env:"TEMP_DIR" envDefault:"/tmp"`

	FFmpegPath  string `env:"FFMPEG_PATH"  envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	DownloadAttempts   int `env:"DOWNLOAD_ATTEMPTS"     envDefault:"3"`
	DownloadTimeoutMin int `env:"DOWNLOAD_TIMEOUT_MIN"  envDefault:"30"`

	HealthPort  int `env:"HEALTH_PORT"  envDefault:"8080"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"8081"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
