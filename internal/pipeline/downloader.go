package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/logx"
	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Downloader fetches the submitted video to local temp storage and hands
// it to the converter queue.
type Downloader struct {
	chat        telegram.Client
	httpc       *http.Client
	queues      Queues
	tempDir     string
	attempts    int
	backoffBase time.Duration
	log         zerolog.Logger
}

type DownloaderConfig struct {
	TempDir     string
	Attempts    int           // bounded retry count for link fetches
	HTTPTimeout time.Duration
	BackoffBase time.Duration // first retry delay, doubles per attempt
}

func NewDownloader(chat telegram.Client, queues Queues, cfg DownloaderConfig, log zerolog.Logger) *Downloader {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Minute
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	return &Downloader{
		chat:        chat,
		httpc:       &http.Client{Timeout: cfg.HTTPTimeout},
		queues:      queues,
		tempDir:     cfg.TempDir,
		attempts:    cfg.Attempts,
		backoffBase: cfg.BackoffBase,
		log:         log,
	}
}

func (d *Downloader) Name() string { return "downloader" }

func (d *Downloader) Handle(ctx context.Context, body []byte) Outcome {
	var req messages.DownloadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return poison(fmt.Errorf("decode download request: %w", err))
	}
	log := logx.WithJob(d.log, req.Received)

	if err := d.chat.EditText(ctx, req.Placeholder, "Downloading file 🚀"); err != nil {
		log.Warn().Err(err).Msg("progress edit failed")
	}

	inputPath := tempPath(d.tempDir, ".webm")
	cleanup := forward(d.queues.Cleaner, messages.CleanupRequest{InputPath: inputPath})

	switch req.Source.Kind {
	case messages.SourceLink:
		if userText, err := d.fetchLink(ctx, req.Source.Link, inputPath); err != nil {
			log.Warn().Err(err).Str("link", req.Source.Link).Msg("link download failed")
			return rejected(Notice{req.Placeholder, userText}, err, cleanup)
		}
	case messages.SourceVideo, messages.SourceDocument:
		if err := d.fetchChatFile(ctx, req.Source.FileID, inputPath); err != nil {
			// Chat platform blip, not attributable to the submission. The
			// possibly partial file still goes to cleanup; redelivery works
			// on a fresh path.
			return retry(fmt.Errorf("chat file %s: %w", req.Source.FileID, err), cleanup)
		}
	default:
		return poison(fmt.Errorf("unknown source kind %q", req.Source.Kind))
	}

	log.Info().Str("input", inputPath).Msg("download complete")
	next := messages.ConvertRequest{
		Received:    req.Received,
		Placeholder: req.Placeholder,
		InputPath:   inputPath,
	}
	return ok(
		Notice{req.Placeholder, "Your file is waiting to be converted 🕒"},
		forward(d.queues.Converter, next),
	)
}

// fetchLink downloads a remote .webm link. Transport errors and 5xx
// responses are retried with exponential backoff up to the bounded attempt
// count; every failure comes back with the user-facing text for the
// placeholder edit.
func (d *Downloader) fetchLink(ctx context.Context, link, path string) (string, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= d.attempts; attempt++ {
		if attempt > 1 {
			delay := d.backoffBase << (attempt - 2)
			select {
			case <-ctx.Done():
				return linkFailureText(link, lastStatus), ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err := d.fetchOnce(ctx, link, path)
		if err == nil && status == 0 {
			return "", nil
		}
		lastErr, lastStatus = err, status

		// 401/403/404 and other 4xx will not change on retry.
		if status >= 400 && status < 500 {
			break
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fetch %s: status %d", link, lastStatus)
	}
	return linkFailureText(link, lastStatus), lastErr
}

// fetchOnce returns (0, nil) on success, a non-zero status for HTTP-level
// failures, or an error for transport failures.
func (d *Downloader) fetchOnce(ctx context.Context, link, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", link, err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := d.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return 0, fmt.Errorf("stream %s: %w", link, err)
	}
	return 0, nil
}

func (d *Downloader) fetchChatFile(ctx context.Context, fileID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return d.chat.DownloadFile(ctx, fileID, f)
}

func linkFailureText(link string, status int) string {
	switch status {
	case http.StatusUnauthorized:
		return link + "\nI am not authorized to download video from this source 🚫"
	case http.StatusForbidden:
		return link + "\nMy access to this video is forbidden 🚫"
	case http.StatusNotFound:
		return link + "\nVideo not found ⚠️"
	case http.StatusInternalServerError:
		return link + "\nServer error 🛑"
	case http.StatusServiceUnavailable:
		return link + "\nService with file reported unavailability. Try to convert your video later."
	case 0:
		return link + "\nCould not reach the video source 🛑"
	default:
		return fmt.Sprintf("%s\nService responded with %d status code to request to the file.", link, status)
	}
}
