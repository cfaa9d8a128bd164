// localtest runs the whole pipeline on a local file without Telegram or
// Redis: the chat client is a console stub and the queues live in memory.
//
//	go run ./cmd/localtest <input.webm>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/ffmpeg"
	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/pipeline"
	"github.com/you/webm2mp4-bot/internal/queue"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/localtest <input.webm>")
		return
	}
	input := os.Args[1]

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	tempDir, err := os.MkdirTemp("", "webm2mp4-localtest")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tempDir)

	chat := &consoleChat{}
	queues := queue.NewMemory(time.Minute)
	names := pipeline.Queues{Downloader: "downloader", Converter: "converter", Uploader: "uploader", Cleaner: "cleaner"}
	transcoder := ffmpeg.New("ffmpeg", "ffprobe", logger)

	workers := []*pipeline.Worker{
		pipeline.NewWorker(pipeline.NewDownloader(chat, names, pipeline.DownloaderConfig{TempDir: tempDir}, logger), names.Downloader, queues, chat, 50*time.Millisecond, logger),
		pipeline.NewWorker(pipeline.NewConverter(chat, transcoder, names, tempDir, logger), names.Converter, queues, chat, 50*time.Millisecond, logger),
		pipeline.NewWorker(pipeline.NewUploader(chat, names, logger), names.Uploader, queues, chat, 50*time.Millisecond, logger),
		pipeline.NewWorker(pipeline.NewCleaner(logger), names.Cleaner, queues, chat, 50*time.Millisecond, logger),
	}

	// The console chat downloads "file ids" straight from disk, so a
	// document submission pointing at the input path drives the real flow.
	req := messages.DownloadRequest{
		Received:    messages.MessageRef{ChatID: 1, MessageID: 1},
		Placeholder: messages.MessageRef{ChatID: 1, MessageID: 2},
		Source:      messages.Source{Kind: messages.SourceDocument, FileID: input, Name: input},
	}
	body, _ := json.Marshal(req)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := queues.Send(ctx, names.Downloader, body); err != nil {
		panic(err)
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *pipeline.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	for ctx.Err() == nil {
		if queues.Len(names.Downloader)+queues.Len(names.Converter)+queues.Len(names.Uploader)+queues.Len(names.Cleaner) == 0 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	cancel()
	wg.Wait()
}

// consoleChat stubs the chat platform: status edits go to stdout and the
// final "upload" is saved into the working directory.
type consoleChat struct {
	nextID atomic.Int64
}

func (c *consoleChat) SendText(_ context.Context, chatID int64, text string, _ telegram.SendOptions) (messages.MessageRef, error) {
	fmt.Printf("[chat %d] %s\n", chatID, text)
	return messages.MessageRef{ChatID: chatID, MessageID: int(c.nextID.Add(1))}, nil
}

func (c *consoleChat) EditText(_ context.Context, ref messages.MessageRef, text string) error {
	fmt.Printf("[chat %d, msg %d] %s\n", ref.ChatID, ref.MessageID, text)
	return nil
}

func (c *consoleChat) DeleteMessage(_ context.Context, ref messages.MessageRef) error {
	fmt.Printf("[chat %d, msg %d] (deleted)\n", ref.ChatID, ref.MessageID)
	return nil
}

func (c *consoleChat) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	f, err := os.Open(fileID)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (c *consoleChat) SendVideo(_ context.Context, chatID int64, upload telegram.VideoUpload) error {
	outPath := upload.VideoName
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, upload.Video); err != nil {
		return err
	}
	fmt.Printf("[chat %d] uploaded video saved to %s\n", chatID, outPath)
	return nil
}
