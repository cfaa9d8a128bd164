// Package ffmpeg invokes the external transcoder: one pass to normalize the
// submitted video to MP4 and one pass to pull a thumbnail frame.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/logx"
)

// Transcoder is what the Converter stage runs on.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
	Thumbnail(ctx context.Context, inputPath, outputPath string) error
}

// ExitError reports a non-zero transcoder exit. The stderr tail carries the
// diagnostic ffmpeg printed.
type ExitError struct {
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("transcoder failed: %v: %s", e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// FFmpeg shells out to ffmpeg/ffprobe binaries.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	log         zerolog.Logger
}

func New(ffmpegPath, ffprobePath string, log zerolog.Logger) *FFmpeg {
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, log: log}
}

// even rounds x down to the nearest even integer. The H.264 encoder rejects
// odd dimensions.
func even(x int) int {
	if x%2 == 0 {
		return x
	}
	return x - 1
}

// scaleFilter builds the -vf argument. When the probed dimensions are known
// it pins them exactly; otherwise ffmpeg truncates to even at encode time.
func scaleFilter(width, height int) string {
	if width > 0 && height > 0 {
		return fmt.Sprintf("scale=%d:%d", even(width), even(height))
	}
	return "scale=trunc(iw/2)*2:trunc(ih/2)*2"
}

// Convert re-encodes inputPath into H.264/AAC MP4 at outputPath.
func (f *FFmpeg) Convert(ctx context.Context, inputPath, outputPath string) error {
	width, height, err := f.probeDimensions(ctx, inputPath)
	if err != nil {
		f.log.Warn().Err(err).Str("input", inputPath).Msg("probe failed, falling back to truncating scale")
	}

	args := []string{
		"-i", inputPath,
		"-vf", scaleFilter(width, height),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-max_muxing_queue_size", "1024",
		"-y",
		outputPath,
	}
	return f.run(ctx, args)
}

// Thumbnail extracts a single frame one second in, skipping a possibly
// blank leading frame.
func (f *FFmpeg) Thumbnail(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-ss", "1",
		"-vframes", "1",
		"-y",
		outputPath,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	pr, pw := io.Pipe()
	cmd.Stderr = io.MultiWriter(&stderr, pw)

	lw := logx.NewLineWriter(f.log, map[string]string{"proc": "ffmpeg"}, zerolog.DebugLevel)
	done := make(chan struct{})
	go func() {
		lw.Pipe(pr)
		close(done)
	}()

	err := cmd.Run()
	pw.Close()
	<-done

	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &ExitError{Stderr: stderrTail(stderr.String()), Err: err}
		}
		return fmt.Errorf("run %s: %w", f.ffmpegPath, err)
	}
	return nil
}

func (f *FFmpeg) probeDimensions(ctx context.Context, inputPath string) (int, int, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}
	parts := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ffprobe: unexpected output %q", strings.TrimSpace(string(out)))
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe width: %w", err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe height: %w", err)
	}
	return width, height, nil
}

// stderrTail keeps the last few lines, enough for the failure notice log.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
