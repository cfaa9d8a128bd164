package pipeline

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/metrics"
	"github.com/you/webm2mp4-bot/internal/queue"
	"github.com/you/webm2mp4-bot/internal/telegram"
)

// Stage is one unit-of-work implementation behind the generic loop.
type Stage interface {
	Name() string
	Handle(ctx context.Context, body []byte) Outcome
}

// Worker drives one stage: receive, work, forward, acknowledge. One message
// at a time; throughput scales by running more worker processes competing
// on the same queue.
type Worker struct {
	stage     Stage
	input     string
	queues    queue.Client
	chat      telegram.Client
	pollDelay time.Duration
	log       zerolog.Logger
}

func NewWorker(stage Stage, input string, queues queue.Client, chat telegram.Client, pollDelay time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		stage:     stage,
		input:     input,
		queues:    queues,
		chat:      chat,
		pollDelay: pollDelay,
		log:       log.With().Str("stage", stage.Name()).Logger(),
	}
}

// Run loops until ctx is cancelled. The current iteration always finishes;
// cancellation is only observed between messages.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Str("queue", w.input).Msg("stage worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info().Msg("stage worker stopped")
			return
		}
		if idle := w.step(ctx); idle {
			select {
			case <-ctx.Done():
			case <-time.After(w.pollDelay):
			}
		}
	}
}

// step processes at most one message and reports whether the queue was
// idle (empty or unreachable).
func (w *Worker) step(ctx context.Context) bool {
	msg, err := w.queues.Receive(ctx, w.input)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("queue receive failed")
		}
		return true
	}
	if msg == nil {
		return true
	}

	start := time.Now()
	out := w.stage.Handle(ctx, msg.Body)
	metrics.StageDuration.WithLabelValues(w.stage.Name()).Observe(time.Since(start).Seconds())

	switch out.Status {
	case StatusOK:
		// Forward before delete: a crash in between redelivers the input
		// and produces a duplicate downstream message, never a lost job.
		for _, f := range out.Forwards {
			if err := w.queues.Send(ctx, f.Queue, f.Body); err != nil {
				metrics.QueueSendErrorsTotal.WithLabelValues(f.Queue).Inc()
				metrics.MessagesProcessedTotal.WithLabelValues(w.stage.Name(), "retry").Inc()
				w.log.Error().Err(err).Str("queue", f.Queue).Msg("forward failed, leaving input for redelivery")
				return false
			}
		}
		w.deleteInput(ctx, msg.Receipt)
		w.notify(ctx, out.Notice)
		metrics.MessagesProcessedTotal.WithLabelValues(w.stage.Name(), "ok").Inc()

	case StatusRejected:
		outcome := "rejected"
		if out.Poison {
			outcome = "poison"
			w.log.Error().Err(out.Err).Msg("poison message, discarding")
		} else {
			w.log.Warn().Err(out.Err).Msg("job rejected")
		}
		w.notify(ctx, out.Notice)
		w.sendBestEffort(ctx, out.Forwards)
		w.deleteInput(ctx, msg.Receipt)
		metrics.MessagesProcessedTotal.WithLabelValues(w.stage.Name(), outcome).Inc()

	case StatusRetry:
		w.log.Error().Err(out.Err).Msg("transient failure, awaiting redelivery")
		w.sendBestEffort(ctx, out.Forwards)
		metrics.MessagesProcessedTotal.WithLabelValues(w.stage.Name(), "retry").Inc()
	}
	return false
}

func (w *Worker) deleteInput(ctx context.Context, receipt string) {
	if err := w.queues.Delete(ctx, w.input, receipt); err != nil {
		// Redelivery will reprocess; downstream tolerates the duplicate.
		w.log.Warn().Err(err).Msg("input delete failed")
	}
}

func (w *Worker) notify(ctx context.Context, n Notice) {
	if n.Text == "" || n.Ref.Zero() {
		return
	}
	if err := w.chat.EditText(ctx, n.Ref, n.Text); err != nil {
		w.log.Warn().Err(err).Msg("status edit failed")
	}
}

func (w *Worker) sendBestEffort(ctx context.Context, forwards []Forward) {
	for _, f := range forwards {
		if err := w.queues.Send(ctx, f.Queue, f.Body); err != nil {
			metrics.QueueSendErrorsTotal.WithLabelValues(f.Queue).Inc()
			w.log.Error().Err(err).Str("queue", f.Queue).Msg("best-effort forward failed")
		}
	}
}

func newULID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// tempPath names a fresh temp artifact, ext includes the dot.
func tempPath(dir, ext string) string {
	return filepath.Join(dir, newULID()+ext)
}
