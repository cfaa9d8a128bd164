package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/webm2mp4-bot/internal/messages"
	"github.com/you/webm2mp4-bot/internal/queue"
)

type scriptedStage struct {
	out   Outcome
	calls int
}

func (s *scriptedStage) Name() string { return "scripted" }

func (s *scriptedStage) Handle(context.Context, []byte) Outcome {
	s.calls++
	return s.out
}

type failSendQueue struct {
	queue.Client
}

func (f *failSendQueue) Send(context.Context, string, []byte) error {
	return errors.New("queue unavailable")
}

func newTestWorker(stage Stage, q queue.Client, chat *fakeChat) *Worker {
	return NewWorker(stage, "in", q, chat, time.Millisecond, zerolog.Nop())
}

func TestWorkerForwardsThenDeletesOnOK(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(time.Minute)
	chat := newFakeChat()
	ref := messages.MessageRef{ChatID: 1, MessageID: 2}
	stage := &scriptedStage{out: ok(Notice{ref, "done"}, Forward{Queue: "next", Body: []byte("payload")})}

	require.NoError(t, q.Send(ctx, "in", []byte("job")))
	w := newTestWorker(stage, q, chat)
	assert.False(t, w.step(ctx))

	assert.Equal(t, 1, stage.calls)
	assert.Equal(t, 0, q.Len("in"), "input must be acknowledged")
	assert.Equal(t, 1, q.Len("next"), "next stage must receive the forward")
	assert.Equal(t, "done", chat.lastEdit())
}

func TestWorkerLeavesInputOnRetry(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(time.Minute)
	chat := newFakeChat()
	cleanup := forward("cleaner", messages.CleanupRequest{InputPath: "/tmp/x.webm"})
	stage := &scriptedStage{out: retry(errors.New("blip"), cleanup)}

	require.NoError(t, q.Send(ctx, "in", []byte("job")))
	w := newTestWorker(stage, q, chat)
	w.step(ctx)

	assert.Equal(t, 1, q.Len("in"), "input must stay for redelivery")
	assert.Equal(t, 1, q.Len("cleaner"), "created artifacts still reach cleanup")
	assert.Empty(t, chat.edits)
}

func TestWorkerDeletesRejectedInput(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(time.Minute)
	chat := newFakeChat()
	ref := messages.MessageRef{ChatID: 1, MessageID: 2}
	cleanup := forward("cleaner", messages.CleanupRequest{InputPath: "/tmp/x.webm"})
	stage := &scriptedStage{out: rejected(Notice{ref, "no luck"}, errors.New("404"), cleanup)}

	require.NoError(t, q.Send(ctx, "in", []byte("job")))
	w := newTestWorker(stage, q, chat)
	w.step(ctx)

	assert.Equal(t, 0, q.Len("in"), "rejected input must not loop")
	assert.Equal(t, 1, q.Len("cleaner"))
	assert.Equal(t, "no luck", chat.lastEdit())
}

func TestWorkerDiscardsPoisonWithoutNotice(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(time.Minute)
	chat := newFakeChat()
	stage := &scriptedStage{out: poison(errors.New("bad json"))}

	require.NoError(t, q.Send(ctx, "in", []byte("{{{")))
	w := newTestWorker(stage, q, chat)
	w.step(ctx)

	assert.Equal(t, 0, q.Len("in"))
	assert.Empty(t, chat.edits)
}

func TestWorkerKeepsInputWhenForwardFails(t *testing.T) {
	ctx := context.Background()
	mem := queue.NewMemory(time.Minute)
	chat := newFakeChat()
	stage := &scriptedStage{out: ok(Notice{}, Forward{Queue: "next", Body: []byte("payload")})}

	require.NoError(t, mem.Send(ctx, "in", []byte("job")))
	w := newTestWorker(stage, &failSendQueue{Client: mem}, chat)
	w.step(ctx)

	// Delete only after the forward-enqueue succeeds: a failed forward must
	// leave the input for redelivery.
	assert.Equal(t, 1, mem.Len("in"))
}

func TestWorkerIdleOnEmptyQueue(t *testing.T) {
	q := queue.NewMemory(time.Minute)
	w := newTestWorker(&scriptedStage{}, q, newFakeChat())
	assert.True(t, w.step(context.Background()))
}
