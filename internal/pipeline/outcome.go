// Package pipeline holds the four stage workers and the generic polling
// loop that drives each of them over its input queue.
package pipeline

import (
	"encoding/json"

	"github.com/you/webm2mp4-bot/internal/messages"
)

// Status tags the result of one stage's unit of work. The worker loop
// interprets the tag uniformly; stages never touch the input message's
// receipt themselves.
type Status int

const (
	// StatusOK: forward the next-stage messages, then delete the input.
	StatusOK Status = iota
	// StatusRejected: the job's input cannot succeed on retry. Notify the
	// user, route artifacts to cleanup, delete the input.
	StatusRejected
	// StatusRetry: transient fault. Leave the input for redelivery after
	// the visibility timeout.
	StatusRetry
)

// Forward is one message bound for a downstream queue.
type Forward struct {
	Queue string
	Body  []byte
}

// Notice is a best-effort edit of the user's placeholder message.
type Notice struct {
	Ref  messages.MessageRef
	Text string
}

// Outcome is what a stage hands back to the worker loop. Forwards are
// delivered even on StatusRetry so already-created artifacts still reach
// the cleaner.
type Outcome struct {
	Status   Status
	Notice   Notice
	Forwards []Forward
	Err      error
	Poison   bool
}

func ok(notice Notice, forwards ...Forward) Outcome {
	return Outcome{Status: StatusOK, Notice: notice, Forwards: forwards}
}

func rejected(notice Notice, err error, forwards ...Forward) Outcome {
	return Outcome{Status: StatusRejected, Notice: notice, Err: err, Forwards: forwards}
}

func retry(err error, forwards ...Forward) Outcome {
	return Outcome{Status: StatusRetry, Err: err, Forwards: forwards}
}

// poison marks a payload that cannot be parsed. Deleted without user
// notification: there is no chat reference to notify.
func poison(err error) Outcome {
	return Outcome{Status: StatusRejected, Err: err, Poison: true}
}

// forward marshals a contract struct for a downstream queue. The contracts
// are plain data and cannot fail to marshal.
func forward(queue string, payload any) Forward {
	body, _ := json.Marshal(payload)
	return Forward{Queue: queue, Body: body}
}

// Queues names the four pipeline queues.
type Queues struct {
	Downloader string
	Converter  string
	Uploader   string
	Cleaner    string
}
