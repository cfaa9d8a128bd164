// Package queue provides the message transport between pipeline stages:
// named queues with at-least-once delivery, a visibility timeout and
// receipt-based deletion.
package queue

import "context"

// Message is one received queue entry. Receipt must be passed back to
// Delete to acknowledge it; until then the message is invisible for the
// queue's visibility timeout and reappears afterwards.
type Message struct {
	Body    []byte
	Receipt string
}

// Client is the transport contract the stage workers run on.
type Client interface {
	// Send enqueues body on the named queue.
	Send(ctx context.Context, queue string, body []byte) error
	// Receive returns at most one message, waiting up to the client's
	// bounded receive wait. A nil message means the queue was empty.
	Receive(ctx context.Context, queue string) (*Message, error)
	// Delete acknowledges a received message. Deleting an unknown or
	// already-deleted receipt is not an error.
	Delete(ctx context.Context, queue string, receipt string) error
}
