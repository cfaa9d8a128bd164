package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory implements Client in process memory with the same at-least-once
// semantics as the Redis client. Used by cmd/localtest and the stage tests.
type Memory struct {
	mu         sync.Mutex
	visibility time.Duration
	queues     map[string][]*memEntry
	now        func() time.Time
}

type memEntry struct {
	id        string
	body      []byte
	invisible time.Time // zero while ready
}

func NewMemory(visibility time.Duration) *Memory {
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	return &Memory{
		visibility: visibility,
		queues:     make(map[string][]*memEntry),
		now:        time.Now,
	}
}

func (m *Memory) Send(_ context.Context, q string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(body))
	copy(b, body)
	m.queues[q] = append(m.queues[q], &memEntry{id: uuid.NewString(), body: b})
	return nil
}

func (m *Memory) Receive(_ context.Context, q string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, e := range m.queues[q] {
		if e.invisible.After(now) {
			continue
		}
		e.invisible = now.Add(m.visibility)
		// Copied out so a consumer mutating the body cannot corrupt what a
		// redelivery sees, matching Send's copy in.
		body := make([]byte, len(e.body))
		copy(body, e.body)
		return &Message{Body: body, Receipt: e.id}, nil
	}
	return nil, nil
}

func (m *Memory) Delete(_ context.Context, q string, receipt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.queues[q]
	for i, e := range entries {
		if e.id == receipt {
			m.queues[q] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports how many messages (ready or in flight) sit on the queue.
func (m *Memory) Len(q string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[q])
}
