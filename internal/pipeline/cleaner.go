package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/you/webm2mp4-bot/internal/messages"
)

// Cleaner reclaims temp artifacts. It is the pipeline's terminal sink and
// the only component that deletes files from local storage; removal is
// idempotent because redelivery may name the same path twice.
type Cleaner struct {
	log zerolog.Logger
}

func NewCleaner(log zerolog.Logger) *Cleaner {
	return &Cleaner{log: log}
}

func (c *Cleaner) Name() string { return "cleaner" }

func (c *Cleaner) Handle(_ context.Context, body []byte) Outcome {
	var req messages.CleanupRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return poison(fmt.Errorf("decode cleanup request: %w", err))
	}

	for _, path := range req.Paths() {
		err := os.Remove(path)
		switch {
		case err == nil:
			c.log.Debug().Str("path", path).Msg("artifact removed")
		case os.IsNotExist(err):
			// The job may have failed before this file was created, or a
			// redelivered request already removed it.
		default:
			return retry(fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return ok(Notice{})
}
