package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain is a Transcriber that tries each step in order and returns the
// first non-empty result. It exists because a single transcription pass on
// short or noisy clips fails often enough that one extra pass is worth the
// latency.
type Chain struct {
	steps []Transcriber
}

var _ Transcriber = (*Chain)(nil)

// NewChain creates a transcription chain. Passing the same backend more
// than once turns the chain into a retry.
func NewChain(steps ...Transcriber) *Chain {
	return &Chain{steps: steps}
}

// Transcribe runs the chain. It fails only when every step fails.
func (c *Chain) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(c.steps) == 0 {
		return "", fmt.Errorf("transcription chain is empty")
	}

	var errs []error
	for i, step := range c.steps {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		text, err := step.Transcribe(ctx, audio, filename)
		if err != nil {
			slog.Warn("transcription step failed", "step", i, "error", err)
			errs = append(errs, err)
			continue
		}
		if text == "" {
			errs = append(errs, fmt.Errorf("step %d returned empty transcript", i))
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("all transcription steps failed: %w", errors.Join(errs...))
}
