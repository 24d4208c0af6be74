package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryBase   = time.Second
)

// Executor applies one kind of mutation to a batch of entries, one entry at a time.
//
// Every entry gets up to MaxAttempts tries. Between tries it waits Base, then 2*Base,
// 4*Base and so on. An entry that runs out of tries is logged and skipped.
type Executor struct {
	MaxAttempts int
	Base        time.Duration
}

// MarkRead flags every entry as read and returns how many succeeded.
func (e Executor) MarkRead(ctx context.Context, marker ReadMarker, entries []Entry) int {
	return e.apply(ctx, "mark_read", entries, func(ctx context.Context, url string) error {
		return marker.SetRead(ctx, url, true)
	})
}

// Delete removes every entry and returns how many succeeded.
func (e Executor) Delete(ctx context.Context, remover Remover, entries []Entry) int {
	return e.apply(ctx, "delete", entries, remover.Remove)
}

func (e Executor) apply(ctx context.Context, action string, entries []Entry, mutate func(context.Context, string) error) int {
	succeeded := 0
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "batch interrupted", "action", action, "remaining", len(entries)-i, "error", err)
			break
		}

		attempts := 0
		err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
			attempts++
			err := mutate(ctx, entry.URL)
			if errors.Is(err, ErrNotFound) {
				// Already gone, nothing left to do
				slog.DebugContext(ctx, "entry already absent", "action", action, "url", entry.URL)
				return nil
			}
			if err != nil {
				slog.WarnContext(ctx, "mutation attempt failed", "action", action, "url", entry.URL, "attempt", attempts, "error", err)
				return retry.RetryableError(err)
			}

			return nil
		})
		if err != nil && ctx.Err() != nil {
			// The next pass through the loop ends the batch
			slog.WarnContext(ctx, "entry interrupted", "action", action, "url", entry.URL, "attempts", attempts, "error", err)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "giving up on entry", "action", action, "url", entry.URL, "attempts", attempts, "error", err)
			continue
		}

		slog.DebugContext(ctx, "entry mutated", "action", action, "url", entry.URL, "attempts", attempts)
		succeeded++
	}

	return succeeded
}

// backoff builds a fresh schedule for a single entry.
func (e Executor) backoff() retry.Backoff {
	var (
		attempts = max(e.MaxAttempts, 1)
		base     = e.Base
	)
	if base <= 0 {
		base = DefaultRetryBase
	}

	return retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
}
