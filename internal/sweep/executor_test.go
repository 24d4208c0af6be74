package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fails each url a set number of times before succeeding; -1 fails forever.
type flakyMutator struct {
	failures map[string]int
	err      error
	calls    []string
}

func (m *flakyMutator) mutate(_ context.Context, url string) error {
	m.calls = append(m.calls, url)

	n, ok := m.failures[url]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		m.failures[url] = n - 1
	}
	if m.err != nil {
		return m.err
	}

	return fmt.Errorf("%w: boom", ErrMutationFailed)
}

func (m *flakyMutator) SetRead(ctx context.Context, url string, read bool) error {
	return m.mutate(ctx, url)
}

func (m *flakyMutator) Remove(ctx context.Context, url string) error {
	return m.mutate(ctx, url)
}

func entriesNamed(names ...string) []Entry {
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		out = append(out, Entry{URL: n})
	}
	return out
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	var (
		m = &flakyMutator{failures: map[string]int{"a": -1}}
		e = Executor{MaxAttempts: 2, Base: time.Millisecond}
	)

	got := e.MarkRead(context.Background(), m, entriesNamed("a"))

	assert.Equal(t, 0, got)
	assert.Equal(t, []string{"a", "a"}, m.calls)
}

func TestExecutor_BackoffSchedule(t *testing.T) {
	tests := []struct {
		attempts int
		want     []time.Duration
	}{
		{attempts: 1, want: nil},
		{attempts: 2, want: []time.Duration{time.Second}},
		{attempts: 3, want: []time.Duration{time.Second, 2 * time.Second}},
		{attempts: 4, want: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d attempts", tt.attempts), func(t *testing.T) {
			b := Executor{MaxAttempts: tt.attempts, Base: time.Second}.backoff()

			var got []time.Duration
			for {
				d, stop := b.Next()
				if stop {
					break
				}
				got = append(got, d)
				require.LessOrEqual(t, len(got), tt.attempts, "backoff never stopped")
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_DefaultBase(t *testing.T) {
	b := Executor{MaxAttempts: 2}.backoff()

	d, stop := b.Next()
	assert.False(t, stop)
	assert.Equal(t, DefaultRetryBase, d)
}

func TestExecutor_RecoversAfterTransientFailure(t *testing.T) {
	var (
		m = &flakyMutator{failures: map[string]int{"a": 2}}
		e = Executor{MaxAttempts: 3, Base: time.Millisecond}
	)

	got := e.Delete(context.Background(), m, entriesNamed("a"))

	assert.Equal(t, 1, got)
	assert.Equal(t, []string{"a", "a", "a"}, m.calls)
}

func TestExecutor_FailureIsIsolated(t *testing.T) {
	var (
		m = &flakyMutator{failures: map[string]int{"b": -1}}
		e = Executor{MaxAttempts: 3, Base: time.Millisecond}
	)

	got := e.Delete(context.Background(), m, entriesNamed("a", "b", "c"))

	assert.Equal(t, 2, got)
	assert.Equal(t, []string{"a", "b", "b", "b", "c"}, m.calls)
}

func TestExecutor_NotFoundCountsAsDone(t *testing.T) {
	var (
		m = &flakyMutator{failures: map[string]int{"gone": -1}, err: ErrNotFound}
		e = Executor{MaxAttempts: 3, Base: time.Millisecond}
	)

	got := e.Delete(context.Background(), m, entriesNamed("gone"))

	assert.Equal(t, 1, got)
	assert.Equal(t, []string{"gone"}, m.calls)
}

func TestExecutor_ZeroAttemptsStillTriesOnce(t *testing.T) {
	var (
		m = &flakyMutator{failures: map[string]int{"a": -1}}
		e = Executor{MaxAttempts: 0, Base: time.Millisecond}
	)

	got := e.MarkRead(context.Background(), m, entriesNamed("a"))

	assert.Equal(t, 0, got)
	assert.Len(t, m.calls, 1)
}

func TestExecutor_CancelledContext(t *testing.T) {
	var (
		m = &flakyMutator{}
		e = Executor{MaxAttempts: 3, Base: time.Millisecond}
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := e.MarkRead(ctx, m, entriesNamed("a", "b"))

	assert.Equal(t, 0, got)
	assert.Empty(t, m.calls)
}

// Cancels the run from inside its first mutation, then fails it.
type cancellingMutator struct {
	cancel context.CancelFunc
	calls  []string
}

func (m *cancellingMutator) SetRead(_ context.Context, url string, _ bool) error {
	m.calls = append(m.calls, url)
	m.cancel()
	return fmt.Errorf("%w: boom", ErrMutationFailed)
}

func TestExecutor_CancelledMidRetryIsNotExhaustion(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		m = &cancellingMutator{cancel: cancel}
		e = Executor{MaxAttempts: 3, Base: time.Hour}
	)

	got := e.MarkRead(ctx, m, entriesNamed("a", "b"))

	assert.Equal(t, 0, got)
	assert.Equal(t, []string{"a"}, m.calls)
	assert.Contains(t, logs.String(), "entry interrupted")
	assert.Contains(t, logs.String(), "batch interrupted")
	assert.NotContains(t, logs.String(), "giving up on entry")
}

func TestExecutor_EmptyBatch(t *testing.T) {
	m := &flakyMutator{}

	got := Executor{}.Delete(context.Background(), m, nil)

	assert.Equal(t, 0, got)
	assert.Empty(t, m.calls)
}

func TestWrapIfBare(t *testing.T) {
	err := wrapIfBare(errors.New("disk on fire"), ErrStorageUnavailable)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "disk on fire")

	already := fmt.Errorf("%w: nope", ErrSourceUnavailable)
	assert.Equal(t, already, wrapIfBare(already, ErrSourceUnavailable))
}
