package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdholdren/sweep/internal/logger"
)

type (
	// Config tunes a [Sweeper]. Zero values fall back to the defaults.
	Config struct {
		MaxAttempts int
		RetryBase   time.Duration
		Policy      Policy

		// Clock for age calculations, time.Now if nil.
		Now func() time.Time
	}

	// Sweeper runs complete passes over the reading list.
	//
	// It keeps nothing between runs; concurrent calls to Run are serialised.
	Sweeper struct {
		store    Store
		executor Executor
		policy   Policy
		now      func() time.Time

		mu sync.Mutex
	}

	// Report describes what one run did.
	Report struct {
		ID         string    `json:"id"`
		Trigger    string    `json:"trigger,omitempty"`
		Settings   Settings  `json:"settings"`
		StartedAt  time.Time `json:"started_at"`
		FinishedAt time.Time `json:"finished_at"`

		Scanned           int `json:"scanned"`
		DeleteAttempted   int `json:"delete_attempted"`
		Deleted           int `json:"deleted"`
		MarkReadAttempted int `json:"mark_read_attempted"`
		MarkedRead        int `json:"marked_read"`
	}
)

func NewSweeper(store Store, cfg Config) *Sweeper {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyExclusive
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Sweeper{
		store: store,
		executor: Executor{
			MaxAttempts: cfg.MaxAttempts,
			Base:        cfg.RetryBase,
		},
		policy: cfg.Policy,
		now:    cfg.Now,
	}
}

// Run does one full pass: read the thresholds, snapshot the entries, classify,
// then delete followed by marking read.
//
// Only a failure to read settings or entries is returned. Per-entry failures are
// logged and counted in the report.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
	}
	ctx = logger.Ctx(ctx, slog.String("run_id", report.ID))

	values, err := s.store.Settings(ctx, SettingKeys())
	if err != nil {
		return report, fmt.Errorf("error reading settings: %w", wrapIfBare(err, ErrStorageUnavailable))
	}
	report.Settings = SettingsFrom(values)

	entries, err := s.store.Entries(ctx)
	if err != nil {
		return report, fmt.Errorf("error fetching entries: %w", wrapIfBare(err, ErrSourceUnavailable))
	}
	report.Scanned = len(entries)

	c := ClassifyWith(entries, report.Settings, report.StartedAt, s.policy)
	slog.InfoContext(ctx, "classified entries",
		"scanned", len(entries),
		"to_delete", len(c.ToDelete),
		"to_mark_read", len(c.ToMarkRead),
		"days_until_read", report.Settings.DaysUntilRead,
		"days_until_delete", report.Settings.DaysUntilDelete,
		"policy", s.policy,
	)

	// Deletion goes first: it's terminal, and a deleted entry's read state doesn't matter
	report.DeleteAttempted = len(c.ToDelete)
	report.Deleted = s.executor.Delete(ctx, s.store, c.ToDelete)

	report.MarkReadAttempted = len(c.ToMarkRead)
	report.MarkedRead = s.executor.MarkRead(ctx, s.store, c.ToMarkRead)

	report.FinishedAt = s.now()
	slog.InfoContext(ctx, "sweep finished",
		"deleted", report.Deleted,
		"delete_failed", report.DeleteFailed(),
		"marked_read", report.MarkedRead,
		"mark_read_failed", report.MarkReadFailed(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

func (r Report) DeleteFailed() int {
	return r.DeleteAttempted - r.Deleted
}

func (r Report) MarkReadFailed() int {
	return r.MarkReadAttempted - r.MarkedRead
}

// Failed is the number of entries that could not be mutated in this run.
func (r Report) Failed() int {
	return r.DeleteFailed() + r.MarkReadFailed()
}

// Makes sure callers can match on the sentinel even if the collaborator returned something else.
func wrapIfBare(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}
