// Package scheduler decides when the reading list gets swept: once when the
// daemon starts (or is installed), on a fixed interval, and whenever asked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/sweep/internal/logger"
	"github.com/jdholdren/sweep/internal/sweep"
)

// Trigger names what caused a run.
type Trigger string

const (
	TriggerInstall  Trigger = "install"
	TriggerStartup  Trigger = "startup"
	TriggerPeriodic Trigger = "periodic"
	TriggerManual   Trigger = "manual"
)

// How many finished reports are kept around for lookups.
const recentReports = 64

type (
	// Runner performs one sweep.
	Runner interface {
		Run(ctx context.Context) (sweep.Report, error)
	}

	// SettingsStore is where install-time defaults are written.
	SettingsStore interface {
		sweep.SettingsSource
		PutSettings(ctx context.Context, values map[string]int) error
	}

	Config struct {
		// Zero disables periodic runs.
		Interval time.Duration
	}

	Scheduler struct {
		runner   Runner
		settings SettingsStore
		interval time.Duration
		now      func() time.Time
		recent   *lru.Cache[string, sweep.Report]

		cancel context.CancelFunc
		wg     sync.WaitGroup
	}
)

func New(runner Runner, settings SettingsStore, cfg Config) *Scheduler {
	recent, _ := lru.New[string, sweep.Report](recentReports)

	return &Scheduler{
		runner:   runner,
		settings: settings,
		interval: cfg.Interval,
		now:      time.Now,
		recent:   recent,
	}
}

// Start seeds settings on first install, then kicks off the initial run and
// the periodic loop in the background. The loop lives until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	first, err := s.install(ctx)
	if err != nil {
		return fmt.Errorf("error checking install state: %w", err)
	}

	trigger := TriggerStartup
	if first {
		trigger = TriggerInstall
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, trigger)
	}()

	return nil
}

// Stop cancels the loop and waits for any in-flight run to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Trigger runs a sweep right away and hands back its outcome.
func (s *Scheduler) Trigger(ctx context.Context) (sweep.Report, error) {
	return s.run(ctx, TriggerManual)
}

// Report looks up a recently finished run. Looking one up doesn't change the order of [Scheduler.Recent].
func (s *Scheduler) Report(id string) (sweep.Report, bool) {
	return s.recent.Peek(id)
}

// Recent returns the retained reports, oldest first.
func (s *Scheduler) Recent() []sweep.Report {
	return s.recent.Values()
}

func (s *Scheduler) loop(ctx context.Context, first Trigger) {
	if _, err := s.run(ctx, first); err != nil {
		slog.ErrorContext(ctx, "initial sweep failed", "trigger", first, "error", err)
	}

	if s.interval <= 0 {
		slog.DebugContext(ctx, "periodic sweeps disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.run(ctx, TriggerPeriodic); err != nil {
				slog.ErrorContext(ctx, "periodic sweep failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, trigger Trigger) (sweep.Report, error) {
	ctx = logger.Ctx(ctx, slog.String("trigger", string(trigger)))

	report, err := s.runner.Run(ctx)
	report.Trigger = string(trigger)
	if err != nil {
		return report, err
	}

	s.recent.Add(report.ID, report)
	return report, nil
}

// Writes default thresholds for any key that isn't set yet and records the
// install time. Reports whether this was the first start.
func (s *Scheduler) install(ctx context.Context) (bool, error) {
	keys := append(sweep.SettingKeys(), sweep.KeyInstalledAt)
	existing, err := s.settings.Settings(ctx, keys)
	if err != nil {
		return false, err
	}
	if _, ok := existing[sweep.KeyInstalledAt]; ok {
		return false, nil
	}

	values := map[string]int{
		sweep.KeyInstalledAt: int(sweep.Millis(s.now())),
	}
	for k, v := range sweep.DefaultSettings().Values() {
		if _, ok := existing[k]; !ok {
			values[k] = v
		}
	}
	if err := s.settings.PutSettings(ctx, values); err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "installed", "defaults", values)
	return true, nil
}
