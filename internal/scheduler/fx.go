package scheduler

import (
	"context"

	"go.uber.org/fx"

	"github.com/jdholdren/sweep/internal/sweep"
)

var Module = fx.Module("scheduler",
	fx.Provide(
		newSweeper,
		NewScheduler,
	),
)

type Params struct {
	fx.In

	// Lives as long as the process, unlike the hook contexts.
	Ctx     context.Context
	Config  Config
	Sweeper *sweep.Sweeper
	Repo    sweep.Repository
}

func newSweeper(repo sweep.Repository, cfg sweep.Config) *sweep.Sweeper {
	return sweep.NewSweeper(repo, cfg)
}

// NewScheduler registers the scheduler's loop with the app lifecycle.
func NewScheduler(lc fx.Lifecycle, p Params) *Scheduler {
	s := New(p.Sweeper, p.Repo, p.Config)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start(p.Ctx)
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})

	return s
}
