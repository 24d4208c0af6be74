// Sweepd keeps a reading list tidy.
//
// It marks entries read once they pass one age threshold and deletes them past
// a second, on startup, on an interval, and whenever asked over HTTP.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/fx"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/sweep/internal/api"
	"github.com/jdholdren/sweep/internal/logger"
	"github.com/jdholdren/sweep/internal/migrations"
	"github.com/jdholdren/sweep/internal/scheduler"
	"github.com/jdholdren/sweep/internal/sqlite"
	"github.com/jdholdren/sweep/internal/sweep"
)

type config struct {
	Database string `env:"DATABASE, required"`
	Port     int    `env:"PORT, default=4444"`

	// Which format to use for logging: either text or json
	LoggerFormat string     `env:"LOGGER_FORMAT, default=text"`
	LogLevel     slog.Level `env:"LOG_LEVEL, default=info"`

	// Zero turns off periodic sweeps
	SweepInterval time.Duration `env:"SWEEP_INTERVAL, default=24h"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS, default=3"`
	RetryBase     time.Duration `env:"RETRY_BASE, default=1s"`
	Policy        string        `env:"POLICY, default=exclusive"`

	CorsOrigin   string        `env:"CORS_ORIGIN, default=*"`
	ProcessRate  string        `env:"PROCESS_RATE, default=10-M"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=15m"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LoggerFormat, cfg.LogLevel))

	policy, err := sweep.ParsePolicy(cfg.Policy)
	if err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Connect to the sqlite db
	dbx, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := sqlite.New(dbx)

	// Start the application
	fx.New(
		fx.Supply(
			api.ServerConfig{
				Port:         cfg.Port,
				CorsOrigin:   cfg.CorsOrigin,
				ProcessRate:  cfg.ProcessRate,
				WriteTimeout: cfg.WriteTimeout,
			},
			scheduler.Config{
				Interval: cfg.SweepInterval,
			},
			sweep.Config{
				MaxAttempts: cfg.RetryAttempts,
				RetryBase:   cfg.RetryBase,
				Policy:      policy,
			},
			fx.Annotate(ctx, fx.As(new(context.Context))),
			fx.Annotate(repo, fx.As(new(sweep.Repository))),
		),
		fx.Provide(
			fx.Annotate(
				func(s *scheduler.Scheduler) *scheduler.Scheduler { return s },
				fx.As(new(api.Runs)),
			),
		),
		scheduler.Module,
		api.Module,
		fx.Invoke(func(*api.Server) {}), // Start the api server
	).Run()
}
