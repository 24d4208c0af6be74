package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/fx"

	"github.com/jdholdren/sweep/internal/sweep"
	"github.com/jdholdren/sweep/internal/sync"
)

// A sweep where every entry exhausts three tries spends about 3s per entry
// backing off, so this covers a few hundred failing entries.
const defaultWriteTimeout = 15 * time.Minute

type (
	// Runs starts sweeps on demand and remembers how recent ones went.
	Runs interface {
		Trigger(ctx context.Context) (sweep.Report, error)
		Report(id string) (sweep.Report, bool)
		Recent() []sweep.Report
	}

	// Server is the HTTP surface over the reading list: triggering sweeps,
	// reading and changing thresholds, and managing entries.
	Server struct {
		*http.Server

		repo sweep.Repository
		runs Runs

		// Swapped out in tests.
		fetchFeed func(ctx context.Context, url string, now time.Time) ([]sweep.Entry, error)
		now       func() time.Time
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string
		// Formatted like "10-M", see [limiter.NewRateFromFormatted].
		ProcessRate string
		// Bounds how long POST /api/process can take to answer. Zero means defaultWriteTimeout.
		WriteTimeout time.Duration
	}

	Params struct {
		fx.In

		Config ServerConfig
		Repo   sweep.Repository
		Runs   Runs
	}
)

// NewServer builds the server and ties its listener to the app lifecycle.
func NewServer(lc fx.Lifecycle, p Params) (*Server, error) {
	srvr, err := newServer(p.Config, p.Repo, p.Runs)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srvr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("api server stopped", "error", err)
				}
			}()

			slog.Debug("started api server", "port", p.Config.Port)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srvr.Shutdown(ctx)
		},
	})

	return srvr, nil
}

func newServer(config ServerConfig, repo sweep.Repository, runs Runs) (*Server, error) {
	rate, err := limiter.NewRateFromFormatted(config.ProcessRate)
	if err != nil {
		return nil, fmt.Errorf("error parsing process rate: %w", err)
	}
	processLimit := stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate))

	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	origin := config.CorsOrigin
	if origin == "" {
		origin = "*"
	}

	r := errRouter{Router: mux.NewRouter()}
	srvr := &Server{
		repo:      repo,
		runs:      runs,
		fetchFeed: sync.Feed,
		now:       time.Now,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: writeTimeout,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{origin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(accessLogMiddleware) // Log everything
	r.HandleFuncE("/healthz", srvr.getHealth).Methods(http.MethodGet)

	// Sweeps
	r.Handle("/api/process", processLimit.Handler(HandlerFuncE(srvr.postProcess))).Methods(http.MethodPost)
	r.HandleFuncE("/api/runs", srvr.getRuns).Methods(http.MethodGet)
	r.HandleFuncE("/api/runs/{runID}", srvr.getRun).Methods(http.MethodGet)

	// Thresholds
	r.HandleFuncE("/api/settings", srvr.getSettings).Methods(http.MethodGet)
	r.HandleFuncE("/api/settings", srvr.putSettings).Methods(http.MethodPut)

	// Reading list
	r.HandleFuncE("/api/entries", srvr.getEntries).Methods(http.MethodGet)
	r.HandleFuncE("/api/entries", srvr.postEntry).Methods(http.MethodPost)
	r.HandleFuncE("/api/entries", srvr.deleteEntry).Methods(http.MethodDelete)
	r.HandleFuncE("/api/entries:import", srvr.postImport).Methods(http.MethodPost)

	slog.Debug("configured api server", "port", config.Port)

	return srvr, nil
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
