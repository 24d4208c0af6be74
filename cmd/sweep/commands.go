package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/sweep/internal/logger"
	"github.com/jdholdren/sweep/internal/migrations"
	"github.com/jdholdren/sweep/internal/sqlite"
	"github.com/jdholdren/sweep/internal/sweep"
	"github.com/jdholdren/sweep/internal/sync"
)

type options struct {
	Database     string `long:"db" env:"DATABASE" description:"Path to the sqlite database" required:"true"`
	LoggerFormat string `long:"log-format" env:"LOGGER_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
	Verbose      bool   `short:"v" long:"verbose" description:"Log debug output"`
}

// Shared by every command.
type app struct {
	ctx  context.Context
	out  io.Writer
	opts options
	now  func() time.Time
}

func run(ctx context.Context, args []string, out io.Writer) error {
	a := &app{ctx: ctx, out: out, now: time.Now}

	parser := flags.NewParser(&a.opts, flags.Default)
	parser.AddCommand("run", "Sweep the reading list once",
		"Marks stale entries read and deletes old ones, then prints what happened.", &runCmd{app: a})
	parser.AddCommand("import", "Add entries from a feed or a yaml file",
		"Adds every entry not already in the reading list. Pass either --feed or a yaml file.", &importCmd{app: a})
	parser.AddCommand("settings", "Show or change the age thresholds",
		"Prints the thresholds, after applying any that were given.", &settingsCmd{app: a})

	_, err := parser.ParseArgs(args)
	return err
}

// Sets up logging, then opens and migrates the database.
func (a *app) open() (*sqlx.DB, sqlite.Repo, error) {
	level := slog.LevelWarn
	if a.opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(logger.New(os.Stderr, a.opts.LoggerFormat, level))

	dbx, err := sqlite.Open(a.ctx, a.opts.Database)
	if err != nil {
		return nil, sqlite.Repo{}, err
	}
	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return nil, sqlite.Repo{}, fmt.Errorf("error running migrations: %w", err)
	}

	return dbx, sqlite.New(dbx), nil
}

type runCmd struct {
	app *app

	Attempts  int           `long:"attempts" env:"RETRY_ATTEMPTS" default:"3" description:"Tries per entry before giving up"`
	RetryBase time.Duration `long:"retry-base" env:"RETRY_BASE" default:"1s" description:"First wait between tries, doubled each time"`
	Policy    string        `long:"policy" env:"POLICY" default:"exclusive" choice:"exclusive" choice:"independent" description:"Whether entries due for deletion are also marked read"`
	JSON      bool          `long:"json" description:"Print the report as json"`
}

func (c *runCmd) Execute([]string) error {
	policy, err := sweep.ParsePolicy(c.Policy)
	if err != nil {
		return err
	}

	dbx, repo, err := c.app.open()
	if err != nil {
		return err
	}
	defer dbx.Close()

	report, err := sweep.NewSweeper(repo, sweep.Config{
		MaxAttempts: c.Attempts,
		RetryBase:   c.RetryBase,
		Policy:      policy,
		Now:         c.app.now,
	}).Run(c.app.ctx)
	if err != nil {
		return err
	}
	report.Trigger = "cli"

	if c.JSON {
		enc := json.NewEncoder(c.app.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(c.app.out, "scanned %d entries (read after %d days, delete after %d days)\n",
		report.Scanned, report.Settings.DaysUntilRead, report.Settings.DaysUntilDelete)
	fmt.Fprintf(c.app.out, "deleted %d of %d\n", report.Deleted, report.DeleteAttempted)
	fmt.Fprintf(c.app.out, "marked read %d of %d\n", report.MarkedRead, report.MarkReadAttempted)
	return nil
}

type importCmd struct {
	app *app

	Feed string `long:"feed" description:"RSS or Atom feed url to import"`
	Args struct {
		File string `positional-arg-name:"file" description:"YAML file of entries"`
	} `positional-args:"yes"`
}

func (c *importCmd) Execute([]string) error {
	if (c.Feed == "") == (c.Args.File == "") {
		return errors.New("pass exactly one of --feed or a file")
	}

	var (
		entries []sweep.Entry
		err     error
	)
	if c.Feed != "" {
		entries, err = sync.Feed(c.app.ctx, c.Feed, c.app.now())
	} else {
		entries, err = c.readFile()
	}
	if err != nil {
		return err
	}

	dbx, repo, err := c.app.open()
	if err != nil {
		return err
	}
	defer dbx.Close()

	n, err := repo.InsertEntries(c.app.ctx, entries)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.app.out, "imported %d of %d entries\n", n, len(entries))
	return nil
}

func (c *importCmd) readFile() ([]sweep.Entry, error) {
	f, err := os.Open(c.Args.File)
	if err != nil {
		return nil, fmt.Errorf("error opening import file: %w", err)
	}
	defer f.Close()

	return sync.YAML(f, c.app.now())
}

type settingsCmd struct {
	app *app

	Read   int `long:"read" description:"Days before an unread entry is marked read"`
	Delete int `long:"delete" description:"Days before an entry is deleted"`
}

func (c *settingsCmd) Execute([]string) error {
	if c.Read < 0 || c.Delete < 0 {
		return errors.New("thresholds must be positive")
	}

	dbx, repo, err := c.app.open()
	if err != nil {
		return err
	}
	defer dbx.Close()

	// Zero leaves a threshold alone
	values := map[string]int{}
	if c.Read > 0 {
		values[sweep.KeyDaysUntilRead] = c.Read
	}
	if c.Delete > 0 {
		values[sweep.KeyDaysUntilDelete] = c.Delete
	}
	if err := repo.PutSettings(c.app.ctx, values); err != nil {
		return err
	}

	stored, err := repo.Settings(c.app.ctx, sweep.SettingKeys())
	if err != nil {
		return err
	}
	s := sweep.SettingsFrom(stored)

	fmt.Fprintf(c.app.out, "daysUntilRead=%d\ndaysUntilDelete=%d\n", s.DaysUntilRead, s.DaysUntilDelete)
	return nil
}
