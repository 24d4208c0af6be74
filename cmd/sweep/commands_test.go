package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/sweep/internal/sweep"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestSettingsCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	out, err := runCLI(t, "--db", db, "settings")
	require.NoError(t, err)
	assert.Equal(t, "daysUntilRead=30\ndaysUntilDelete=60\n", out)

	out, err = runCLI(t, "--db", db, "settings", "--read", "7")
	require.NoError(t, err)
	assert.Equal(t, "daysUntilRead=7\ndaysUntilDelete=60\n", out)

	_, err = runCLI(t, "--db", db, "settings", "--delete", "-1")
	assert.Error(t, err)
}

func TestImportAndRunCommands(t *testing.T) {
	var (
		dir  = t.TempDir()
		db   = filepath.Join(dir, "cli.db")
		file = filepath.Join(dir, "list.yaml")
		old  = time.Now().Add(-90 * 24 * time.Hour).UTC().Format(time.RFC3339)
		aged = time.Now().Add(-45 * 24 * time.Hour).UTC().Format(time.RFC3339)
	)
	require.NoError(t, os.WriteFile(file, []byte(`
entries:
  - url: https://example.com/old
    added: `+old+`
  - url: https://example.com/aged
    added: `+aged+`
  - url: https://example.com/new
`), 0o600))

	out, err := runCLI(t, "--db", db, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported 3 of 3 entries\n", out)

	// Second time around everything is already there
	out, err = runCLI(t, "--db", db, "import", file)
	require.NoError(t, err)
	assert.Equal(t, "imported 0 of 3 entries\n", out)

	out, err = runCLI(t, "--db", db, "run", "--json", "--retry-base", "1ms")
	require.NoError(t, err)

	var report sweep.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "cli", report.Trigger)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, report.MarkedRead)
}

func TestImportCommand_NeedsOneSource(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := runCLI(t, "--db", db, "import")
	assert.Error(t, err)

	_, err = runCLI(t, "--db", db, "import", "--feed", "https://example.com/feed", "list.yaml")
	assert.Error(t, err)
}

func TestRunCommand_BadPolicy(t *testing.T) {
	_, err := runCLI(t, "--db", filepath.Join(t.TempDir(), "cli.db"), "run", "--policy", "chaos")
	assert.Error(t, err)
}
