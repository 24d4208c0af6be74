// Package sweep holds the reading list domain: entries, the two age thresholds,
// and the logic that decides what to mark read and what to purge.
//
// Storage and transport live elsewhere and are reached through the interfaces below.
package sweep

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSourceUnavailable  = errors.New("entry source unavailable")
	ErrStorageUnavailable = errors.New("settings storage unavailable")
	ErrMutationFailed     = errors.New("mutation failed")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
)

// Keys the thresholds are persisted under.
const (
	KeyDaysUntilRead   = "daysUntilRead"
	KeyDaysUntilDelete = "daysUntilDelete"

	// Written once, the first time the daemon starts against a store.
	KeyInstalledAt = "installedAt"
)

const (
	DefaultDaysUntilRead   = 30
	DefaultDaysUntilDelete = 60
)

type (
	// Entry is one item in the reading list. Timestamps are epoch milliseconds.
	Entry struct {
		URL            string `db:"url" json:"url"`
		Title          string `db:"title" json:"title"`
		HasBeenRead    bool   `db:"has_been_read" json:"hasBeenRead"`
		CreationTime   int64  `db:"creation_time" json:"creationTime"`
		LastUpdateTime int64  `db:"last_update_time" json:"lastUpdateTime"`
	}

	// Settings are the two thresholds, in days.
	Settings struct {
		DaysUntilRead   int `json:"daysUntilRead"`
		DaysUntilDelete int `json:"daysUntilDelete"`
	}

	// EntrySource hands out the current snapshot of the reading list.
	EntrySource interface {
		Entries(ctx context.Context) ([]Entry, error)
	}

	// SettingsSource returns whichever of the requested keys are present.
	SettingsSource interface {
		Settings(ctx context.Context, keys []string) (map[string]int, error)
	}

	ReadMarker interface {
		SetRead(ctx context.Context, url string, read bool) error
	}

	Remover interface {
		Remove(ctx context.Context, url string) error
	}

	// Store is everything a sweep needs from the outside world.
	Store interface {
		EntrySource
		SettingsSource
		ReadMarker
		Remover
	}

	// ListEntriesArgs holds the optional filters for listing entries.
	ListEntriesArgs struct {
		UnreadOnly bool
		Offset     int
		Limit      int
	}

	// Repository is the full storage surface used by the API, importers and triggers.
	Repository interface {
		Store

		Entry(ctx context.Context, url string) (Entry, error)
		ListEntries(ctx context.Context, args ListEntriesArgs) ([]Entry, error)
		CountEntries(ctx context.Context, unreadOnly bool) (int, error)
		InsertEntry(ctx context.Context, entry Entry) error
		// Skips entries whose url is already present, returns the number inserted.
		InsertEntries(ctx context.Context, entries []Entry) (int, error)
		PutSettings(ctx context.Context, values map[string]int) error
	}
)

// DefaultSettings returns the thresholds used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{
		DaysUntilRead:   DefaultDaysUntilRead,
		DaysUntilDelete: DefaultDaysUntilDelete,
	}
}

// SettingKeys are the keys requested from a [SettingsSource] on every run.
func SettingKeys() []string {
	return []string{KeyDaysUntilRead, KeyDaysUntilDelete}
}

// SettingsFrom fills in defaults for any key missing from values.
func SettingsFrom(values map[string]int) Settings {
	s := DefaultSettings()
	if v, ok := values[KeyDaysUntilRead]; ok {
		s.DaysUntilRead = v
	}
	if v, ok := values[KeyDaysUntilDelete]; ok {
		s.DaysUntilDelete = v
	}

	return s
}

// Values is the persisted form of the settings.
func (s Settings) Values() map[string]int {
	return map[string]int{
		KeyDaysUntilRead:   s.DaysUntilRead,
		KeyDaysUntilDelete: s.DaysUntilDelete,
	}
}

// Millis converts t to the epoch millisecond form entries carry.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
