package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/sweep/internal/sweep"
)

var entryColumns = []string{"url", "title", "has_been_read", "creation_time", "last_update_time"}

// Entries returns every entry in the order they were added.
func (r Repo) Entries(ctx context.Context) ([]sweep.Entry, error) {
	query, args, err := sq.Select(entryColumns...).From("entries").OrderBy("rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	entries := []sweep.Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("%w: error selecting entries: %s", sweep.ErrSourceUnavailable, err)
	}

	return entries, nil
}

func (r Repo) Entry(ctx context.Context, url string) (sweep.Entry, error) {
	query, args, err := sq.Select(entryColumns...).From("entries").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return sweep.Entry{}, fmt.Errorf("error constructing sql: %s", err)
	}

	var entry sweep.Entry
	err = r.db.GetContext(ctx, &entry, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return sweep.Entry{}, sweep.ErrNotFound
	}
	if err != nil {
		return sweep.Entry{}, fmt.Errorf("error fetching entry: %s", err)
	}

	return entry, nil
}

func (r Repo) ListEntries(ctx context.Context, args sweep.ListEntriesArgs) ([]sweep.Entry, error) {
	q := sq.Select(entryColumns...).From("entries").OrderBy("rowid")
	if args.UnreadOnly {
		q = q.Where(sq.Eq{"has_been_read": false})
	}
	if args.Limit > 0 {
		q = q.Limit(uint64(args.Limit)).Offset(uint64(max(args.Offset, 0)))
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	entries := []sweep.Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error listing entries: %s", err)
	}

	return entries, nil
}

func (r Repo) CountEntries(ctx context.Context, unreadOnly bool) (int, error) {
	q := sq.Select("COUNT(*)").From("entries")
	if unreadOnly {
		q = q.Where(sq.Eq{"has_been_read": false})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error constructing sql: %s", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("error counting entries: %s", err)
	}

	return count, nil
}

const insertEntryQuery = `INSERT INTO entries (url, title, has_been_read, creation_time, last_update_time)
	VALUES (:url, :title, :has_been_read, :creation_time, :last_update_time)`

// InsertEntry adds a single entry, failing with [sweep.ErrConflict] if the url is taken.
func (r Repo) InsertEntry(ctx context.Context, entry sweep.Entry) error {
	_, err := r.db.NamedExecContext(ctx, insertEntryQuery, r.stamp(entry))
	if isConflict(err) {
		return fmt.Errorf("entry already exists: %w", sweep.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("error inserting entry: %s", err)
	}

	return nil
}

// InsertEntries adds entries in one transaction, skipping urls that already exist.
func (r Repo) InsertEntries(ctx context.Context, entries []sweep.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %s", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, entry := range entries {
		res, err := tx.NamedExecContext(ctx, insertEntryQuery+" ON CONFLICT(url) DO NOTHING", r.stamp(entry))
		if err != nil {
			return 0, fmt.Errorf("error inserting entry: %s", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("error reading rows affected: %s", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing entries: %s", err)
	}

	return inserted, nil
}

// SetRead flips the read flag. Missing entries are not an error.
func (r Repo) SetRead(ctx context.Context, url string, read bool) error {
	query, args, err := sq.Update("entries").
		Set("has_been_read", read).
		Set("last_update_time", sweep.Millis(r.now())).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: error updating read state: %s", sweep.ErrMutationFailed, err)
	}

	return nil
}

// Remove deletes the entry. Missing entries are not an error.
func (r Repo) Remove(ctx context.Context, url string) error {
	const q = `DELETE FROM entries WHERE url = ?;`

	if _, err := r.db.ExecContext(ctx, q, url); err != nil {
		return fmt.Errorf("%w: error deleting entry: %s", sweep.ErrMutationFailed, err)
	}

	return nil
}

// Fills in timestamps the caller left empty.
func (r Repo) stamp(entry sweep.Entry) sweep.Entry {
	now := sweep.Millis(r.now())
	if entry.CreationTime == 0 {
		entry.CreationTime = now
	}
	if entry.LastUpdateTime == 0 {
		entry.LastUpdateTime = entry.CreationTime
	}

	return entry
}
