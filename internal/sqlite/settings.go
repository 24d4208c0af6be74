package sqlite

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/sweep/internal/sweep"
)

type setting struct {
	Key   string `db:"key"`
	Value int    `db:"value"`
}

// Settings returns the stored values for whichever of keys exist.
func (r Repo) Settings(ctx context.Context, keys []string) (map[string]int, error) {
	values := map[string]int{}
	if len(keys) == 0 {
		return values, nil
	}

	query, args, err := sq.Select("key", "value").From("settings").Where(sq.Eq{"key": keys}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var rows []setting
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: error selecting settings: %s", sweep.ErrStorageUnavailable, err)
	}
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	return values, nil
}

// PutSettings upserts every key in values.
func (r Repo) PutSettings(ctx context.Context, values map[string]int) error {
	if len(values) == 0 {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := sq.Insert("settings").Columns("key", "value")
	for _, k := range keys {
		q = q.Values(k, values[k])
	}
	query, args, err := q.Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: error writing settings: %s", sweep.ErrStorageUnavailable, err)
	}

	return nil
}
