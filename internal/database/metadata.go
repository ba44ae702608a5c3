package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastPruneKey = "last_task_prune"

// GetMetadata retrieves a metadata value by key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastTaskPrune returns when done tasks were last pruned, or the zero time.
func (d *Database) LastTaskPrune(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastPruneKey)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastTaskPrune records when done tasks were last pruned.
func (d *Database) SetLastTaskPrune(ctx context.Context, t time.Time) error {
	return d.SetMetadata(ctx, lastPruneKey, t.UTC().Format(time.RFC3339))
}
