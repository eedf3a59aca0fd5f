package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// Keys in the metadata table.
const (
	metaLastRetentionRun = "last_retention_run"
)

// GetMetadata returns the value stored under key, or sql.ErrNoRows.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	if err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value); err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

// GetLastRetentionRun returns when expired announcements were last swept,
// or the zero time if they never were.
func (d *Database) GetLastRetentionRun(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, metaLastRetentionRun)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

// SetLastRetentionRun records a sweep at t. The zero time clears it.
func (d *Database) SetLastRetentionRun(ctx context.Context, t time.Time) error {
	value := ""
	if !t.IsZero() {
		value = strconv.FormatInt(t.Unix(), 10)
	}
	return d.SetMetadata(ctx, metaLastRetentionRun, value)
}
