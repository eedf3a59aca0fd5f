package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an announcement does not exist.
	ErrNotFound = errors.New("announcement not found")
	// ErrGenerationInProgress is returned by BeginGeneration when the
	// announcement is already generating.
	ErrGenerationInProgress = errors.New("generation already in progress")
	// ErrNoTranscript is returned by BeginGeneration for announcements
	// whose transcription failed.
	ErrNoTranscript = errors.New("announcement has no transcript")
)

const announcementColumns = `id, original_name, audio_path, transcript, status, error, error_code,
	video_path, segment_count, warning_count, warnings, duration_ms, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*Announcement, error) {
	var a Announcement
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(
		&a.ID, &a.OriginalName, &a.AudioPath, &a.Transcript, &status, &a.Error, &a.ErrorCode,
		&a.VideoPath, &a.SegmentCount, &a.WarningCount, &a.Warnings, &a.DurationMs,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = AnnouncementStatus(status)
	// a failed regeneration keeps the last good video
	a.HasVideo = a.VideoPath != "" && a.Status != StatusGenerating
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}

// CreateAnnouncement inserts a new announcement. CreatedAt and UpdatedAt are
// set to now when zero.
func (d *Database) CreateAnnouncement(ctx context.Context, a *Announcement) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	if a.Warnings == "" {
		a.Warnings = "[]"
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO announcements (`+announcementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OriginalName, a.AudioPath, a.Transcript, string(a.Status), a.Error, a.ErrorCode,
		a.VideoPath, a.SegmentCount, a.WarningCount, a.Warnings, a.DurationMs,
		a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// GetAnnouncement returns one announcement by ID.
func (d *Database) GetAnnouncement(ctx context.Context, id string) (*Announcement, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_announcement", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := scanAnnouncement(d.db.QueryRowContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		// Not an operational failure
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return a, nil
}

// ListAnnouncements returns announcements, newest first. A limit <= 0 returns all.
func (d *Database) ListAnnouncements(ctx context.Context, limit int) ([]Announcement, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_announcements", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "SELECT " + announcementColumns + " FROM announcements ORDER BY created_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	return collectAnnouncements(rows)
}

func collectAnnouncements(rows *sql.Rows) ([]Announcement, error) {
	list := []Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// UpdateTranscript replaces the transcript of an announcement that is not
// currently generating. Any previous video stays on disk but is no longer
// reported as current.
func (d *Database) UpdateTranscript(ctx context.Context, id, transcript string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE announcements
		SET transcript = ?, status = ?, error = '', error_code = '',
			segment_count = 0, warning_count = 0, warnings = '[]', duration_ms = 0,
			updated_at = strftime('%s', 'now')
		WHERE id = ? AND status != ?`,
		transcript, string(StatusTranscribed), id, string(StatusGenerating),
	)
	if err != nil {
		return fmt.Errorf("failed to update transcript: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return d.missingOrBusy(ctx, id)
	}
	return nil
}

// BeginGeneration marks an announcement as generating. It fails with
// ErrGenerationInProgress if another generation holds it and with
// ErrNoTranscript if there is nothing to generate from.
func (d *Database) BeginGeneration(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE announcements
		SET status = ?, error = '', error_code = '', updated_at = strftime('%s', 'now')
		WHERE id = ? AND status NOT IN (?, ?)`,
		string(StatusGenerating), id, string(StatusGenerating), string(StatusTranscriptionFailed),
	)
	if err != nil {
		return fmt.Errorf("failed to begin generation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return d.missingOrBusy(ctx, id)
	}
	return nil
}

// missingOrBusy explains why a conditional update touched no rows.
// Callers hold d.mu.
func (d *Database) missingOrBusy(ctx context.Context, id string) error {
	var status string
	err := d.db.QueryRowContext(ctx, "SELECT status FROM announcements WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	switch AnnouncementStatus(status) {
	case StatusGenerating:
		return ErrGenerationInProgress
	case StatusTranscriptionFailed:
		return ErrNoTranscript
	}
	return fmt.Errorf("announcement %s not updated (status %s)", id, status)
}

// FinishGeneration stores the outcome of a generation attempt. An empty
// VideoPath keeps the previous path so an older video file is still
// removed with the announcement.
func (d *Database) FinishGeneration(ctx context.Context, id string, u GenerationUpdate) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	warnings := u.Warnings
	if warnings == "" {
		warnings = "[]"
	}

	result, err := d.db.ExecContext(ctx, `
		UPDATE announcements
		SET status = ?, error = ?, error_code = ?, video_path = COALESCE(NULLIF(?, ''), video_path), segment_count = ?,
			warning_count = ?, warnings = ?, duration_ms = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		string(u.Status), u.Error, u.ErrorCode, u.VideoPath, u.SegmentCount,
		u.WarningCount, warnings, u.DurationMs, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish generation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetStaleGenerations moves announcements left in the generating state by
// a previous process to generation_failed. Returns the number of rows reset.
func (d *Database) ResetStaleGenerations(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE announcements
		SET status = ?, error = 'interrupted by restart', error_code = 'internal_error',
			updated_at = strftime('%s', 'now')
		WHERE status = ?`,
		string(StatusGenerationFailed), string(StatusGenerating),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale generations: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAnnouncement removes an announcement and returns the deleted row so
// the caller can remove its files. Announcements that are generating are
// refused with ErrGenerationInProgress.
func (d *Database) DeleteAnnouncement(ctx context.Context, id string) (*Announcement, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_announcement", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	a, err := scanAnnouncement(tx.QueryRowContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load announcement: %w", err)
	}
	if a.Status == StatusGenerating {
		return nil, ErrGenerationInProgress
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM announcements WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete announcement: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return a, nil
}

// ExpiredAnnouncements returns announcements created before the cutoff that
// are not currently generating.
func (d *Database) ExpiredAnnouncements(ctx context.Context, before time.Time) ([]Announcement, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("expired_announcements", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+announcementColumns+" FROM announcements WHERE created_at < ? AND status != ? ORDER BY created_at",
		before.Unix(), string(StatusGenerating),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired announcements: %w", err)
	}
	defer rows.Close()

	return collectAnnouncements(rows)
}

// AnnouncementCounts returns the number of announcements per status. Every
// status is present in the map.
func (d *Database) AnnouncementCounts(ctx context.Context) (map[string]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts := make(map[string]int, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[string(s)] = 0
	}

	rows, err := d.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM announcements GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
