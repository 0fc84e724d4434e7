package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Source is a registered deck root: a local directory or a git URL that
// gets cloned under the data directory before indexing.
type Source struct {
	ID          int64
	Path        string
	Kind        string // "local" or "git"
	LastScanned *time.Time
}

// AddSource registers a deck root. Re-adding an existing path is a no-op.
func (db *DB) AddSource(ctx context.Context, path, kind string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO sources (path, kind) VALUES (?, ?)
	`, path, kind)
	if err != nil {
		return fmt.Errorf("failed to add source %s: %w", path, err)
	}
	return nil
}

// Sources returns all registered deck roots.
func (db *DB) Sources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, kind, last_scanned FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var lastScanned sql.NullString
		if err := rows.Scan(&s.ID, &s.Path, &s.Kind, &lastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		if s.LastScanned, err = scanNullableTime(lastScanned); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// TouchSourceScanned records when a source was last reconciled.
func (db *DB) TouchSourceScanned(ctx context.Context, id int64, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("failed to update source %d: %w", id, err)
	}
	return nil
}

// VersionUpdate holds the throttling timestamps for update prompts.
type VersionUpdate struct {
	LastPromptedAt     *time.Time
	LastVersionCheckAt *time.Time
}

// VersionUpdate loads the single version_update row.
func (db *DB) VersionUpdate(ctx context.Context) (VersionUpdate, error) {
	var prompted, checked sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT last_prompted_at, last_version_check_at FROM version_update WHERE id = 1
	`).Scan(&prompted, &checked)
	if err != nil {
		return VersionUpdate{}, fmt.Errorf("failed to load version state: %w", err)
	}

	var vu VersionUpdate
	if vu.LastPromptedAt, err = scanNullableTime(prompted); err != nil {
		return VersionUpdate{}, err
	}
	if vu.LastVersionCheckAt, err = scanNullableTime(checked); err != nil {
		return VersionUpdate{}, err
	}
	return vu, nil
}

// TouchVersionCheck records a completed remote version lookup.
func (db *DB) TouchVersionCheck(ctx context.Context, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE version_update SET last_version_check_at = ? WHERE id = 1
	`, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to record version check: %w", err)
	}
	return nil
}

// TouchVersionPrompt records that the user was shown an update prompt.
func (db *DB) TouchVersionPrompt(ctx context.Context, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE version_update SET last_prompted_at = ? WHERE id = 1
	`, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to record version prompt: %w", err)
	}
	return nil
}
