package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/repeater/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// timeLayout is RFC 3339 UTC with fixed-width nanoseconds so that stored
// timestamps compare correctly as strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the SQL connection to cards.db. A single process owns the
// file for the duration of a run.
type DB struct {
	conn *sql.DB
}

// Open creates a database connection and brings the schema up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; also keeps :memory: databases on one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// OpenDefault opens cards.db in the platform data directory.
func OpenDefault() (*DB, error) {
	path, err := DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		tx, err := conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func scanNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertNew inserts a state row for a newly observed hash. Existing rows
// are never touched, so re-indexing cannot overwrite scheduling state.
// It reports whether a row was actually inserted.
func (db *DB) UpsertNew(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO cards (card_hash, added_at, review_count)
		VALUES (?, ?, 0)
	`, hash, formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to upsert card %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Performance loads a card's scheduling state. ok reports whether the
// hash is known at all; a known card that has never been reviewed comes
// back as (nil, true, nil).
func (db *DB) Performance(ctx context.Context, hash string) (*domain.Performance, bool, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT last_reviewed_at, stability, difficulty, interval_raw, interval_days, due_date, review_count
		FROM cards WHERE card_hash = ?
	`, hash)

	perf, err := scanPerformance(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load card %s: %w", hash, err)
	}
	return perf, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerformance(row rowScanner) (*domain.Performance, error) {
	var lastReviewedAt, dueDate sql.NullString
	var stability, difficulty, intervalRaw sql.NullFloat64
	var intervalDays sql.NullInt64
	var reviewCount int

	err := row.Scan(&lastReviewedAt, &stability, &difficulty, &intervalRaw, &intervalDays, &dueDate, &reviewCount)
	if err != nil {
		return nil, err
	}
	if reviewCount == 0 {
		return nil, nil
	}
	if !lastReviewedAt.Valid || !stability.Valid || !difficulty.Valid || !intervalRaw.Valid || !dueDate.Valid {
		return nil, fmt.Errorf("reviewed card is missing scheduling fields")
	}

	last, err := parseTime(lastReviewedAt.String)
	if err != nil {
		return nil, err
	}
	due, err := parseTime(dueDate.String)
	if err != nil {
		return nil, err
	}
	return &domain.Performance{
		LastReviewedAt: last,
		Stability:      stability.Float64,
		Difficulty:     difficulty.Float64,
		IntervalRaw:    intervalRaw.Float64,
		IntervalDays:   int(intervalDays.Int64),
		DueDate:        due,
		ReviewCount:    reviewCount,
	}, nil
}

// UpdateAfterReview writes the full post-grade state in one statement.
func (db *DB) UpdateAfterReview(ctx context.Context, hash string, perf domain.Performance) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET last_reviewed_at = ?, stability = ?, difficulty = ?,
		    interval_raw = ?, interval_days = ?, due_date = ?, review_count = ?
		WHERE card_hash = ?
	`,
		formatTime(perf.LastReviewedAt),
		perf.Stability,
		perf.Difficulty,
		perf.IntervalRaw,
		perf.IntervalDays,
		formatTime(perf.DueDate),
		perf.ReviewCount,
		hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown card %s", hash)
	}
	return nil
}

// AllStates loads every card row as hash -> performance (nil for cards
// never reviewed). Callers filter down to the hashes they indexed, which
// is also how orphaned rows stay out of sessions.
func (db *DB) AllStates(ctx context.Context) (map[string]*domain.Performance, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_hash, last_reviewed_at, stability, difficulty, interval_raw, interval_days, due_date, review_count
		FROM cards
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load card states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*domain.Performance)
	for rows.Next() {
		var hash string
		var lastReviewedAt, dueDate sql.NullString
		var stability, difficulty, intervalRaw sql.NullFloat64
		var intervalDays sql.NullInt64
		var reviewCount int
		if err := rows.Scan(&hash, &lastReviewedAt, &stability, &difficulty, &intervalRaw,
			&intervalDays, &dueDate, &reviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan card state: %w", err)
		}
		if reviewCount == 0 {
			states[hash] = nil
			continue
		}
		last, err := parseTime(lastReviewedAt.String)
		if err != nil {
			return nil, err
		}
		due, err := parseTime(dueDate.String)
		if err != nil {
			return nil, err
		}
		states[hash] = &domain.Performance{
			LastReviewedAt: last,
			Stability:      stability.Float64,
			Difficulty:     difficulty.Float64,
			IntervalRaw:    intervalRaw.Float64,
			IntervalDays:   int(intervalDays.Int64),
			DueDate:        due,
			ReviewCount:    reviewCount,
		}
	}
	return states, rows.Err()
}

// Summary is the dashboard breakdown of the collection at a point in
// time. DueNow counts cards inside the learn-ahead window but not yet
// overdue; UpcomingToday and UpcomingWeek count beyond the window.
type Summary struct {
	New           int
	Overdue       int
	DueNow        int
	UpcomingToday int
	UpcomingWeek  int
}

// Summary computes due-state counts. window is the learn-ahead duration.
func (db *DB) Summary(ctx context.Context, now time.Time, window time.Duration) (Summary, error) {
	nowS := formatTime(now)
	windowS := formatTime(now.Add(window))
	dayS := formatTime(now.Add(24 * time.Hour))
	weekS := formatTime(now.Add(7 * 24 * time.Hour))

	var s Summary
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			SUM(CASE WHEN review_count = 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN due_date IS NOT NULL AND due_date < ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN due_date IS NOT NULL AND due_date >= ? AND due_date <= ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN due_date IS NOT NULL AND due_date > ? AND due_date <= ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN due_date IS NOT NULL AND due_date > ? AND due_date <= ? THEN 1 ELSE 0 END)
		FROM cards
	`, nowS, nowS, windowS, windowS, dayS, dayS, weekS).Scan(
		newNullCount(&s.New), newNullCount(&s.Overdue), newNullCount(&s.DueNow),
		newNullCount(&s.UpcomingToday), newNullCount(&s.UpcomingWeek))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to compute summary: %w", err)
	}
	return s, nil
}

// nullCount scans a SUM() that may be NULL on an empty table.
type nullCount struct{ dst *int }

func newNullCount(dst *int) *nullCount { return &nullCount{dst: dst} }

func (n *nullCount) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*n.dst = 0
	case int64:
		*n.dst = int(x)
	default:
		return fmt.Errorf("unexpected count type %T", v)
	}
	return nil
}
