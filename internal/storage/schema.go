package storage

// migrations are applied in order at startup; PRAGMA user_version tracks
// how far a database has been migrated.
var migrations = []string{
	`
CREATE TABLE cards (
    card_hash TEXT PRIMARY KEY,
    added_at TEXT NOT NULL,
    last_reviewed_at TEXT,
    stability REAL,
    difficulty REAL,
    interval_raw REAL,
    interval_days INTEGER,
    due_date TEXT,
    review_count INTEGER NOT NULL
);
CREATE INDEX idx_cards_due_date ON cards(due_date);
`,
	`
CREATE TABLE version_update (
    id INTEGER PRIMARY KEY,
    last_prompted_at TEXT,
    last_version_check_at TEXT
);
INSERT INTO version_update (id, last_prompted_at, last_version_check_at) VALUES (1, NULL, NULL);
`,
	`
CREATE TABLE sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL DEFAULT 'local',
    last_scanned TEXT
);
`,
}
