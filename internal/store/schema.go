package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS consumption_entries (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path            TEXT NOT NULL,
    resource_type        TEXT NOT NULL,
    from_date            TEXT NOT NULL,
    to_date              TEXT NOT NULL,
    quantity             REAL NOT NULL,
    unit_price           REAL NOT NULL,
    region               TEXT NOT NULL DEFAULT '',
    account              TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    entry_count          INTEGER NOT NULL DEFAULT 0,
    parsed_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_from ON consumption_entries(from_date);
CREATE INDEX IF NOT EXISTS idx_entries_file ON consumption_entries(file_path);
`
