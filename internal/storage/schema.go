package storage

const schema = `
-- The 'documents' table is a key-value store for whole study documents.
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    body BLOB NOT NULL,
    checksum TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

-- The 'sources' table tracks where word lists are imported from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- 'local' or 'git'
    deck_id TEXT NOT NULL,
    last_scanned DATETIME
);
`
