package storage

// schema defines the persisted snapshot layout: the archived event records
// plus a small key/value table for the counters and the save timestamp.
const schema = `
CREATE TABLE IF NOT EXISTS event_records (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          TEXT NOT NULL UNIQUE,
    relative_ms INTEGER NOT NULL,
    message     TEXT NOT NULL,
    category    TEXT NOT NULL,
    is_error    INTEGER NOT NULL DEFAULT 0,
    state       TEXT NOT NULL,
    context     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_records_category ON event_records(category);

CREATE TABLE IF NOT EXISTS snapshot_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const (
	metaValidTransitions = "valid_transition_count"
	metaErrorCount       = "error_count"
	metaSavedAt          = "saved_at"
)
