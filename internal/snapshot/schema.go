package snapshot

// Schema DDL. Documents are stored as JSON text keyed by collection and
// record identity.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    collection TEXT NOT NULL,
    record_id TEXT NOT NULL,
    document TEXT NOT NULL,
    dirty INTEGER NOT NULL DEFAULT 0,
    is_new INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (collection, record_id)
);`

	createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    collection TEXT PRIMARY KEY,
    snapshot_id TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    saved_at TEXT NOT NULL
);`
)

var schema = []string{createRecords, createSnapshots}
