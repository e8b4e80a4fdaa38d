package store

// Schema is shared by the SQLite and PostgreSQL backends.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ledgers (
	blob_key TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	blob_key TEXT NOT NULL,
	instruments INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
}

// postgresSchema swaps the blob type; everything else is portable.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledgers (
	blob_key TEXT PRIMARY KEY,
	data BYTEA NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	blob_key TEXT NOT NULL,
	instruments INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
}
