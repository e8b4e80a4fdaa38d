package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/positions/internal/id"
	"github.com/rustyeddy/positions/ledger"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	for _, stmt := range Schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Put writes the new blob and repoints the index in one transaction, then
// drops the blob it replaced.
func (s *SQLiteStore) Put(ctx context.Context, snap ledger.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	m := metaFor(snap, id.New())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var old string
	err = tx.QueryRowContext(ctx, `SELECT blob_key FROM accounts WHERE id = ?`, m.AccountID).Scan(&old)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE blob_key = ?`, old); err != nil {
			return err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO ledgers (blob_key, data) VALUES (?, ?)`, m.BlobKey, data); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name, blob_key, instruments, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			blob_key = excluded.blob_key,
			instruments = excluded.instruments,
			updated_at = excluded.updated_at`,
		m.AccountID, m.Name, m.BlobKey, m.Instruments, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, accountID string) (ledger.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT l.data
		FROM accounts a JOIN ledgers l ON l.blob_key = a.blob_key
		WHERE a.id = ?`, accountID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Snapshot{}, notFound(accountID)
		}
		return ledger.Snapshot{}, fmt.Errorf("get %q: %w", accountID, err)
	}
	return decode(accountID, data)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, blob_key, instruments, updated_at
		FROM accounts
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.AccountID, &m.Name, &m.BlobKey, &m.Instruments, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var key string
	err = tx.QueryRowContext(ctx, `SELECT blob_key FROM accounts WHERE id = ?`, accountID).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(accountID)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE blob_key = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
