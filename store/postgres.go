package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/positions/internal/id"
	"github.com/rustyeddy/positions/ledger"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the tables if needed.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := NewPostgresStore(pool)
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. The caller owns migrations.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, snap ledger.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	m := metaFor(snap, id.New())

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var old string
		err := tx.QueryRow(ctx, `SELECT blob_key FROM accounts WHERE id = $1 FOR UPDATE`, m.AccountID).Scan(&old)
		switch {
		case err == nil:
			if _, err := tx.Exec(ctx, `DELETE FROM ledgers WHERE blob_key = $1`, old); err != nil {
				return err
			}
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		if _, err := tx.Exec(ctx, `INSERT INTO ledgers (blob_key, data) VALUES ($1, $2)`, m.BlobKey, data); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO accounts (id, name, blob_key, instruments, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				blob_key = EXCLUDED.blob_key,
				instruments = EXCLUDED.instruments,
				updated_at = EXCLUDED.updated_at`,
			m.AccountID, m.Name, m.BlobKey, m.Instruments, m.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) Get(ctx context.Context, accountID string) (ledger.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT l.data
		FROM accounts a JOIN ledgers l ON l.blob_key = a.blob_key
		WHERE a.id = $1`, accountID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Snapshot{}, notFound(accountID)
		}
		return ledger.Snapshot{}, fmt.Errorf("get %q: %w", accountID, err)
	}
	return decode(accountID, data)
}

func (s *PostgresStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, blob_key, instruments, updated_at
		FROM accounts
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.AccountID, &m.Name, &m.BlobKey, &m.Instruments, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, accountID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var key string
		err := tx.QueryRow(ctx, `DELETE FROM accounts WHERE id = $1 RETURNING blob_key`, accountID).Scan(&key)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound(accountID)
			}
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM ledgers WHERE blob_key = $1`, key)
		return err
	})
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
