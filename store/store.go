// Package store persists ledger snapshots. Each backend keeps two things:
// an opaque blob per account holding the encoded snapshot, and a metadata
// index mapping account ids to the blob that currently holds their state.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rustyeddy/positions/config"
	"github.com/rustyeddy/positions/ledger"
)

// Store is the persistence interface used by the registry.
type Store interface {
	// Put replaces the stored state of snap.Account.ID.
	Put(ctx context.Context, snap ledger.Snapshot) error

	// Get returns the stored snapshot. A missing account wraps
	// ledger.ErrNotFound, an undecodable blob ledger.ErrCorruptSnapshot.
	Get(ctx context.Context, accountID string) (ledger.Snapshot, error)

	// List returns the metadata index ordered by account id.
	List(ctx context.Context) ([]Meta, error)

	// Delete removes the account and its blob.
	Delete(ctx context.Context, accountID string) error

	Close() error
}

// Meta is one row of the metadata index.
type Meta struct {
	AccountID   string    `json:"account_id"`
	Name        string    `json:"name"`
	BlobKey     string    `json:"blob_key"`
	Instruments int       `json:"instruments"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func metaFor(snap ledger.Snapshot, key string) Meta {
	return Meta{
		AccountID:   snap.Account.ID,
		Name:        snap.Account.Name,
		BlobKey:     key,
		Instruments: len(snap.Instruments),
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func notFound(accountID string) error {
	return fmt.Errorf("account %q: %w", accountID, ledger.ErrNotFound)
}

// Open builds the backend selected by cfg, wrapped in a Redis cache when
// cfg.Redis.Addr is set.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Type {
	case "sqlite":
		s, err = NewSQLite(cfg.DBPath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DSN)
	case "memory":
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}

	if cfg.Redis.Addr == "" {
		return s, nil
	}
	ttl, err := cfg.Redis.ParseTTL()
	if err != nil {
		s.Close()
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		s.Close()
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	return NewCachedStore(s, rdb, ttl), nil
}
