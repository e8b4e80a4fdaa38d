package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rustyeddy/positions/ledger"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Writes go to the primary and invalidate the cached blob; reads check
// Redis first and fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Put(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.primary.Put(ctx, snap); err != nil {
		return err
	}
	// The next read repopulates the cache from the primary.
	return s.invalidate(ctx, snap.Account.ID)
}

func (s *CachedStore) Get(ctx context.Context, accountID string) (ledger.Snapshot, error) {
	data, err := s.rdb.Get(ctx, ledgerKey(accountID)).Bytes()
	if err == nil {
		if snap, err := decode(accountID, data); err == nil {
			return snap, nil
		}
		// A bad cache entry is never authoritative.
		s.rdb.Del(ctx, ledgerKey(accountID))
	}

	snap, err := s.primary.Get(ctx, accountID)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	if data, err := encode(snap); err == nil {
		s.rdb.Set(ctx, ledgerKey(accountID), data, s.ttl)
	}
	return snap, nil
}

func (s *CachedStore) List(ctx context.Context) ([]Meta, error) {
	return s.primary.List(ctx)
}

func (s *CachedStore) Delete(ctx context.Context, accountID string) error {
	if err := s.primary.Delete(ctx, accountID); err != nil {
		return err
	}
	return s.invalidate(ctx, accountID)
}

func (s *CachedStore) Close() error {
	return errors.Join(s.primary.Close(), s.rdb.Close())
}

func (s *CachedStore) invalidate(ctx context.Context, accountID string) error {
	if err := s.rdb.Del(ctx, ledgerKey(accountID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func ledgerKey(accountID string) string { return "spm:ledger:" + accountID }
