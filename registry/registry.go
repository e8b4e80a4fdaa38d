// Package registry routes deals to per-account ledgers and hands their
// state to a store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/positions/journal"
	"github.com/rustyeddy/positions/ledger"
	"github.com/rustyeddy/positions/metrics"
	"github.com/rustyeddy/positions/store"
	"go.uber.org/zap"
)

// Registry maps account ids to ledgers. The map itself is guarded so
// lookups from several goroutines are safe; each ledger still expects a
// single writer.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[string]*ledger.Ledger

	store   store.Store
	journal journal.Journal
	log     *zap.Logger
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithJournal sets where accepted deals and realized PnL are appended.
func WithJournal(j journal.Journal) Option {
	return func(r *Registry) {
		if j != nil {
			r.journal = j
		}
	}
}

func New(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		ledgers: make(map[string]*ledger.Ledger),
		store:   s,
		journal: journal.Nop{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the ledger for account, creating an empty one if needed.
func (r *Registry) Open(account ledger.Account) (*ledger.Ledger, error) {
	if account.ID == "" {
		return nil, fmt.Errorf("open ledger: empty account id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.ledgers[account.ID]; ok {
		return l, nil
	}
	l := ledger.New(account, ledger.WithLogger(r.log))
	r.ledgers[account.ID] = l
	r.log.Info("ledger opened", zap.String("account", account.ID))
	return l, nil
}

// Get returns the loaded ledger for accountID.
func (r *Registry) Get(accountID string) (*ledger.Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.ledgers[accountID]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", accountID, ledger.ErrNotFound)
	}
	return l, nil
}

// Accounts lists the loaded accounts ordered by id.
func (r *Registry) Accounts() []ledger.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ledger.Account, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		out = append(out, l.Account())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordDeal routes d to the ledger of accountID, then journals the deal
// and any PnL it realized.
//
// A journal failure is returned after the ledger has been updated; the
// ledger is never rolled back. Callers must not retry the deal after such
// an error: it is already booked, and the ledger rejects it as a
// duplicate with ErrInvalidDeal.
func (r *Registry) RecordDeal(accountID, code string, d *ledger.Deal) ([]ledger.PnL, error) {
	l, err := r.Get(accountID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pnls, err := l.RecordDeal(code, d)
	if err != nil {
		metrics.DealsRejected.Inc()
		r.log.Warn("deal rejected",
			zap.String("account", accountID),
			zap.String("code", code),
			zap.Error(err))
		return nil, err
	}
	metrics.ObserveDeal(accountID, d.Action, pnls, time.Since(start))
	metrics.SetOpenPositions(accountID, len(l.Positions()))

	if err := r.journal.RecordDeal(journal.NewDealRecord(accountID, *d)); err != nil {
		return pnls, fmt.Errorf("journal deal %s: %w", d.ID, err)
	}
	for _, p := range pnls {
		if err := r.journal.RecordPnL(journal.NewPnLRecord(accountID, p)); err != nil {
			return pnls, fmt.Errorf("journal pnl for %s: %w", d.ID, err)
		}
	}
	return pnls, nil
}

// Load replaces the in-memory ledger of accountID with the stored one. On
// any failure the registry is left as it was.
func (r *Registry) Load(ctx context.Context, accountID string) (*ledger.Ledger, error) {
	snap, err := r.store.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", accountID, err)
	}
	l, err := ledger.Restore(snap, ledger.WithLogger(r.log))
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", accountID, err)
	}

	r.mu.Lock()
	r.ledgers[accountID] = l
	r.mu.Unlock()

	metrics.SetOpenPositions(accountID, len(l.Positions()))
	r.log.Info("ledger loaded",
		zap.String("account", accountID),
		zap.Int("instruments", len(snap.Instruments)))
	return l, nil
}

// LoadOrOpen loads accountID from the store, or opens an empty ledger if
// the store has never seen it.
func (r *Registry) LoadOrOpen(ctx context.Context, account ledger.Account) (*ledger.Ledger, error) {
	l, err := r.Load(ctx, account.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		return r.Open(account)
	}
	return l, err
}

// LoadAll loads every account listed in the store's index. Accounts are
// restored into a scratch map first so a single bad blob leaves the
// registry untouched.
func (r *Registry) LoadAll(ctx context.Context) error {
	metas, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	loaded := make(map[string]*ledger.Ledger, len(metas))
	for _, m := range metas {
		snap, err := r.store.Get(ctx, m.AccountID)
		if err != nil {
			return fmt.Errorf("load %q: %w", m.AccountID, err)
		}
		l, err := ledger.Restore(snap, ledger.WithLogger(r.log))
		if err != nil {
			return fmt.Errorf("load %q: %w", m.AccountID, err)
		}
		loaded[m.AccountID] = l
	}

	r.mu.Lock()
	for accountID, l := range loaded {
		r.ledgers[accountID] = l
	}
	r.mu.Unlock()

	r.log.Info("ledgers loaded", zap.Int("accounts", len(loaded)))
	return nil
}

// Save persists the ledger of accountID.
func (r *Registry) Save(ctx context.Context, accountID string) error {
	l, err := r.Get(accountID)
	if err != nil {
		return err
	}
	snap := l.Snapshot()
	if err := r.store.Put(ctx, snap); err != nil {
		return fmt.Errorf("save %q: %w", accountID, err)
	}
	r.log.Info("ledger saved",
		zap.String("account", accountID),
		zap.Int("instruments", len(snap.Instruments)))
	return nil
}

// SaveAll persists every loaded ledger, stopping at the first failure.
func (r *Registry) SaveAll(ctx context.Context) error {
	for _, a := range r.Accounts() {
		if err := r.Save(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// Drop removes accountID from the registry and the store.
func (r *Registry) Drop(ctx context.Context, accountID string) error {
	if err := r.store.Delete(ctx, accountID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("drop %q: %w", accountID, err)
	}

	r.mu.Lock()
	_, ok := r.ledgers[accountID]
	delete(r.ledgers, accountID)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("account %q: %w", accountID, ledger.ErrNotFound)
	}
	return nil
}
