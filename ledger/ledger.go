package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger holds the matching engines of one account, one per instrument
// code. Engines are created on the first deal for a code.
type Ledger struct {
	account Account
	engines map[string]*Engine
	log     *zap.Logger
}

type Option func(*Ledger)

// WithLogger sets the logger used for position lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.log = l
		}
	}
}

func New(account Account, opts ...Option) *Ledger {
	l := &Ledger{
		account: account,
		engines: make(map[string]*Engine),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("account", account.ID))
	return l
}

func (l *Ledger) Account() Account { return l.account }

// RecordDeal routes d to the engine for code. An empty d.Code is filled in
// with code; a different one is rejected.
func (l *Ledger) RecordDeal(code string, d *Deal) ([]PnL, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil deal", ErrInvalidDeal)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: empty instrument code", ErrInvalidDeal)
	}
	if d.Code != "" && d.Code != code {
		return nil, fmt.Errorf("%w: deal for %q recorded under %q", ErrInvalidDeal, d.Code, code)
	}
	// Validate against a copy so a rejected deal leaves both the caller's
	// value and the ledger untouched.
	probe := *d
	probe.Code = code
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	// Deal ids are unique across the whole account.
	for other, e := range l.engines {
		if other != code && e.has(d.ID) {
			return nil, fmt.Errorf("%w: duplicate deal %s already recorded under %q", ErrInvalidDeal, d.ID, other)
		}
	}
	d.Code = code

	e, ok := l.engines[code]
	if !ok {
		e = NewEngine(code)
	}

	before, had := e.Position()
	pnls, err := e.RecordDeal(d)
	if err != nil {
		return nil, err
	}
	l.engines[code] = e
	l.logTransition(code, before, had, e)
	return pnls, nil
}

func (l *Ledger) logTransition(code string, before Position, had bool, e *Engine) {
	after, has := e.Position()
	switch {
	case !had && has:
		l.log.Debug("position opened",
			zap.String("code", code),
			zap.Stringer("action", after.Action),
			zap.Int64("quantity", after.Quantity),
			zap.String("price", after.Price.String()))
	case had && !has:
		l.log.Debug("position closed",
			zap.String("code", code),
			zap.String("realized", e.Realized().String()))
	case had && has && before.Action != after.Action:
		l.log.Debug("position flipped",
			zap.String("code", code),
			zap.Stringer("action", after.Action),
			zap.Int64("quantity", after.Quantity),
			zap.String("price", after.Price.String()))
	}
}

// Codes returns every instrument code that has seen a deal, sorted.
func (l *Ledger) Codes() []string {
	codes := make([]string, 0, len(l.engines))
	for code := range l.engines {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Positions returns the open positions keyed by code.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position)
	for code, e := range l.engines {
		if p, ok := e.Position(); ok {
			out[code] = p
		}
	}
	return out
}

// Position returns the open position for code, or ErrNotFound when the
// code is unknown or its position has been closed.
func (l *Ledger) Position(code string) (Position, error) {
	e, err := l.engine(code)
	if err != nil {
		return Position{}, err
	}
	p, ok := e.Position()
	if !ok {
		return Position{}, fmt.Errorf("position %q: %w", code, ErrNotFound)
	}
	return p, nil
}

// OpenLots returns the queued deals for code, oldest first. A known code
// with nothing open returns an empty slice, not an error.
func (l *Ledger) OpenLots(code string) ([]Deal, error) {
	e, err := l.engine(code)
	if err != nil {
		return nil, err
	}
	return e.OpenLots(), nil
}

// PnLHistory returns the realized PnL records for code in match order.
func (l *Ledger) PnLHistory(code string) ([]PnL, error) {
	e, err := l.engine(code)
	if err != nil {
		return nil, err
	}
	return e.PnLs(), nil
}

// RealizedPnL sums the realized PnL for code.
func (l *Ledger) RealizedPnL(code string) (decimal.Decimal, error) {
	e, err := l.engine(code)
	if err != nil {
		return decimal.Zero, err
	}
	return e.Realized(), nil
}

func (l *Ledger) engine(code string) (*Engine, error) {
	e, ok := l.engines[code]
	if !ok {
		return nil, fmt.Errorf("instrument %q: %w", code, ErrNotFound)
	}
	return e, nil
}
