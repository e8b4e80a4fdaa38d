package ledger

import (
	"fmt"

	"github.com/rustyeddy/positions/internal/id"
	"github.com/shopspring/decimal"
)

// Engine matches deals for a single instrument. It owns the queue of open
// lots, the current position and the realized PnL history.
//
// Engine is not safe for concurrent use; callers serialize RecordDeal per
// instrument.
type Engine struct {
	code string
	lots []*Deal
	pos  *Position
	pnls []PnL

	// ids of every deal this engine has accepted, open or consumed.
	seen map[string]struct{}
}

func NewEngine(code string) *Engine {
	return &Engine{code: code, seen: make(map[string]struct{})}
}

func (e *Engine) Code() string { return e.code }

// RecordDeal applies d and returns the PnL records it produced. The deal is
// owned by the engine afterwards and its Remaining field is updated in place.
// A deal is accepted once; recording it again, or another deal with the
// same ID, fails with ErrInvalidDeal.
func (e *Engine) RecordDeal(d *Deal) ([]PnL, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Code != e.code {
		return nil, fmt.Errorf("%w: deal for %q sent to %q", ErrInvalidDeal, d.Code, e.code)
	}
	if e.has(d.ID) {
		return nil, fmt.Errorf("%w: duplicate deal %s", ErrInvalidDeal, d.ID)
	}
	for _, lot := range e.lots {
		if lot == d {
			return nil, fmt.Errorf("%w: deal %s already queued", ErrInvalidDeal, d.ID)
		}
	}
	if d.ID == "" {
		d.ID = id.NewAt(d.Time)
	}

	e.seen[d.ID] = struct{}{}
	e.lots = append(e.lots, d)

	if e.pos == nil {
		e.pos = &Position{
			Code:     e.code,
			Action:   d.Action,
			Quantity: d.Quantity,
			Price:    d.Price,
		}
		return nil, nil
	}

	if d.Action == e.pos.Action {
		e.pos.Quantity += d.Quantity
		e.pos.Price = e.openCost()
		return nil, nil
	}

	var emitted []PnL
	for d.Remaining > 0 {
		front := e.lots[0]
		if front.Action == d.Action {
			// Every opposing lot is gone and d is the only thing left in
			// the queue: the residual opens a new position.
			e.pos.Action = d.Action
			e.pos.Quantity = d.Remaining
			e.pos.Price = d.Price
			break
		}
		emitted = append(emitted, e.cover(d))
	}

	if e.pos.Quantity == 0 {
		e.pos = nil
	}
	e.pnls = append(e.pnls, emitted...)
	return emitted, nil
}

// cover runs one matching step of d against the oldest open lot.
func (e *Engine) cover(d *Deal) PnL {
	entry := e.lots[0]
	e.lots = e.lots[1:]

	q := min(entry.Remaining, d.Remaining)
	qd := decimal.NewFromInt(q)

	var pnl decimal.Decimal
	if e.pos.Action == Buy {
		pnl = d.Price.Sub(entry.Price).Mul(qd)
	} else {
		pnl = entry.Price.Sub(d.Price).Mul(qd)
	}
	rec := PnL{
		Entry:    *entry,
		Cover:    *d,
		Quantity: q,
		PnL:      pnl,
	}

	e.pos.Quantity -= q

	if entry.Remaining > q {
		entry.Remaining -= q
		e.lots = append([]*Deal{entry}, e.lots...)
	} else {
		entry.Remaining = 0
	}

	d.Remaining -= q
	if d.Remaining == 0 {
		e.lots = e.lots[:len(e.lots)-1]
	}

	if e.pos.Quantity > 0 {
		e.pos.Price = e.openCost()
	}
	return rec
}

func (e *Engine) has(dealID string) bool {
	if dealID == "" {
		return false
	}
	_, ok := e.seen[dealID]
	return ok
}

// openCost is the exact weighted average price of the open lots on the
// position's side.
func (e *Engine) openCost() decimal.Decimal {
	var qty int64
	notional := decimal.Zero
	for _, lot := range e.lots {
		if lot.Action != e.pos.Action {
			continue
		}
		qty += lot.Remaining
		notional = notional.Add(lot.Price.Mul(decimal.NewFromInt(lot.Remaining)))
	}
	if qty == 0 {
		return decimal.Zero
	}
	return notional.Div(decimal.NewFromInt(qty))
}

// Position returns a copy of the open position, if any.
func (e *Engine) Position() (Position, bool) {
	if e.pos == nil {
		return Position{}, false
	}
	return *e.pos, true
}

// OpenLots returns copies of the queued deals, oldest first.
func (e *Engine) OpenLots() []Deal {
	out := make([]Deal, 0, len(e.lots))
	for _, lot := range e.lots {
		out = append(out, *lot)
	}
	return out
}

// PnLs returns the realized PnL records in the order they were produced.
func (e *Engine) PnLs() []PnL {
	out := make([]PnL, len(e.pnls))
	copy(out, e.pnls)
	return out
}

// Realized sums the PnL column.
func (e *Engine) Realized() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.pnls {
		total = total.Add(p.PnL)
	}
	return total
}
