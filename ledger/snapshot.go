package ledger

import (
	"fmt"
	"time"
)

// Snapshot is the complete state of a ledger in a form the store can
// serialize and hand back to Restore.
type Snapshot struct {
	Account     Account              `json:"account" yaml:"account"`
	TakenAt     time.Time            `json:"taken_at" yaml:"taken_at"`
	Instruments []InstrumentSnapshot `json:"instruments" yaml:"instruments"`
}

type InstrumentSnapshot struct {
	Code     string    `json:"code" yaml:"code"`
	Lots     []Deal    `json:"lots" yaml:"lots"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	PnLs     []PnL     `json:"pnls" yaml:"pnls"`
}

// Snapshot copies the ledger state. Instruments are ordered by code.
func (l *Ledger) Snapshot() Snapshot {
	snap := Snapshot{
		Account: l.account,
		TakenAt: time.Now().UTC(),
	}
	for _, code := range l.Codes() {
		e := l.engines[code]
		is := InstrumentSnapshot{
			Code: code,
			Lots: e.OpenLots(),
			PnLs: e.PnLs(),
		}
		if p, ok := e.Position(); ok {
			is.Position = &p
		}
		snap.Instruments = append(snap.Instruments, is)
	}
	return snap
}

// Restore rebuilds a ledger from snap. Every instrument is checked before
// anything is built, so a bad snapshot never yields a partial ledger.
func Restore(snap Snapshot, opts ...Option) (*Ledger, error) {
	if snap.Account.ID == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrCorruptSnapshot)
	}

	seen := make(map[string]bool, len(snap.Instruments))
	for _, is := range snap.Instruments {
		if seen[is.Code] {
			return nil, fmt.Errorf("%w: duplicate instrument %q", ErrCorruptSnapshot, is.Code)
		}
		seen[is.Code] = true
		if err := is.check(); err != nil {
			return nil, fmt.Errorf("%w: instrument %q: %v", ErrCorruptSnapshot, is.Code, err)
		}
	}

	l := New(snap.Account, opts...)
	for _, is := range snap.Instruments {
		e := NewEngine(is.Code)
		for i := range is.Lots {
			lot := is.Lots[i]
			e.lots = append(e.lots, &lot)
			e.seen[lot.ID] = struct{}{}
		}
		// A deal leaves the queue only by being matched, so every consumed
		// deal appears in the PnL history.
		for _, p := range is.PnLs {
			e.seen[p.Entry.ID] = struct{}{}
			e.seen[p.Cover.ID] = struct{}{}
		}
		if is.Position != nil {
			p := *is.Position
			e.pos = &p
		}
		e.pnls = append(e.pnls, is.PnLs...)
		l.engines[is.Code] = e
	}
	return l, nil
}

func (is InstrumentSnapshot) check() error {
	if is.Code == "" {
		return fmt.Errorf("empty code")
	}

	var open int64
	ids := make(map[string]bool, len(is.Lots))
	for i, lot := range is.Lots {
		if lot.ID == "" || ids[lot.ID] {
			return fmt.Errorf("lot %d has missing or duplicate id %q", i, lot.ID)
		}
		ids[lot.ID] = true
		if lot.Code != is.Code {
			return fmt.Errorf("lot %d belongs to %q", i, lot.Code)
		}
		if !lot.Action.Valid() {
			return fmt.Errorf("lot %d has action %q", i, string(lot.Action))
		}
		if lot.Quantity <= 0 || lot.Remaining <= 0 || lot.Remaining > lot.Quantity {
			return fmt.Errorf("lot %d remaining %d outside (0, %d]", i, lot.Remaining, lot.Quantity)
		}
		if lot.Action != is.Lots[0].Action {
			return fmt.Errorf("lot %d is %s in a %s queue", i, lot.Action, is.Lots[0].Action)
		}
		open += lot.Remaining
	}

	switch {
	case is.Position == nil && len(is.Lots) > 0:
		return fmt.Errorf("%d open lots without a position", len(is.Lots))
	case is.Position != nil && len(is.Lots) == 0:
		return fmt.Errorf("position without open lots")
	case is.Position != nil:
		p := is.Position
		if p.Code != is.Code {
			return fmt.Errorf("position belongs to %q", p.Code)
		}
		if p.Action != is.Lots[0].Action {
			return fmt.Errorf("position is %s but lots are %s", p.Action, is.Lots[0].Action)
		}
		if p.Quantity != open {
			return fmt.Errorf("position quantity %d != open quantity %d", p.Quantity, open)
		}
	}

	for i, p := range is.PnLs {
		if p.Quantity <= 0 {
			return fmt.Errorf("pnl %d has quantity %d", i, p.Quantity)
		}
	}
	return nil
}
