package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/positions/config"
	"github.com/rustyeddy/positions/ledger"
	"github.com/shopspring/decimal"
)

// DealRecord is one ingested deal as written to the journal.
type DealRecord struct {
	DealID   string
	Account  string
	Code     string
	Action   ledger.Action
	Quantity int64
	Price    decimal.Decimal
	Time     time.Time
}

func NewDealRecord(account string, d ledger.Deal) DealRecord {
	return DealRecord{
		DealID:   d.ID,
		Account:  account,
		Code:     d.Code,
		Action:   d.Action,
		Quantity: d.Quantity,
		Price:    d.Price,
		Time:     d.Time,
	}
}

// PnLRecord flattens a realized match. Action is the side of the entry
// lot, i.e. the position that was reduced.
type PnLRecord struct {
	Account    string
	Code       string
	Action     ledger.Action
	EntryID    string
	CoverID    string
	Quantity   int64
	EntryPrice decimal.Decimal
	CoverPrice decimal.Decimal
	EntryTime  time.Time
	CoverTime  time.Time
	PnL        decimal.Decimal
}

func NewPnLRecord(account string, p ledger.PnL) PnLRecord {
	return PnLRecord{
		Account:    account,
		Code:       p.Entry.Code,
		Action:     p.Entry.Action,
		EntryID:    p.Entry.ID,
		CoverID:    p.Cover.ID,
		Quantity:   p.Quantity,
		EntryPrice: p.Entry.Price,
		CoverPrice: p.Cover.Price,
		EntryTime:  p.Entry.Time,
		CoverTime:  p.Cover.Time,
		PnL:        p.PnL,
	}
}

type Journal interface {
	RecordDeal(DealRecord) error
	RecordPnL(PnLRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDeal(DealRecord) error { return nil }
func (Nop) RecordPnL(PnLRecord) error   { return nil }
func (Nop) Close() error                { return nil }

// Open builds the journal selected by cfg. An empty or "none" type yields
// Nop.
func Open(cfg config.JournalConfig) (Journal, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "csv":
		j, err := NewCSV(cfg.PnLFile, cfg.DealsFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
