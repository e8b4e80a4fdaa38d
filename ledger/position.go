package ledger

import "github.com/shopspring/decimal"

// Position is the net open holding in one instrument. A position with zero
// quantity does not exist; it is removed instead.
type Position struct {
	Code     string          `json:"code" yaml:"code"`
	Action   Action          `json:"action" yaml:"action"`
	Quantity int64           `json:"quantity" yaml:"quantity"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
}

// PnL is the realized result of matching Quantity units of Entry against
// Cover. Entry and Cover are copies taken just before the match.
type PnL struct {
	Entry    Deal            `json:"entry" yaml:"entry"`
	Cover    Deal            `json:"cover" yaml:"cover"`
	Quantity int64           `json:"quantity" yaml:"quantity"`
	PnL      decimal.Decimal `json:"pnl" yaml:"pnl"`
}

type Account struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
