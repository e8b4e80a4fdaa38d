package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/positions/internal/id"
	"github.com/shopspring/decimal"
)

// Action is the direction of a deal or position.
type Action string

const (
	Buy  Action = "B"
	Sell Action = "S"
)

// ParseAction accepts B, S, BUY or SELL in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B", "BUY":
		return Buy, nil
	case "S", "SELL":
		return Sell, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidDeal, s)
}

func (a Action) Valid() bool { return a == Buy || a == Sell }

func (a Action) Opposite() Action {
	if a == Buy {
		return Sell
	}
	return Buy
}

func (a Action) String() string {
	switch a {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return string(a)
}

// Deal is one executed trade. Remaining counts the units that have not yet
// been matched against an opposite deal; it starts at Quantity and only
// ever decreases.
type Deal struct {
	ID        string          `json:"id" yaml:"id"`
	Code      string          `json:"code" yaml:"code"`
	Action    Action          `json:"action" yaml:"action"`
	Quantity  int64           `json:"quantity" yaml:"quantity"`
	Remaining int64           `json:"remaining" yaml:"remaining"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	Time      time.Time       `json:"time" yaml:"time"`
}

// NewDeal returns an unconsumed deal with a fresh id stamped with at, so ids
// sort in trade time.
func NewDeal(code string, action Action, quantity int64, price decimal.Decimal, at time.Time) *Deal {
	return &Deal{
		ID:        id.NewAt(at),
		Code:      code,
		Action:    action,
		Quantity:  quantity,
		Remaining: quantity,
		Price:     price,
		Time:      at,
	}
}

// Validate checks a freshly arrived deal.
func (d *Deal) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil deal", ErrInvalidDeal)
	}
	if d.Code == "" {
		return fmt.Errorf("%w: empty instrument code", ErrInvalidDeal)
	}
	if !d.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidDeal, string(d.Action))
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidDeal, d.Quantity)
	}
	if d.Remaining != d.Quantity {
		return fmt.Errorf("%w: remaining %d != quantity %d", ErrInvalidDeal, d.Remaining, d.Quantity)
	}
	if d.Price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidDeal, d.Price)
	}
	return nil
}
