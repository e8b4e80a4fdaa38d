package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2021, 1, 1, 9, 0, 0, 0, time.UTC)

func deal(action Action, qty int64, price string) *Deal {
	return NewDeal("AAPL", action, qty, decimal.RequireFromString(price), t0)
}

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func record(t *testing.T, e *Engine, deals ...*Deal) []PnL {
	t.Helper()
	var out []PnL
	for _, d := range deals {
		pnls, err := e.RecordDeal(d)
		require.NoError(t, err)
		out = append(out, pnls...)
		checkInvariants(t, e)
	}
	return out
}

// checkInvariants asserts that the queue and the position agree.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()

	pos, ok := e.Position()
	lots := e.OpenLots()
	if !ok {
		assert.Empty(t, lots, "lots left without a position")
		return
	}
	require.NotEmpty(t, lots)

	var open int64
	for _, lot := range lots {
		assert.Equal(t, pos.Action, lot.Action)
		assert.Greater(t, lot.Remaining, int64(0))
		assert.LessOrEqual(t, lot.Remaining, lot.Quantity)
		open += lot.Remaining
	}
	assert.Equal(t, pos.Quantity, open)
	assert.Greater(t, pos.Quantity, int64(0))
}

func TestRecordDealWithoutPosition(t *testing.T) {
	t.Parallel()

	for _, action := range []Action{Buy, Sell} {
		action := action
		t.Run(action.String(), func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			d := deal(action, 100, "100.0")
			pnls := record(t, e, d)

			assert.Empty(t, pnls)
			lots := e.OpenLots()
			require.Len(t, lots, 1)
			assert.Equal(t, *d, lots[0])

			pos, ok := e.Position()
			require.True(t, ok)
			assert.Equal(t, int64(100), pos.Quantity)
			assertDecimal(t, "100", pos.Price)
			assert.Equal(t, action, pos.Action)
		})
	}
}

func TestRecordDealSameSide(t *testing.T) {
	t.Parallel()

	for _, action := range []Action{Buy, Sell} {
		action := action
		t.Run(action.String(), func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			first := deal(action, 100, "100.0")
			second := deal(action, 100, "110.0")
			pnls := record(t, e, first, second)

			assert.Empty(t, pnls)
			lots := e.OpenLots()
			require.Len(t, lots, 2)
			assert.Equal(t, first.ID, lots[0].ID)
			assert.Equal(t, second.ID, lots[1].ID)

			pos, ok := e.Position()
			require.True(t, ok)
			assert.Equal(t, int64(200), pos.Quantity)
			assertDecimal(t, "105", pos.Price)
			assert.Equal(t, action, pos.Action)
		})
	}
}

func TestRecordDealSimpleCover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action Action
		pnl    string
	}{
		{Buy, "1000"},
		{Sell, "-1000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.action.String(), func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			entry := deal(tt.action, 100, "100.0")
			cover := deal(tt.action.Opposite(), 100, "110.0")
			pnls := record(t, e, entry, cover)

			assert.Empty(t, e.OpenLots())
			_, ok := e.Position()
			assert.False(t, ok)

			require.Len(t, pnls, 1)
			assert.Equal(t, pnls, e.PnLs())
			assert.Equal(t, entry.ID, pnls[0].Entry.ID)
			assert.Equal(t, cover.ID, pnls[0].Cover.ID)
			assert.Equal(t, int64(100), pnls[0].Quantity)
			assertDecimal(t, tt.pnl, pnls[0].PnL)
		})
	}
}

func TestRecordDealPartialCover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action Action
		pnl    string
	}{
		{Buy, "200"},
		{Sell, "-200"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.action.String(), func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			entry := deal(tt.action, 100, "100.0")
			cover := deal(tt.action.Opposite(), 20, "110.0")
			cover.Time = t0.Add(10 * time.Minute)
			pnls := record(t, e, entry, cover)

			lots := e.OpenLots()
			require.Len(t, lots, 1)
			assert.Equal(t, entry.ID, lots[0].ID)
			assert.Equal(t, int64(80), lots[0].Remaining)

			pos, ok := e.Position()
			require.True(t, ok)
			assert.Equal(t, int64(80), pos.Quantity)
			assertDecimal(t, "100", pos.Price)
			assert.Equal(t, tt.action, pos.Action)

			require.Len(t, pnls, 1)
			assert.Equal(t, int64(20), pnls[0].Quantity)
			assertDecimal(t, tt.pnl, pnls[0].PnL)
			// The entry copy shows the lot as it was when it was matched.
			assert.Equal(t, int64(100), pnls[0].Entry.Remaining)
			assert.Equal(t, int64(20), pnls[0].Cover.Remaining)
		})
	}
}

func TestRecordDealOverCover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action Action
		pnl    string
	}{
		{Buy, "1000"},
		{Sell, "-1000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.action.String(), func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			entry := deal(tt.action, 100, "100.0")
			cover := deal(tt.action.Opposite(), 120, "110.0")
			pnls := record(t, e, entry, cover)

			lots := e.OpenLots()
			require.Len(t, lots, 1)
			assert.Equal(t, cover.ID, lots[0].ID)
			assert.Equal(t, int64(20), lots[0].Remaining)

			pos, ok := e.Position()
			require.True(t, ok)
			assert.Equal(t, int64(20), pos.Quantity)
			assertDecimal(t, "110", pos.Price)
			assert.Equal(t, tt.action.Opposite(), pos.Action)

			require.Len(t, pnls, 1)
			assert.Equal(t, int64(100), pnls[0].Quantity)
			assertDecimal(t, tt.pnl, pnls[0].PnL)
		})
	}
}

func TestRecordDealMultiLotSweep(t *testing.T) {
	t.Parallel()

	e := NewEngine("AAPL")
	first := deal(Buy, 40, "100.0")
	second := deal(Buy, 60, "100.0")
	cover := deal(Sell, 120, "110.0")
	pnls := record(t, e, first, second, cover)

	require.Len(t, pnls, 2)
	assert.Equal(t, first.ID, pnls[0].Entry.ID)
	assert.Equal(t, int64(40), pnls[0].Quantity)
	assertDecimal(t, "400", pnls[0].PnL)
	assert.Equal(t, second.ID, pnls[1].Entry.ID)
	assert.Equal(t, int64(60), pnls[1].Quantity)
	assertDecimal(t, "600", pnls[1].PnL)

	// The cover copy tracks how much of the sweep was left at each step.
	assert.Equal(t, int64(120), pnls[0].Cover.Remaining)
	assert.Equal(t, int64(80), pnls[1].Cover.Remaining)

	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.Quantity)
	assertDecimal(t, "110", pos.Price)
	assert.Equal(t, Sell, pos.Action)
}

func TestRecordDealCoverKeepsWeightedCost(t *testing.T) {
	t.Parallel()

	e := NewEngine("AAPL")
	record(t, e,
		deal(Buy, 100, "100"),
		deal(Buy, 100, "110"),
		deal(Buy, 100, "120"),
	)
	pos, _ := e.Position()
	assertDecimal(t, "110", pos.Price)

	pnls := record(t, e, deal(Sell, 150, "130"))
	require.Len(t, pnls, 2)
	assertDecimal(t, "3000", pnls[0].PnL)
	assertDecimal(t, "1000", pnls[1].PnL)

	// 50@110 and 100@120 remain.
	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, int64(150), pos.Quantity)
	assert.True(t, pos.Price.Sub(decimal.RequireFromString("116.6666666666666667")).Abs().LessThan(decimal.New(1, -12)),
		"got %s", pos.Price)
}

func TestRecordDealExactExhaustDeletesPosition(t *testing.T) {
	t.Parallel()

	e := NewEngine("AAPL")
	pnls := record(t, e,
		deal(Sell, 30, "50"),
		deal(Sell, 70, "40"),
		deal(Buy, 100, "45"),
	)

	require.Len(t, pnls, 2)
	assertDecimal(t, "150", pnls[0].PnL)
	assertDecimal(t, "-350", pnls[1].PnL)
	_, ok := e.Position()
	assert.False(t, ok)
	assert.Empty(t, e.OpenLots())
	assertDecimal(t, "-200", e.Realized())

	// A new deal after a flat book opens a fresh position.
	record(t, e, deal(Buy, 5, "10"))
	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, Buy, pos.Action)
	assert.Equal(t, int64(5), pos.Quantity)
}

func TestRecordDealRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(d *Deal)
	}{
		{"zero quantity", func(d *Deal) { d.Quantity, d.Remaining = 0, 0 }},
		{"negative quantity", func(d *Deal) { d.Quantity, d.Remaining = -5, -5 }},
		{"partly consumed", func(d *Deal) { d.Remaining = 10 }},
		{"negative price", func(d *Deal) { d.Price = decimal.NewFromInt(-1) }},
		{"bad action", func(d *Deal) { d.Action = "X" }},
		{"wrong code", func(d *Deal) { d.Code = "MSFT" }},
		{"empty code", func(d *Deal) { d.Code = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEngine("AAPL")
			record(t, e, deal(Buy, 100, "100"))
			before := e.OpenLots()
			beforePos, _ := e.Position()

			bad := deal(Sell, 50, "110")
			tt.mutate(bad)
			pnls, err := e.RecordDeal(bad)

			require.ErrorIs(t, err, ErrInvalidDeal)
			assert.Nil(t, pnls)
			assert.Equal(t, before, e.OpenLots())
			afterPos, _ := e.Position()
			assert.Equal(t, beforePos, afterPos)
			assert.Empty(t, e.PnLs())
		})
	}
}

func TestReadAccessorsAreIdempotent(t *testing.T) {
	t.Parallel()

	e := NewEngine("AAPL")
	record(t, e, deal(Buy, 100, "100"), deal(Sell, 30, "105"))

	lots1, lots2 := e.OpenLots(), e.OpenLots()
	assert.Equal(t, lots1, lots2)
	pnl1, pnl2 := e.PnLs(), e.PnLs()
	assert.Equal(t, pnl1, pnl2)

	// Mutating a returned copy must not reach the engine.
	lots1[0].Remaining = 1
	pnl1[0].Quantity = 999
	assert.Equal(t, lots2, e.OpenLots())
	assert.Equal(t, pnl2, e.PnLs())
}

func TestRecordDealRandomStreamConservesQuantity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	e := NewEngine("AAPL")

	var bought, sold, matched int64
	for i := 0; i < 2000; i++ {
		action := Buy
		if rng.Intn(2) == 0 {
			action = Sell
		}
		qty := int64(rng.Intn(200) + 1)
		price := decimal.NewFromInt(int64(rng.Intn(50) + 75))

		pnls := record(t, e, NewDeal("AAPL", action, qty, price, t0.Add(time.Duration(i)*time.Second)))
		for _, p := range pnls {
			assert.Greater(t, p.Quantity, int64(0))
			matched += p.Quantity
		}
		if action == Buy {
			bought += qty
		} else {
			sold += qty
		}

		var openBuy, openSell int64
		if pos, ok := e.Position(); ok {
			if pos.Action == Buy {
				openBuy = pos.Quantity
			} else {
				openSell = pos.Quantity
			}
		}
		require.Equal(t, bought, matched+openBuy)
		require.Equal(t, sold, matched+openSell)
	}
}

func TestRecordDealRejectsDuplicates(t *testing.T) {
	t.Parallel()

	t.Run("same deal twice", func(t *testing.T) {
		t.Parallel()

		e := NewEngine("AAPL")
		d := deal(Buy, 100, "100")
		record(t, e, d)

		pnls, err := e.RecordDeal(d)
		require.ErrorIs(t, err, ErrInvalidDeal)
		assert.Nil(t, pnls)
		require.Len(t, e.OpenLots(), 1)

		// 100 bought, 150 sold: short 50 with one full match.
		pnls = record(t, e, deal(Sell, 150, "110"))
		require.Len(t, pnls, 1)
		assert.Equal(t, int64(100), pnls[0].Quantity)
		assertDecimal(t, "1000", pnls[0].PnL)
		pos, ok := e.Position()
		require.True(t, ok)
		assert.Equal(t, Sell, pos.Action)
		assert.Equal(t, int64(50), pos.Quantity)
		checkInvariants(t, e)
	})

	t.Run("copy with the same id", func(t *testing.T) {
		t.Parallel()

		e := NewEngine("AAPL")
		d := deal(Buy, 100, "100")
		record(t, e, d)

		dup := *d
		_, err := e.RecordDeal(&dup)
		require.ErrorIs(t, err, ErrInvalidDeal)
		assert.Len(t, e.OpenLots(), 1)
		pos, _ := e.Position()
		assert.Equal(t, int64(100), pos.Quantity)
	})

	t.Run("consumed deal id", func(t *testing.T) {
		t.Parallel()

		e := NewEngine("AAPL")
		entry := deal(Buy, 10, "100")
		cover := deal(Sell, 10, "101")
		record(t, e, entry, cover)

		again := deal(Sell, 10, "101")
		again.ID = cover.ID
		_, err := e.RecordDeal(again)
		require.ErrorIs(t, err, ErrInvalidDeal)
		_, ok := e.Position()
		assert.False(t, ok)
		assert.Len(t, e.PnLs(), 1)
	})
}

func TestNewDealIDFollowsTradeTime(t *testing.T) {
	t.Parallel()

	late := NewDeal("AAPL", Buy, 1, mustDec("1"), t0.Add(time.Hour))
	early := NewDeal("AAPL", Buy, 1, mustDec("1"), t0)
	assert.Less(t, early.ID, late.ID)
}
