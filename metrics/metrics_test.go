package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/positions/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDeal(t *testing.T) {
	buys := testutil.ToFloat64(DealsTotal.WithLabelValues("Buy"))
	records := testutil.ToFloat64(PnLRecords.WithLabelValues("metrics-test"))

	ObserveDeal("metrics-test", ledger.Buy, nil, time.Microsecond)
	ObserveDeal("metrics-test", ledger.Buy, []ledger.PnL{
		{Quantity: 10, PnL: decimal.RequireFromString("12.5")},
		{Quantity: 5, PnL: decimal.RequireFromString("-2.5")},
	}, time.Microsecond)

	assert.Equal(t, buys+2, testutil.ToFloat64(DealsTotal.WithLabelValues("Buy")))
	assert.Equal(t, records+2, testutil.ToFloat64(PnLRecords.WithLabelValues("metrics-test")))
	assert.InDelta(t, 10.0, testutil.ToFloat64(RealizedPnL.WithLabelValues("metrics-test")), 1e-9)
}

func TestSetOpenPositions(t *testing.T) {
	SetOpenPositions("metrics-open", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(OpenPositions.WithLabelValues("metrics-open")))
	SetOpenPositions("metrics-open", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(OpenPositions.WithLabelValues("metrics-open")))
}

func TestWriteTextfile(t *testing.T) {
	ObserveDeal("metrics-file", ledger.Sell, nil, time.Microsecond)

	path := filepath.Join(t.TempDir(), "spm.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spm_deals_total")
	assert.Contains(t, string(data), `action="Sell"`)
}
