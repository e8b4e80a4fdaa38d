// Package metrics provides Prometheus instrumentation for the ledger.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rustyeddy/positions/ledger"
	"github.com/shopspring/decimal"
)

// Registry holds every collector below. It is separate from the default
// registry so the textfile output only carries ledger series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// DealsTotal counts accepted deals, partitioned by side.
	DealsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "spm_deals_total",
		Help: "Total number of deals recorded",
	}, []string{"action"})

	// DealsRejected counts deals refused by validation.
	DealsRejected = factory.NewCounter(prometheus.CounterOpts{
		Name: "spm_deals_rejected_total",
		Help: "Deals rejected before any state change",
	})

	// PnLRecords counts realized matches per account.
	PnLRecords = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "spm_pnl_records_total",
		Help: "Total realized PnL records produced",
	}, []string{"account"})

	// RealizedPnL tracks cumulative realized PnL per account. A gauge
	// because losses move it down.
	RealizedPnL = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spm_realized_pnl",
		Help: "Cumulative realized PnL in price units",
	}, []string{"account"})

	// OpenPositions tracks the number of open positions per account.
	OpenPositions = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spm_open_positions",
		Help: "Number of currently open positions",
	}, []string{"account"})

	// RecordDealSeconds is the latency of a single RecordDeal call.
	RecordDealSeconds = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "spm_record_deal_seconds",
		Help:    "RecordDeal latency in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
)

// ObserveDeal records one accepted deal and the PnL it produced.
func ObserveDeal(account string, action ledger.Action, pnls []ledger.PnL, took time.Duration) {
	DealsTotal.WithLabelValues(action.String()).Inc()
	RecordDealSeconds.Observe(took.Seconds())

	if len(pnls) == 0 {
		return
	}
	total := decimal.Zero
	for _, p := range pnls {
		total = total.Add(p.PnL)
	}
	PnLRecords.WithLabelValues(account).Add(float64(len(pnls)))
	RealizedPnL.WithLabelValues(account).Add(total.InexactFloat64())
}

// SetOpenPositions publishes the current open position count.
func SetOpenPositions(account string, n int) {
	OpenPositions.WithLabelValues(account).Set(float64(n))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
