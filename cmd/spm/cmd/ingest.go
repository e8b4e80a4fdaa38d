package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/positions/journal"
	"github.com/rustyeddy/positions/ledger"
	"github.com/rustyeddy/positions/metrics"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Record deals from a CSV file",
	Long: `Read executed deals from CSV and match them into an account ledger.

Columns: code,action,quantity,price,time (header row optional).
Action is B or S. The file is applied all-or-nothing: if any deal is
rejected nothing is recorded, journaled or saved.

Examples:
  spm ingest --account 1 --file fills.csv
  cat fills.csv | spm ingest --file -`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var (
	ingestAccount string
	ingestFile    string
	ingestDryRun  bool
	ingestVerbose bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestAccount, "account", "a", "", "account id (default first configured account)")
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "deals CSV file, - for stdin (required)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "match against a scratch copy and report, without saving")
	ingestCmd.Flags().BoolVarP(&ingestVerbose, "verbose", "v", false, "print every realized PnL record")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	deals, err := readDeals(cmd, ingestFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	accountID := accountOrDefault(ingestAccount)
	l, err := a.reg.Get(accountID)
	if err != nil {
		return fmt.Errorf("%w (add it with 'spm accounts add --id %s')", err, accountID)
	}

	// Dry run every deal on a scratch copy first so a bad row leaves the
	// ledger, journal and store untouched.
	scratch, err := ledger.Restore(l.Snapshot())
	if err != nil {
		return err
	}
	for i, d := range deals {
		probe := *d
		if _, err := scratch.RecordDeal(d.Code, &probe); err != nil {
			return fmt.Errorf("deal %d (%s): %w", i+1, d.Code, err)
		}
	}

	out := cmd.OutOrStdout()
	if ingestDryRun {
		fmt.Fprintf(out, "✓ %d deal(s) would be accepted for account %s\n", len(deals), accountID)
		fmt.Fprint(out, journal.FormatPositionsOrg(accountID, scratch.Positions()))
		return nil
	}

	var records []journal.PnLRecord
	for _, d := range deals {
		pnls, err := a.reg.RecordDeal(accountID, d.Code, d)
		if err != nil {
			return err
		}
		for _, p := range pnls {
			records = append(records, journal.NewPnLRecord(accountID, p))
		}
	}

	if err := a.reg.Save(ctx, accountID); err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.PnL)
	}
	fmt.Fprintf(out, "✓ Recorded %d deal(s) for account %s: %d PnL record(s), realized %s\n",
		len(deals), accountID, len(records), total.StringFixed(2))
	if ingestVerbose && len(records) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, journal.FormatPnLsOrg(records))
	}
	return nil
}

func readDeals(cmd *cobra.Command, path string) ([]*ledger.Deal, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open deals: %w", err)
		}
		defer f.Close()
		r = f
	}

	deals, err := journal.ReadDealsCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return deals, nil
}
