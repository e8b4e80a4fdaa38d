package cmd

import (
	"fmt"

	"github.com/rustyeddy/positions/journal"
	"github.com/spf13/cobra"
)

var pnlCmd = &cobra.Command{
	Use:   "pnl [code...]",
	Short: "Show realized PnL from the ledger",
	Long: `Print the realized PnL history of an account in Org format.

With no codes every instrument the account has traded is included.`,
	RunE: runPnL,
}

var pnlAccount string

func init() {
	rootCmd.AddCommand(pnlCmd)
	pnlCmd.Flags().StringVarP(&pnlAccount, "account", "a", "", "account id (default first configured account)")
}

func runPnL(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	accountID := accountOrDefault(pnlAccount)
	l, err := a.reg.Get(accountID)
	if err != nil {
		return err
	}

	codes := args
	if len(codes) == 0 {
		codes = l.Codes()
	}
	var recs []journal.PnLRecord
	for _, code := range codes {
		history, err := l.PnLHistory(code)
		if err != nil {
			return err
		}
		for _, p := range history {
			recs = append(recs, journal.NewPnLRecord(accountID, p))
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPnLsOrg(recs))
	return nil
}
