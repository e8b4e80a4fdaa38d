package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/positions/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the deal and PnL journal",
	Long: `Query and display journal records from the SQLite journal.

Subcommands:
  deal     - Get details of a specific deal by ID
  today    - List PnL realized today
  day      - List PnL realized on a specific day
  account  - List every PnL record of an account

Examples:
  spm journal deal <deal-id>
  spm journal today
  spm journal day 2024-01-15`,
}

var journalDealCmd = &cobra.Command{
	Use:   "deal <deal-id>",
	Short: "Get details of a specific deal",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDeal,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List PnL realized today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List PnL realized on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalAccountCmd = &cobra.Command{
	Use:   "account <account-id>",
	Short: "List every PnL record of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalAccount,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalDealCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalAccountCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
}

func openJournal() (*journal.SQLiteJournal, error) {
	path := journalDBPath
	if path == "" {
		if cfg.Journal.Type != "sqlite" {
			return nil, fmt.Errorf("journal queries need a sqlite journal (configured: %q); pass --db", cfg.Journal.Type)
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalDeal(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetDeal(args[0])
	if err != nil {
		return fmt.Errorf("get deal: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "* Deal %s\n", rec.DealID)
	fmt.Fprintf(out, ":PROPERTIES:\n:ACCOUNT: %s\n:CODE: %s\n:SIDE: %s\n:QUANTITY: %d\n:PRICE: %s\n:TIME: %s\n:END:\n",
		rec.Account, rec.Code, rec.Action, rec.Quantity, rec.Price, rec.Time.UTC().Format(time.RFC3339))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := time.Local
	return listPnLForDay(cmd, loc, time.Now().In(loc).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listPnLForDay(cmd, time.Local, args[0])
}

func listPnLForDay(cmd *cobra.Command, loc *time.Location, day string) error {
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListPnLBetween(start, end)
	if err != nil {
		return fmt.Errorf("query pnl: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPnLsOrg(recs))
	return nil
}

func runJournalAccount(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListPnLByAccount(args[0])
	if err != nil {
		return fmt.Errorf("query pnl: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPnLsOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
