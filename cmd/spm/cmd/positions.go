package cmd

import (
	"fmt"

	"github.com/rustyeddy/positions/journal"
	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions of an account",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

var lotsCmd = &cobra.Command{
	Use:   "lots <code>",
	Short: "Show the open lots behind a position, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runLots,
}

var viewAccount string

func init() {
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(lotsCmd)

	for _, c := range []*cobra.Command{positionsCmd, lotsCmd} {
		c.Flags().StringVarP(&viewAccount, "account", "a", "", "account id (default first configured account)")
	}
}

func runPositions(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	accountID := accountOrDefault(viewAccount)
	l, err := a.reg.Get(accountID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPositionsOrg(accountID, l.Positions()))
	return nil
}

func runLots(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	l, err := a.reg.Get(accountOrDefault(viewAccount))
	if err != nil {
		return err
	}
	lots, err := l.OpenLots(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatLotsOrg(args[0], lots))
	return nil
}
