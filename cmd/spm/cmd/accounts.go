package cmd

import (
	"fmt"

	"github.com/rustyeddy/positions/ledger"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List or add accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an empty ledger for an account",
	Args:  cobra.NoArgs,
	RunE:  runAccountsAdd,
}

var (
	accountAddID   string
	accountAddName string
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)

	accountsAddCmd.Flags().StringVar(&accountAddID, "id", "", "account id (required)")
	accountsAddCmd.Flags().StringVar(&accountAddName, "name", "", "display name")
	accountsAddCmd.MarkFlagRequired("id")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "| Account | Name | Open positions | Instruments |")
	fmt.Fprintln(out, "|---------+------+----------------+-------------|")
	for _, acct := range a.reg.Accounts() {
		l, err := a.reg.Get(acct.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "| %s | %s | %d | %d |\n", acct.ID, acct.Name, len(l.Positions()), len(l.Codes()))
	}
	return nil
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.reg.Get(accountAddID); err == nil {
		return fmt.Errorf("account %q already exists", accountAddID)
	}
	if _, err := a.reg.Open(ledger.Account{ID: accountAddID, Name: accountAddName}); err != nil {
		return err
	}
	if err := a.reg.Save(cmd.Context(), accountAddID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added account %s\n", accountAddID)
	return nil
}
