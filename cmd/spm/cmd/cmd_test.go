package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config backed by SQLite files in a temp dir.
func setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "spm.yaml")
	yaml := fmt.Sprintf(`accounts:
  - id: "1"
    name: main
store:
  type: sqlite
  db_path: %s
journal:
  type: sqlite
  db_path: %s
log:
  level: error
`, filepath.Join(dir, "store.sqlite"), filepath.Join(dir, "journal.sqlite"))
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func writeDeals(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deals.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0644))
	return path
}

// run executes the CLI in-process. Flag variables are reset because cobra
// only assigns the flags that are passed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, envFile = "", filepath.Join(t.TempDir(), "none.env")
	ingestAccount, ingestFile, ingestDryRun, ingestVerbose = "", "", false, false
	viewAccount, pnlAccount, journalDBPath = "", "", ""
	accountAddID, accountAddName = "", ""
	configInitOutput, configInitForce, configValidatePath = "spm.yaml", false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env", envFile))
	err := rootCmd.Execute()
	return out.String(), err
}

const fills = `code,action,quantity,price,time
AAPL,B,100,10,2024-01-15T10:00:00Z
AAPL,S,40,12,2024-01-15T11:00:00Z
MSFT,S,5,300,2024-01-15T11:30:00Z
`

func TestIngestThenReport(t *testing.T) {
	conf := setup(t)

	out, err := run(t, "--config", conf, "ingest", "--file", writeDeals(t, fills))
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 3 deal(s) for account 1: 1 PnL record(s), realized 80.00")

	out, err = run(t, "--config", conf, "positions")
	require.NoError(t, err)
	assert.Contains(t, out, "| AAPL | Buy | 60 | 10.0000 |")
	assert.Contains(t, out, "| MSFT | Sell | 5 | 300.0000 |")

	out, err = run(t, "--config", conf, "lots", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "| Buy | 100 | 60 | 10 |")

	out, err = run(t, "--config", conf, "pnl")
	require.NoError(t, err)
	assert.Contains(t, out, "Total realized: 80.00 over 1 record(s)")

	out, err = run(t, "--config", conf, "journal", "account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, ":PNL: 80.00")

	// A second file keeps matching against the saved ledger.
	out, err = run(t, "--config", conf, "ingest", "--file", writeDeals(t, "AAPL,S,60,9,2024-01-16T10:00:00Z\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "realized -60.00")

	out, err = run(t, "--config", conf, "positions")
	require.NoError(t, err)
	assert.NotContains(t, out, "AAPL")
}

func TestIngestIsAllOrNothing(t *testing.T) {
	conf := setup(t)

	bad := fills + "AAPL,B,0,10,2024-01-15T12:00:00Z\n"
	_, err := run(t, "--config", conf, "ingest", "--file", writeDeals(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deal 4")

	out, err := run(t, "--config", conf, "positions")
	require.NoError(t, err)
	assert.NotContains(t, out, "AAPL")

	out, err = run(t, "--config", conf, "journal", "account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "over 0 record(s)")
}

func TestIngestDryRun(t *testing.T) {
	conf := setup(t)

	out, err := run(t, "--config", conf, "ingest", "--dry-run", "--file", writeDeals(t, fills))
	require.NoError(t, err)
	assert.Contains(t, out, "3 deal(s) would be accepted")
	assert.Contains(t, out, "| AAPL | Buy | 60 |")

	out, err = run(t, "--config", conf, "positions")
	require.NoError(t, err)
	assert.NotContains(t, out, "AAPL")
}

func TestIngestUnknownAccount(t *testing.T) {
	conf := setup(t)

	_, err := run(t, "--config", conf, "ingest", "--account", "ghost", "--file", writeDeals(t, fills))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accounts add --id ghost")
}

func TestAccountsAddAndList(t *testing.T) {
	conf := setup(t)

	_, err := run(t, "--config", conf, "accounts", "add", "--id", "ira", "--name", "retirement")
	require.NoError(t, err)
	_, err = run(t, "--config", conf, "accounts", "add", "--id", "ira")
	assert.Error(t, err)

	out, err := run(t, "--config", conf, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 | main | 0 | 0 |")
	assert.Contains(t, out, "| ira | retirement | 0 | 0 |")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spm.yaml")

	_, err := run(t, "config", "init", "--output", path)
	require.NoError(t, err)
	_, err = run(t, "config", "init", "--output", path)
	assert.Error(t, err)

	out, err := run(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Store: sqlite")
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	start, end, err := dayBounds(loc, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(loc, "03/10/2024")
	assert.Error(t, err)
}
