package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rustyeddy/positions/config"
	"github.com/rustyeddy/positions/internal/logging"
	"github.com/rustyeddy/positions/journal"
	"github.com/rustyeddy/positions/ledger"
	"github.com/rustyeddy/positions/registry"
	"github.com/rustyeddy/positions/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "spm",
	Short: "Per-account FIFO position and PnL ledger",
	Long: `spm keeps a FIFO position ledger per account and instrument.

It provides tools for:
  - Ingesting executed deals from CSV files
  - Showing open positions and the lots behind them
  - Reporting realized PnL per instrument
  - Querying the deal and PnL journal

Ledgers are persisted to SQLite or Postgres, optionally cached in Redis.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON, defaults built in)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with SPM_* overrides")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return err
	}

	logger, err = logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

// app is everything a command needs to work on ledgers.
type app struct {
	reg     *registry.Registry
	store   store.Store
	journal journal.Journal
}

// openApp opens the configured store and journal, loads every stored
// ledger and makes sure each configured account exists.
func openApp(ctx context.Context) (*app, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg := registry.New(st, registry.WithLogger(logger), registry.WithJournal(j))
	if err := reg.LoadAll(ctx); err != nil {
		st.Close()
		j.Close()
		return nil, err
	}
	for _, a := range cfg.Accounts {
		if _, err := reg.Get(a.ID); err == nil {
			continue
		}
		if _, err := reg.Open(ledger.Account{ID: a.ID, Name: a.Name}); err != nil {
			st.Close()
			j.Close()
			return nil, err
		}
	}
	return &app{reg: reg, store: st, journal: j}, nil
}

func (a *app) Close() error {
	jerr := a.journal.Close()
	serr := a.store.Close()
	_ = logger.Sync()
	return errors.Join(jerr, serr)
}

// defaultAccount is the first configured account, or "0".
func defaultAccount() string {
	if cfg != nil && len(cfg.Accounts) > 0 {
		return cfg.Accounts[0].ID
	}
	return "0"
}

func accountOrDefault(id string) string {
	if id == "" {
		return defaultAccount()
	}
	return id
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
