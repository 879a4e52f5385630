package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/accounts"
	"github.com/simonvc/bookledger/internal/config"
	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/logging"
	"github.com/simonvc/bookledger/internal/posting"
	"github.com/simonvc/bookledger/internal/query"
	"github.com/simonvc/bookledger/internal/store"
)

var (
	flagConfig   string
	flagDB       string
	flagActor    string
	flagLogLevel string
)

// app is what every subcommand works against once the root has opened the
// store.
var app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	accounts *accounts.Service
	journal  *journal.Service
	poster   *posting.Poster
	query    *query.Service
}

var rootCmd = &cobra.Command{
	Use:           "bookledger",
	Short:         "Double-entry general ledger for business documents",
	Long:          "A double-entry general ledger backed by SQLite. Sales, purchases, expenses, payroll, payments and receipts post balanced journal entries through a configurable chart of accounts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return openApp(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "operator", "Identity recorded on created and posted entries")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides log.level)")
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Path, err)
	}
	log.Debug("store opened", zap.String("path", cfg.Database.Path))

	app.cfg = cfg
	app.log = log
	app.store = st
	app.accounts = accounts.New(st, log)
	app.journal = journal.New(st, log, journal.WithNumbering(cfg.NumberingRules()))
	app.poster = posting.New(app.journal, log, posting.WithStrict(cfg.Posting.Strict))
	app.query = query.New(st, log)
	return nil
}

func closeApp() error {
	if app.log != nil {
		_ = app.log.Sync()
	}
	if app.store == nil {
		return nil
	}
	err := app.store.Close()
	app.store = nil
	return err
}
