package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/config"
)

var flagInitWriteConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database, provision the default chart and apply account mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		created, err := app.accounts.EnsureDefaultChart(ctx)
		if err != nil {
			return err
		}
		if err := app.accounts.ApplyMappings(ctx, app.cfg.Accounts); err != nil {
			return fmt.Errorf("apply account mappings: %w", err)
		}
		app.log.Info("ledger initialised",
			zap.String("db", app.cfg.Database.Path),
			zap.Int("accounts_created", created),
			zap.Int("mappings", len(app.cfg.Accounts)),
		)

		if flagInitWriteConfig {
			if err := config.Save(flagConfig, app.cfg); err != nil {
				return err
			}
			fmt.Printf("Config written: %s\n", flagConfig)
		}

		fmt.Printf("Database:  %s\n", app.cfg.Database.Path)
		fmt.Printf("Accounts:  %d created\n", created)
		fmt.Printf("Mappings:  %d applied from config\n", len(app.cfg.Accounts))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&flagInitWriteConfig, "write-config", false, "Write the effective config to --config")
	rootCmd.AddCommand(initCmd)
}
