package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/store"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the chart of accounts",
}

// resolveAccount accepts either an account code or an account id.
func resolveAccount(ctx context.Context, ref string) (*ledger.Account, error) {
	acct, err := app.accounts.GetByCode(ctx, ref)
	if ledger.IsNotFound(err) {
		return app.accounts.Get(ctx, ref)
	}
	return acct, err
}

// account create
var (
	acctCreateCode    string
	acctCreateName    string
	acctCreateType    string
	acctCreateSubtype string
	acctCreateParent  string
	acctCreateOpening string
)

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		opening := decimal.Zero
		if acctCreateOpening != "" {
			var err error
			if opening, err = ledger.ParseAmount(acctCreateOpening); err != nil {
				return err
			}
		}
		acct := &ledger.Account{
			Code:           acctCreateCode,
			Name:           acctCreateName,
			Type:           ledger.AccountType(acctCreateType),
			Subtype:        acctCreateSubtype,
			OpeningBalance: opening,
		}
		if acctCreateParent != "" {
			parent, err := resolveAccount(ctx, acctCreateParent)
			if err != nil {
				return fmt.Errorf("parent %q: %w", acctCreateParent, err)
			}
			acct.ParentID = parent.ID
		}

		if err := app.accounts.Create(ctx, acct); err != nil {
			return err
		}
		fmt.Printf("Account created: %s %s (%s) [%s]\n", acct.Code, acct.Name, acct.Type, acct.ID)
		return nil
	},
}

// account list
var (
	acctListType   string
	acctListActive bool
)

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.AccountFilter{ActiveOnly: acctListActive}
		if acctListType != "" {
			t, err := ledger.NormalizeType(ledger.AccountType(acctListType))
			if err != nil {
				return err
			}
			filter.Type = t
		}

		accts, err := app.accounts.List(context.Background(), filter)
		if err != nil {
			return err
		}
		if len(accts) == 0 {
			fmt.Println("No accounts found.")
			return nil
		}

		fmt.Printf("%-8s %-30s %-10s %-20s %15s %s\n", "CODE", "NAME", "TYPE", "SUBTYPE", "BALANCE", "FLAGS")
		fmt.Printf("%-8s %-30s %-10s %-20s %15s %s\n", "----", "----", "----", "-------", "-------", "-----")
		for _, a := range accts {
			flags := ""
			if a.IsSystem {
				flags += "system "
			}
			if !a.Active {
				flags += "inactive"
			}
			fmt.Printf("%-8s %-30s %-10s %-20s %15s %s\n",
				a.Code, truncate(a.Name, 30), a.Type, truncate(a.Subtype, 20), formatSigned(a.CurrentBalance), flags)
		}
		return nil
	},
}

// account get
var accountGetCmd = &cobra.Command{
	Use:   "get [code|id]",
	Short: "Get account details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		acct, err := resolveAccount(ctx, args[0])
		if err != nil {
			return err
		}
		full, err := app.accounts.FullCode(ctx, acct.ID)
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", acct.ID)
		fmt.Printf("Code:      %s\n", full)
		fmt.Printf("Name:      %s\n", acct.Name)
		fmt.Printf("Type:      %s\n", acct.Type)
		fmt.Printf("Subtype:   %s\n", acct.Subtype)
		fmt.Printf("Active:    %v\n", acct.Active)
		fmt.Printf("System:    %v\n", acct.IsSystem)
		fmt.Printf("Opening:   %s\n", formatSigned(acct.OpeningBalance))
		fmt.Printf("Balance:   %s\n", formatSigned(acct.CurrentBalance))
		fmt.Printf("Created:   %s\n", acct.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

// account balance
var (
	acctBalanceAsOf   string
	acctBalanceRollup bool
)

var accountBalanceCmd = &cobra.Command{
	Use:   "balance [code|id]",
	Short: "Compute an account balance from posted history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		asOf, err := optionalDate(acctBalanceAsOf)
		if err != nil {
			return err
		}
		acct, err := resolveAccount(ctx, args[0])
		if err != nil {
			return err
		}

		var bal decimal.Decimal
		if acctBalanceRollup {
			bal, err = app.accounts.RollupBalance(ctx, acct.ID, asOf)
		} else {
			bal, err = app.query.AccountBalance(ctx, acct.ID, asOf)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Account: %s %s\n", acct.Code, acct.Name)
		if asOf != nil {
			fmt.Printf("As of:   %s\n", asOf.Format(dateLayout))
		}
		fmt.Printf("Balance: %s\n", formatSigned(bal))
		return nil
	},
}

// account refresh
var accountRefreshCmd = &cobra.Command{
	Use:   "refresh [code|id]",
	Short: "Recompute cached current balances (all accounts when none is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if len(args) == 0 {
			n, err := app.accounts.RefreshAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Refreshed %d accounts.\n", n)
			return nil
		}

		acct, err := resolveAccount(ctx, args[0])
		if err != nil {
			return err
		}
		bal, err := app.accounts.RefreshCurrentBalance(ctx, acct.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Account %s balance: %s\n", acct.Code, formatSigned(bal))
		return nil
	},
}

func init() {
	accountCreateCmd.Flags().StringVar(&acctCreateCode, "code", "", "Account code (e.g. 1150)")
	accountCreateCmd.Flags().StringVar(&acctCreateName, "name", "", "Account name")
	accountCreateCmd.Flags().StringVar(&acctCreateType, "type", "", "asset, liability, equity, revenue or expense")
	accountCreateCmd.Flags().StringVar(&acctCreateSubtype, "subtype", "", "Account subtype (e.g. current_asset)")
	accountCreateCmd.Flags().StringVar(&acctCreateParent, "parent", "", "Parent account code or id")
	accountCreateCmd.Flags().StringVar(&acctCreateOpening, "opening", "", "Opening balance")
	accountCreateCmd.MarkFlagRequired("code")
	accountCreateCmd.MarkFlagRequired("name")
	accountCreateCmd.MarkFlagRequired("type")

	accountListCmd.Flags().StringVar(&acctListType, "type", "", "Filter by account type")
	accountListCmd.Flags().BoolVar(&acctListActive, "active", false, "Only active accounts")

	accountBalanceCmd.Flags().StringVar(&acctBalanceAsOf, "as-of", "", "Balance as of date (YYYY-MM-DD)")
	accountBalanceCmd.Flags().BoolVar(&acctBalanceRollup, "rollup", false, "Include descendant accounts")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountBalanceCmd)
	accountCmd.AddCommand(accountRefreshCmd)

	rootCmd.AddCommand(accountCmd)
}
