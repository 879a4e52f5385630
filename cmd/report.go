package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonvc/bookledger/internal/ledger"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Ledger reports",
}

var (
	reportAsOf string
	reportFrom string
	reportTo   string
)

var trialBalanceCmd = &cobra.Command{
	Use:   "trial",
	Short: "Show trial balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := optionalDate(reportAsOf)
		if err != nil {
			return err
		}
		tb, err := app.query.TrialBalance(context.Background(), asOf)
		if err != nil {
			return err
		}
		printTrialBalance(tb)
		return nil
	},
}

var partnerBalanceCmd = &cobra.Command{
	Use:   "partner [kind:id]",
	Short: "Show a customer, supplier or employee balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ledger.ParsePartner(args[0])
		if err != nil {
			return err
		}
		asOf, err := dateOr(reportAsOf)
		if err != nil {
			return err
		}
		sum, err := app.query.Summary(context.Background(), p, asOf)
		if err != nil {
			return err
		}

		fmt.Printf("Partner:     %s\n", p)
		fmt.Printf("As of:       %s\n", asOf.Format(dateLayout))
		fmt.Printf("Balance:     %s\n", formatSigned(sum.Balance))
		fmt.Printf("Open items:  %s (%d documents)\n", money(sum.Aging.Total), len(sum.Aging.Lines))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [kind:id]",
	Short: "Show the posted lines of a partner with a running balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ledger.ParsePartner(args[0])
		if err != nil {
			return err
		}
		var rng ledger.DateRange
		if rng.From, err = dateFlag(reportFrom); err != nil {
			return err
		}
		if rng.To, err = dateFlag(reportTo); err != nil {
			return err
		}

		fmt.Printf("%-10s %-18s %-30s %12s %12s %14s\n", "DATE", "ENTRY", "DESCRIPTION", "DEBIT", "CREDIT", "BALANCE")
		fmt.Printf("%-10s %-18s %-30s %12s %12s %14s\n", "----", "-----", "-----------", "-----", "------", "-------")
		n := 0
		for row, err := range app.query.TransactionHistory(context.Background(), p, rng) {
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-18s %-30s %12s %12s %14s\n",
				row.Date.Format(dateLayout), row.EntryNumber, truncate(row.Description, 30),
				column(row.Debit), column(row.Credit), formatSigned(row.RunningBalance))
			n++
		}
		if n == 0 {
			fmt.Println("No posted lines.")
		}
		return nil
	},
}

var agingCmd = &cobra.Command{
	Use:   "aging [kind:id]",
	Short: "Show outstanding documents of a partner by age",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ledger.ParsePartner(args[0])
		if err != nil {
			return err
		}
		asOf, err := dateOr(reportAsOf)
		if err != nil {
			return err
		}
		r, err := app.query.AgingReport(context.Background(), p, asOf)
		if err != nil {
			return err
		}
		printAging(r)
		return nil
	},
}

func printTrialBalance(tb *ledger.TrialBalance) {
	w := 74
	fmt.Println()
	fmt.Println(center("TRIAL BALANCE", w))
	fmt.Println(center(strings.Repeat("=", 20), w))
	if tb.AsOf != nil {
		fmt.Println(center("as of "+tb.AsOf.Format(dateLayout), w))
	}
	fmt.Println()

	fmt.Printf("  %-8s %-32s %15s %15s\n", "CODE", "NAME", "DEBIT", "CREDIT")
	fmt.Printf("  %-8s %-32s %15s %15s\n", "----", "----", "-----", "------")

	for _, l := range tb.Lines {
		fmt.Printf("  %-8s %-32s %15s %15s\n", l.Code, truncate(l.AccountName, 32), column(l.Debit), column(l.Credit))
	}

	fmt.Printf("  %s\n", strings.Repeat("─", w-2))
	fmt.Printf("  %-41s %15s %15s\n", "TOTALS", money(tb.TotalDebit), money(tb.TotalCredit))

	if tb.Balanced {
		fmt.Println("\n  [BALANCED]")
	} else {
		fmt.Println("\n  [UNBALANCED!]")
	}
}

var bucketOrder = []ledger.AgingBucket{ledger.BucketCurrent, ledger.Bucket31To60, ledger.Bucket61To90, ledger.BucketOver90}

func printAging(r ledger.AgingReport) {
	w := 70
	fmt.Println()
	fmt.Println(center("AGING "+r.Partner.String(), w))
	fmt.Println(center("as of "+r.AsOf.Format(dateLayout), w))
	fmt.Println()

	fmt.Printf("  %-16s %-10s %6s %-8s %12s %12s\n", "DOCUMENT", "DATE", "DAYS", "BUCKET", "TOTAL", "OUTSTANDING")
	fmt.Printf("  %-16s %-10s %6s %-8s %12s %12s\n", "--------", "----", "----", "------", "-----", "-----------")
	for _, l := range r.Lines {
		fmt.Printf("  %-16s %-10s %6d %-8s %12s %12s\n",
			truncate(l.Document.Number, 16), l.Document.Date.Format(dateLayout), l.DaysOld, l.Bucket,
			money(l.Document.Total), money(l.Outstanding))
	}
	fmt.Printf("  %s\n", strings.Repeat("─", w-2))
	for _, b := range bucketOrder {
		fmt.Printf("  %-56s %12s\n", string(b), money(r.Buckets[b]))
	}
	fmt.Printf("  %-56s %12s\n", "TOTAL", money(r.Total))
}

func init() {
	for _, c := range []*cobra.Command{trialBalanceCmd, partnerBalanceCmd, agingCmd} {
		c.Flags().StringVar(&reportAsOf, "as-of", "", "Report date (YYYY-MM-DD)")
	}
	historyCmd.Flags().StringVar(&reportFrom, "from", "", "Lines dated on or after (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&reportTo, "to", "", "Lines dated on or before (YYYY-MM-DD)")

	reportCmd.AddCommand(trialBalanceCmd)
	reportCmd.AddCommand(partnerBalanceCmd)
	reportCmd.AddCommand(historyCmd)
	reportCmd.AddCommand(agingCmd)

	rootCmd.AddCommand(reportCmd)
}
