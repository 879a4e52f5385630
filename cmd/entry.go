package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/store"
)

var entryCmd = &cobra.Command{
	Use:     "entry",
	Aliases: []string{"je"},
	Short:   "Manage journal entries",
}

// resolveEntry accepts either an entry number or an entry id.
func resolveEntry(ctx context.Context, ref string) (*ledger.JournalEntry, error) {
	e, err := app.journal.GetByNumber(ctx, ref)
	if ledger.IsNotFound(err) {
		return app.journal.Get(ctx, ref)
	}
	return e, err
}

// parseLine reads "account_code:debit:credit[:kind:id]". An empty amount
// means zero.
func parseLine(ctx context.Context, s string) (ledger.Line, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return ledger.Line{}, fmt.Errorf("invalid line %q, expected account_code:debit:credit[:partner_kind:partner_id]", s)
	}
	acct, err := resolveAccount(ctx, parts[0])
	if err != nil {
		return ledger.Line{}, fmt.Errorf("line %q: %w", s, err)
	}
	amount := func(v string) (decimal.Decimal, error) {
		if v == "" {
			return decimal.Zero, nil
		}
		return ledger.ParseAmount(v)
	}
	debit, err := amount(parts[1])
	if err != nil {
		return ledger.Line{}, fmt.Errorf("line %q: %w", s, err)
	}
	credit, err := amount(parts[2])
	if err != nil {
		return ledger.Line{}, fmt.Errorf("line %q: %w", s, err)
	}
	l := ledger.Line{AccountID: acct.ID, Debit: debit, Credit: credit}
	if len(parts) == 4 {
		if l.Partner, err = ledger.ParsePartner(parts[3]); err != nil {
			return ledger.Line{}, fmt.Errorf("line %q: %w", s, err)
		}
	}
	return l, nil
}

func printEntry(e *ledger.JournalEntry) {
	ctx := context.Background()

	fmt.Printf("Number:      %s\n", e.Number)
	fmt.Printf("ID:          %s\n", e.ID)
	fmt.Printf("Date:        %s\n", e.Date.Format(dateLayout))
	fmt.Printf("Type:        %s\n", e.Type)
	fmt.Printf("Status:      %s\n", e.Status)
	fmt.Printf("Description: %s\n", e.Description)
	if e.Reference != "" {
		fmt.Printf("Reference:   %s\n", e.Reference)
	}
	if e.SourceType != "" {
		fmt.Printf("Source:      %s %s\n", e.SourceType, e.SourceID)
	}
	fmt.Printf("Created by:  %s\n", e.CreatedBy)
	if e.PostedAt != nil {
		fmt.Printf("Posted:      %s by %s\n", e.PostedAt.Format("2006-01-02 15:04:05"), e.PostedBy)
	}
	if e.ReversalOf != "" {
		fmt.Printf("Reverses:    %s\n", e.ReversalOf)
	}
	if e.ReversedBy != "" {
		fmt.Printf("Reversed by: %s\n", e.ReversedBy)
	}
	fmt.Printf("Lines:\n")
	fmt.Printf("  %-8s %-28s %15s %15s %s\n", "ACCOUNT", "NAME", "DEBIT", "CREDIT", "PARTNER")
	for _, l := range e.Lines {
		code, name := l.AccountID, ""
		if acct, err := app.accounts.Get(ctx, l.AccountID); err == nil {
			code, name = acct.Code, acct.Name
		}
		partner := ""
		if !l.Partner.IsZero() {
			partner = l.Partner.String()
		}
		fmt.Printf("  %-8s %-28s %15s %15s %s\n", code, truncate(name, 28), column(l.Debit), column(l.Credit), partner)
	}
	fmt.Printf("  %-37s %15s %15s\n", "TOTALS", money(e.TotalDebit), money(e.TotalCredit))
}

// entry create
var (
	entryCreateDate        string
	entryCreateDescription string
	entryCreateReference   string
	entryCreateType        string
	entryCreateDraft       bool
	entryCreateLines       []string
)

var entryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a journal entry",
	Long: `Create a double-entry journal entry.
Each --line is formatted as "account_code:debit:credit[:partner_kind:partner_id]"
(e.g. "1100:250.00:" and "4000::250.00:customer:c-17").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		date, err := dateOr(entryCreateDate)
		if err != nil {
			return err
		}
		t, err := ledger.ParseEntryType(entryCreateType)
		if err != nil {
			return err
		}
		draft := ledger.EntryDraft{
			Date:        date,
			Description: entryCreateDescription,
			Reference:   entryCreateReference,
			Type:        t,
			Status:      ledger.StatusPosted,
		}
		if entryCreateDraft {
			draft.Status = ledger.StatusDraft
		}
		for _, s := range entryCreateLines {
			l, err := parseLine(ctx, s)
			if err != nil {
				return err
			}
			draft.Lines = append(draft.Lines, l)
		}

		e, err := app.journal.CreateEntry(ctx, flagActor, draft)
		if err != nil {
			return err
		}
		fmt.Printf("Entry created: %s (%s)\n", e.Number, e.Status)
		printEntry(e)
		return nil
	},
}

// entry list
var (
	entryListStatus  string
	entryListType    string
	entryListAccount string
	entryListFrom    string
	entryListTo      string
	entryListLimit   int
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		filter := store.EntryFilter{Status: ledger.EntryStatus(entryListStatus), Limit: entryListLimit}
		if entryListType != "" {
			t, err := ledger.ParseEntryType(entryListType)
			if err != nil {
				return err
			}
			filter.Type = t
		}
		if entryListAccount != "" {
			acct, err := resolveAccount(ctx, entryListAccount)
			if err != nil {
				return err
			}
			filter.AccountID = acct.ID
		}
		var err error
		if filter.Range.From, err = dateFlag(entryListFrom); err != nil {
			return err
		}
		if filter.Range.To, err = dateFlag(entryListTo); err != nil {
			return err
		}

		entries, err := app.journal.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries found.")
			return nil
		}

		fmt.Printf("%-18s %-10s %-16s %-9s %15s %s\n", "NUMBER", "DATE", "TYPE", "STATUS", "AMOUNT", "DESCRIPTION")
		fmt.Printf("%-18s %-10s %-16s %-9s %15s %s\n", "------", "----", "----", "------", "------", "-----------")
		for _, e := range entries {
			fmt.Printf("%-18s %-10s %-16s %-9s %15s %s\n",
				e.Number, e.Date.Format(dateLayout), e.Type, e.Status, money(e.TotalDebit), truncate(e.Description, 40))
		}
		return nil
	},
}

// entry get
var entryGetCmd = &cobra.Command{
	Use:   "get [number|id]",
	Short: "Get journal entry details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := resolveEntry(context.Background(), args[0])
		if err != nil {
			return err
		}
		printEntry(e)
		return nil
	},
}

// entry post
var entryPostCmd = &cobra.Command{
	Use:   "post [number|id]",
	Short: "Post a draft entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := resolveEntry(ctx, args[0])
		if err != nil {
			return err
		}
		posted, err := app.journal.Post(ctx, e.ID, flagActor)
		if err != nil {
			return err
		}
		fmt.Printf("Entry posted: %s\n", posted.Number)
		return nil
	},
}

// entry reverse
var (
	entryReverseDate   string
	entryReverseReason string
)

var entryReverseCmd = &cobra.Command{
	Use:   "reverse [number|id]",
	Short: "Reverse a posted entry with a mirror entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := resolveEntry(ctx, args[0])
		if err != nil {
			return err
		}
		opts := journal.ReverseOptions{Description: entryReverseReason}
		if opts.Date, err = dateFlag(entryReverseDate); err != nil {
			return err
		}
		rev, err := app.journal.Reverse(ctx, e.ID, flagActor, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Entry %s reversed by %s\n", e.Number, rev.Number)
		return nil
	},
}

func init() {
	entryCreateCmd.Flags().StringVar(&entryCreateDate, "date", "", "Entry date YYYY-MM-DD (default today)")
	entryCreateCmd.Flags().StringVar(&entryCreateDescription, "description", "", "Entry description")
	entryCreateCmd.Flags().StringVar(&entryCreateReference, "reference", "", "External reference")
	entryCreateCmd.Flags().StringVar(&entryCreateType, "type", string(ledger.EntryManual), "Entry type")
	entryCreateCmd.Flags().BoolVar(&entryCreateDraft, "draft", false, "Save as draft instead of posting")
	entryCreateCmd.Flags().StringArrayVar(&entryCreateLines, "line", nil, "Line in format account_code:debit:credit[:partner] (repeat)")
	entryCreateCmd.MarkFlagRequired("description")
	entryCreateCmd.MarkFlagRequired("line")

	entryListCmd.Flags().StringVar(&entryListStatus, "status", "", "Filter by status (draft, posted, reversed)")
	entryListCmd.Flags().StringVar(&entryListType, "type", "", "Filter by entry type")
	entryListCmd.Flags().StringVar(&entryListAccount, "account", "", "Filter by account code or id")
	entryListCmd.Flags().StringVar(&entryListFrom, "from", "", "Entries dated on or after (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&entryListTo, "to", "", "Entries dated on or before (YYYY-MM-DD)")
	entryListCmd.Flags().IntVar(&entryListLimit, "limit", 50, "Maximum entries to show")

	entryReverseCmd.Flags().StringVar(&entryReverseDate, "date", "", "Reversal date YYYY-MM-DD (default today)")
	entryReverseCmd.Flags().StringVar(&entryReverseReason, "reason", "", "Reversal description")

	entryCmd.AddCommand(entryCreateCmd)
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryGetCmd)
	entryCmd.AddCommand(entryPostCmd)
	entryCmd.AddCommand(entryReverseCmd)

	rootCmd.AddCommand(entryCmd)
}
