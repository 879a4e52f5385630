package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/posting"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post business documents through the posting rules",
}

var (
	postNumber      string
	postDate        string
	postPartner     string
	postSubtotal    string
	postTax         string
	postPaid        string
	postMethod      string
	postDescription string
	postStock       bool
	postInsurance   string
)

func amountFlag(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := ledger.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func printResult(res posting.Result) {
	if res.Skipped {
		fmt.Printf("No entry posted: concept %q is not mapped to an account.\n", res.Missing)
		return
	}
	fmt.Printf("Entry posted: %s\n", res.Entry.Number)
	printEntry(res.Entry)
}

var postSaleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Post a sales invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateOr(postDate)
		if err != nil {
			return err
		}
		inv := posting.SalesInvoice{
			Number:      postNumber,
			Date:        date,
			Customer:    postPartner,
			Method:      posting.PaymentMethod(postMethod),
			Description: postDescription,
		}
		if inv.Subtotal, err = amountFlag("subtotal", postSubtotal); err != nil {
			return err
		}
		if inv.Tax, err = amountFlag("tax", postTax); err != nil {
			return err
		}
		if inv.Paid, err = amountFlag("paid", postPaid); err != nil {
			return err
		}

		res, err := app.poster.SalesInvoice(context.Background(), flagActor, inv)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var postPurchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Post a purchase invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateOr(postDate)
		if err != nil {
			return err
		}
		inv := posting.PurchaseInvoice{
			Number:      postNumber,
			Date:        date,
			Supplier:    postPartner,
			Stock:       postStock,
			Description: postDescription,
		}
		if inv.Subtotal, err = amountFlag("subtotal", postSubtotal); err != nil {
			return err
		}
		if inv.Tax, err = amountFlag("tax", postTax); err != nil {
			return err
		}

		res, err := app.poster.PurchaseInvoice(context.Background(), flagActor, inv)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var postPayrollCmd = &cobra.Command{
	Use:   "payroll",
	Short: "Post a payroll run for one employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateOr(postDate)
		if err != nil {
			return err
		}
		run := posting.Payroll{
			ID:          postNumber,
			Date:        date,
			Employee:    postPartner,
			Description: postDescription,
		}
		if run.Gross, err = amountFlag("subtotal", postSubtotal); err != nil {
			return err
		}
		if run.Tax, err = amountFlag("tax", postTax); err != nil {
			return err
		}
		if run.Insurance, err = amountFlag("insurance", postInsurance); err != nil {
			return err
		}

		res, err := app.poster.Payroll(context.Background(), flagActor, run)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{postSaleCmd, postPurchaseCmd, postPayrollCmd} {
		c.Flags().StringVar(&postNumber, "number", "", "Document number")
		c.Flags().StringVar(&postDate, "date", "", "Document date YYYY-MM-DD (default today)")
		c.Flags().StringVar(&postSubtotal, "subtotal", "", "Amount before tax (gross pay for payroll)")
		c.Flags().StringVar(&postTax, "tax", "", "Tax amount")
		c.Flags().StringVar(&postDescription, "description", "", "Entry description")
		c.MarkFlagRequired("number")
		c.MarkFlagRequired("subtotal")
	}
	postSaleCmd.Flags().StringVar(&postPartner, "customer", "", "Customer id (required for credit sales)")
	postSaleCmd.Flags().StringVar(&postPaid, "paid", "", "Amount settled at sale")
	postSaleCmd.Flags().StringVar(&postMethod, "method", string(posting.MethodCash), "Payment method for the settled part")

	postPurchaseCmd.Flags().StringVar(&postPartner, "supplier", "", "Supplier id")
	postPurchaseCmd.Flags().BoolVar(&postStock, "stock", false, "Debit inventory instead of purchase expense")
	postPurchaseCmd.MarkFlagRequired("supplier")

	postPayrollCmd.Flags().StringVar(&postPartner, "employee", "", "Employee id")
	postPayrollCmd.Flags().StringVar(&postInsurance, "insurance", "", "Social insurance withheld")
	postPayrollCmd.MarkFlagRequired("employee")

	postCmd.AddCommand(postSaleCmd)
	postCmd.AddCommand(postPurchaseCmd)
	postCmd.AddCommand(postPayrollCmd)

	rootCmd.AddCommand(postCmd)
}
