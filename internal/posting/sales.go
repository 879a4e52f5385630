package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

// SalesInvoice is a posted sale. Paid is the part settled at the counter;
// the rest is owed by Customer. Cost, when set, books the cost of goods
// sold out of inventory in the same entry.
type SalesInvoice struct {
	Number      string
	Date        time.Time
	Customer    string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Paid        decimal.Decimal
	Method      PaymentMethod
	BankAccount string
	Cost        decimal.Decimal
	Description string
}

func (inv SalesInvoice) Total() decimal.Decimal { return inv.Subtotal.Add(inv.Tax) }

// Settled is the part of the total paid on the spot.
func (inv SalesInvoice) Settled() decimal.Decimal { return decimal.Min(inv.Paid, inv.Total()) }

func (inv SalesInvoice) Validate() error {
	if err := required("number", inv.Number); err != nil {
		return err
	}
	if err := positive("subtotal", inv.Subtotal); err != nil {
		return err
	}
	if err := nonNegative("tax", inv.Tax); err != nil {
		return err
	}
	if err := nonNegative("paid", inv.Paid); err != nil {
		return err
	}
	if err := nonNegative("cost", inv.Cost); err != nil {
		return err
	}
	if inv.Customer == "" && inv.Settled().LessThan(inv.Total()) {
		return ledger.Invalid("customer", nil, "credit sales need a customer")
	}
	return nil
}

// Draft maps the invoice onto its entry: Dr Cash/Bank for the settled part,
// Dr Receivable for the rest, Cr Revenue and Cr Tax Payable.
func (inv SalesInvoice) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := inv.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	customer := ledger.Partner{}
	if inv.Customer != "" {
		customer = ledger.Customer(inv.Customer)
	}

	var ls lineSet
	settled := inv.Settled()
	if settled.IsPositive() {
		ls.debit(r.cashAccount(inv.Method, inv.BankAccount), settled, "", ledger.Partner{})
	}
	if rest := inv.Total().Sub(settled); rest.IsPositive() {
		ls.debit(r.need(ledger.ConceptReceivable), rest, "", customer)
	}
	ls.credit(r.need(ledger.ConceptSalesRevenue), inv.Subtotal, "", ledger.Partner{})
	if inv.Tax.IsPositive() {
		ls.credit(r.need(ledger.ConceptTaxPayable), inv.Tax, "", ledger.Partner{})
	}
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}

	if inv.Cost.IsPositive() {
		cogs, ok1 := r.optional(ledger.ConceptCostOfGoodsSold)
		stock, ok2 := r.optional(ledger.ConceptInventory)
		if ok1 && ok2 {
			ls.debit(cogs, inv.Cost, "cost of goods sold", ledger.Partner{})
			ls.credit(stock, inv.Cost, "cost of goods sold", ledger.Partner{})
		}
	}

	return ledger.EntryDraft{
		Date:        inv.Date,
		Description: describe(inv.Description, "Sales invoice "+inv.Number),
		Reference:   inv.Number,
		Type:        ledger.EntrySalesInvoice,
		SourceType:  sourceSalesInvoice,
		SourceID:    inv.Number,
		Lines:       ls,
	}, nil
}

// SalesInvoice posts the invoice and registers it as an open item of the
// customer.
func (p *Poster) SalesInvoice(ctx context.Context, actor string, inv SalesInvoice) (Result, error) {
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, inv.Draft)
		if err != nil || inv.Customer == "" {
			return err
		}
		doc := &ledger.Document{
			Kind:    ledger.DocumentSales,
			Number:  inv.Number,
			Partner: ledger.Customer(inv.Customer),
			Date:    inv.Date,
			Total:   inv.Total(),
			Paid:    inv.Settled(),
		}
		if res.Entry != nil {
			doc.EntryID = res.Entry.ID
		}
		return tx.Store().InsertDocument(ctx, doc)
	})
	return res, err
}

// SalesReturn is goods coming back from a customer. Refunded returns pay the
// customer out of Cash/Bank; otherwise the receivable is reduced and, when
// Invoice is set, so is that invoice's outstanding amount.
type SalesReturn struct {
	Number      string
	Invoice     string
	Date        time.Time
	Customer    string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Refunded    bool
	Method      PaymentMethod
	BankAccount string
	Description string
}

func (ret SalesReturn) Total() decimal.Decimal { return ret.Subtotal.Add(ret.Tax) }

func (ret SalesReturn) Validate() error {
	if err := required("number", ret.Number); err != nil {
		return err
	}
	if err := positive("subtotal", ret.Subtotal); err != nil {
		return err
	}
	if err := nonNegative("tax", ret.Tax); err != nil {
		return err
	}
	if !ret.Refunded {
		return required("customer", ret.Customer)
	}
	return nil
}

func (ret SalesReturn) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := ret.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	ls.debit(r.need(ledger.ConceptSalesReturns), ret.Subtotal, "", ledger.Partner{})
	if ret.Tax.IsPositive() {
		ls.debit(r.need(ledger.ConceptTaxPayable), ret.Tax, "", ledger.Partner{})
	}
	if ret.Refunded {
		ls.credit(r.cashAccount(ret.Method, ret.BankAccount), ret.Total(), "refund", ledger.Partner{})
	} else {
		ls.credit(r.need(ledger.ConceptReceivable), ret.Total(), "", ledger.Customer(ret.Customer))
	}
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        ret.Date,
		Description: describe(ret.Description, "Sales return "+ret.Number),
		Reference:   ret.Invoice,
		Type:        ledger.EntrySalesReturn,
		SourceType:  sourceSalesReturn,
		SourceID:    ret.Number,
		Lines:       ls,
	}, nil
}

func (p *Poster) SalesReturn(ctx context.Context, actor string, ret SalesReturn) (Result, error) {
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, ret.Draft)
		if err != nil || res.Entry == nil || ret.Refunded {
			return err
		}
		return settle(ctx, tx, ledger.DocumentSales, ret.Invoice, ledger.Customer(ret.Customer), ret.Total())
	})
	return res, err
}

func describe(desc, fallback string) string {
	if desc != "" {
		return desc
	}
	return fallback
}
