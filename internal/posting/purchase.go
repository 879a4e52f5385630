package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

// PurchaseInvoice is a received supplier invoice, bought on credit. Stock
// purchases debit Inventory, everything else Purchase Expense.
type PurchaseInvoice struct {
	Number      string
	Date        time.Time
	Supplier    string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Stock       bool
	Description string
}

func (inv PurchaseInvoice) Total() decimal.Decimal { return inv.Subtotal.Add(inv.Tax) }

func (inv PurchaseInvoice) Validate() error {
	if err := required("number", inv.Number); err != nil {
		return err
	}
	if err := required("supplier", inv.Supplier); err != nil {
		return err
	}
	if err := positive("subtotal", inv.Subtotal); err != nil {
		return err
	}
	return nonNegative("tax", inv.Tax)
}

func (inv PurchaseInvoice) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := inv.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	if inv.Stock {
		ls.debit(r.need(ledger.ConceptInventory), inv.Subtotal, "", ledger.Partner{})
	} else {
		ls.debit(r.need(ledger.ConceptPurchaseExpense), inv.Subtotal, "", ledger.Partner{})
	}
	if inv.Tax.IsPositive() {
		ls.debit(r.first(ledger.ConceptPurchaseTax, ledger.ConceptTaxPayable), inv.Tax, "input tax", ledger.Partner{})
	}
	ls.credit(r.need(ledger.ConceptPayable), inv.Total(), "", ledger.Supplier(inv.Supplier))
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        inv.Date,
		Description: describe(inv.Description, "Purchase invoice "+inv.Number),
		Reference:   inv.Number,
		Type:        ledger.EntryPurchaseInvoice,
		SourceType:  sourcePurchaseInvoice,
		SourceID:    inv.Number,
		Lines:       ls,
	}, nil
}

// PurchaseInvoice posts the invoice and registers it as an open item owed to
// the supplier.
func (p *Poster) PurchaseInvoice(ctx context.Context, actor string, inv PurchaseInvoice) (Result, error) {
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, inv.Draft)
		if err != nil {
			return err
		}
		doc := &ledger.Document{
			Kind:    ledger.DocumentPurchase,
			Number:  inv.Number,
			Partner: ledger.Supplier(inv.Supplier),
			Date:    inv.Date,
			Total:   inv.Total(),
		}
		if res.Entry != nil {
			doc.EntryID = res.Entry.ID
		}
		return tx.Store().InsertDocument(ctx, doc)
	})
	return res, err
}

// PurchaseReturn sends goods back to a supplier against an optional invoice.
type PurchaseReturn struct {
	Number      string
	Invoice     string
	Date        time.Time
	Supplier    string
	Amount      decimal.Decimal
	Description string
}

func (ret PurchaseReturn) Validate() error {
	if err := required("number", ret.Number); err != nil {
		return err
	}
	if err := required("supplier", ret.Supplier); err != nil {
		return err
	}
	return positive("amount", ret.Amount)
}

func (ret PurchaseReturn) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := ret.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	ls.debit(r.need(ledger.ConceptPayable), ret.Amount, "", ledger.Supplier(ret.Supplier))
	ls.credit(r.need(ledger.ConceptPurchaseReturns), ret.Amount, "", ledger.Partner{})
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        ret.Date,
		Description: describe(ret.Description, "Purchase return "+ret.Number),
		Reference:   ret.Invoice,
		Type:        ledger.EntryPurchaseReturn,
		SourceType:  sourcePurchaseReturn,
		SourceID:    ret.Number,
		Lines:       ls,
	}, nil
}

func (p *Poster) PurchaseReturn(ctx context.Context, actor string, ret PurchaseReturn) (Result, error) {
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, ret.Draft)
		if err != nil || res.Entry == nil {
			return err
		}
		return settle(ctx, tx, ledger.DocumentPurchase, ret.Invoice, ledger.Supplier(ret.Supplier), ret.Amount)
	})
	return res, err
}
