package posting

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

type PaymentSubtype string

const (
	PaySupplier        PaymentSubtype = "supplier"
	PayPurchaseInvoice PaymentSubtype = "purchase_invoice"
	PayExpense         PaymentSubtype = "expense"
	PaySalary          PaymentSubtype = "salary"
	PaySaleReturn      PaymentSubtype = "sale_return"
	PayOther           PaymentSubtype = "other"
)

var paymentSubtypes = []PaymentSubtype{PaySupplier, PayPurchaseInvoice, PayExpense, PaySalary, PaySaleReturn, PayOther}

type PaymentStatus string

const (
	PaymentDraft     PaymentStatus = "draft"
	PaymentPending   PaymentStatus = "pending"
	PaymentApproved  PaymentStatus = "approved"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

var paymentFlow = flow[PaymentStatus]{
	entity:     "payment",
	steps:      []PaymentStatus{PaymentDraft, PaymentPending, PaymentApproved, PaymentPaid},
	terminal:   PaymentCancelled,
	cancelFrom: []PaymentStatus{PaymentDraft, PaymentPending, PaymentApproved},
}

// Payment is money going out. BankAccount is the GL account behind the
// paying bank account record; Document is the purchase invoice it settles.
type Payment struct {
	ID             string
	Number         string
	Date           time.Time
	Subtype        PaymentSubtype
	Partner        ledger.Partner
	Amount         decimal.Decimal
	Method         PaymentMethod
	BankAccount    string
	Document       string
	Description    string
	Status         PaymentStatus
	JournalEntryID string
}

func (pay *Payment) status() PaymentStatus {
	if pay.Status == "" {
		return PaymentDraft
	}
	return pay.Status
}

func (pay *Payment) Validate() error {
	if err := required("id", pay.ID); err != nil {
		return err
	}
	if !slices.Contains(paymentSubtypes, pay.Subtype) {
		return ledger.Invalid("subtype", nil, "unknown payment subtype %q", pay.Subtype)
	}
	if err := pay.Partner.Validate(); err != nil {
		return ledger.Invalid("partner", err, "%s", pay.Partner)
	}
	if err := partnerFor(string(pay.Subtype), pay.Partner, pay.partnerKind()); err != nil {
		return err
	}
	return positive("amount", pay.Amount)
}

// partnerKind is the partner a payment of this subtype must carry, or none
// when any partner is accepted.
func (pay *Payment) partnerKind() ledger.PartnerKind {
	switch pay.Subtype {
	case PaySupplier, PayPurchaseInvoice:
		return ledger.PartnerSupplier
	case PaySalary:
		return ledger.PartnerEmployee
	case PaySaleReturn:
		return ledger.PartnerCustomer
	}
	return ledger.PartnerNone
}

// settles names the document kind a payment of this subtype pays off.
func (pay *Payment) settles() (ledger.DocumentKind, bool) {
	switch pay.Subtype {
	case PaySupplier, PayPurchaseInvoice:
		return ledger.DocumentPurchase, pay.Document != ""
	}
	return "", false
}

// Draft debits the account the subtype pays down and credits the bank
// account's GL account, falling back to Cash or Bank by method.
func (pay *Payment) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := pay.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	switch pay.Subtype {
	case PaySupplier, PayPurchaseInvoice:
		ls.debit(r.need(ledger.ConceptPayable), pay.Amount, "", pay.Partner)
	case PayExpense:
		ls.debit(r.first(ledger.ConceptExpensePayable, ledger.ConceptPayable), pay.Amount, "", pay.Partner)
	case PaySalary:
		ls.debit(r.need(ledger.ConceptSalaryPayable), pay.Amount, "", pay.Partner)
	case PaySaleReturn:
		ls.debit(r.need(ledger.ConceptReceivable), pay.Amount, "", pay.Partner)
	default:
		ls.debit(r.need(ledger.ConceptExpenseDefault), pay.Amount, "", ledger.Partner{})
	}
	ls.credit(r.cashAccount(pay.Method, pay.BankAccount), pay.Amount, "", ledger.Partner{})
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        pay.Date,
		Description: describe(pay.Description, "Payment "+describe(pay.Number, pay.ID)),
		Reference:   pay.Number,
		Type:        ledger.EntryPayment,
		SourceType:  sourcePayment,
		SourceID:    pay.ID,
		Lines:       ls,
	}, nil
}

// CreatePayment books a new payment and settles its document.
func (p *Poster) CreatePayment(ctx context.Context, actor string, pay *Payment) (Result, error) {
	if pay.status() == PaymentCancelled {
		return Result{}, paymentFlow.invalid(pay.ID, "", PaymentCancelled)
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, pay.Draft)
		if err != nil || res.Entry == nil {
			return err
		}
		if kind, ok := pay.settles(); ok {
			return settle(ctx, tx, kind, pay.Document, pay.Partner, pay.Amount)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	pay.Status = pay.status()
	if res.Entry != nil {
		pay.JournalEntryID = res.Entry.ID
	}
	return res, nil
}

// SetPaymentStatus moves a payment one step along draft, pending, approved,
// paid. Moving to cancelled goes through CancelPayment.
func (p *Poster) SetPaymentStatus(ctx context.Context, actor string, pay *Payment, to PaymentStatus) (Result, error) {
	if to == PaymentCancelled {
		return p.CancelPayment(ctx, actor, pay, "")
	}
	if err := paymentFlow.advance(pay.ID, pay.status(), to); err != nil {
		return Result{}, err
	}
	p.log.Debug("payment status changed", zap.String("payment", pay.ID), zap.String("from", string(pay.status())), zap.String("to", string(to)))
	pay.Status = to
	return Result{}, nil
}

// CancelPayment reverses the payment entry and restores the settled
// document. Paid and cancelled payments cannot be cancelled.
func (p *Poster) CancelPayment(ctx context.Context, actor string, pay *Payment, reason string) (Result, error) {
	if err := paymentFlow.cancel(pay.ID, pay.status()); err != nil {
		return Result{}, err
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		rev, err := reverseSource(ctx, tx, actor, pay.JournalEntryID, sourcePayment, pay.ID, reason)
		if err != nil {
			return err
		}
		res = Result{Entry: rev}
		if kind, ok := pay.settles(); ok && rev != nil {
			return settle(ctx, tx, kind, pay.Document, pay.Partner, pay.Amount.Neg())
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	pay.Status = PaymentCancelled
	return res, nil
}
