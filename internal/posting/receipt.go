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

type ReceiptSubtype string

const (
	ReceiveCustomerPayment ReceiptSubtype = "customer_payment"
	ReceiveAdvance         ReceiptSubtype = "advance"
	ReceiveSupplierRefund  ReceiptSubtype = "supplier_refund"
	ReceiveInterest        ReceiptSubtype = "interest"
	ReceiveRental          ReceiptSubtype = "rental"
	ReceiveCommission      ReceiptSubtype = "commission"
	ReceiveAssetSale       ReceiptSubtype = "asset_sale"
	ReceiveBankTransfer    ReceiptSubtype = "bank_transfer"
	ReceiveCashDeposit     ReceiptSubtype = "cash_deposit"
	ReceiveMisc            ReceiptSubtype = "misc"
)

var receiptSubtypes = []ReceiptSubtype{
	ReceiveCustomerPayment, ReceiveAdvance, ReceiveSupplierRefund, ReceiveInterest, ReceiveRental,
	ReceiveCommission, ReceiveAssetSale, ReceiveBankTransfer, ReceiveCashDeposit, ReceiveMisc,
}

type ReceiptStatus string

const (
	ReceiptDraft     ReceiptStatus = "draft"
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptVerified  ReceiptStatus = "verified"
	ReceiptDeposited ReceiptStatus = "deposited"
	ReceiptCancelled ReceiptStatus = "cancelled"
)

var receiptFlow = flow[ReceiptStatus]{
	entity:     "receipt",
	steps:      []ReceiptStatus{ReceiptDraft, ReceiptPending, ReceiptVerified, ReceiptDeposited},
	terminal:   ReceiptCancelled,
	cancelFrom: []ReceiptStatus{ReceiptDraft, ReceiptPending, ReceiptVerified},
}

// Receipt is money coming in. BankAccount is the GL account of the receiving
// bank account record; Document is the sales invoice a customer payment
// settles.
type Receipt struct {
	ID             string
	Number         string
	Date           time.Time
	Subtype        ReceiptSubtype
	Partner        ledger.Partner
	Amount         decimal.Decimal
	Method         PaymentMethod
	BankAccount    string
	Document       string
	Description    string
	Status         ReceiptStatus
	JournalEntryID string
}

func (rc *Receipt) status() ReceiptStatus {
	if rc.Status == "" {
		return ReceiptDraft
	}
	return rc.Status
}

func (rc *Receipt) Validate() error {
	if err := required("id", rc.ID); err != nil {
		return err
	}
	if !slices.Contains(receiptSubtypes, rc.Subtype) {
		return ledger.Invalid("subtype", nil, "unknown receipt subtype %q", rc.Subtype)
	}
	if err := rc.Partner.Validate(); err != nil {
		return ledger.Invalid("partner", err, "%s", rc.Partner)
	}
	if err := partnerFor(string(rc.Subtype), rc.Partner, rc.partnerKind()); err != nil {
		return err
	}
	return positive("amount", rc.Amount)
}

func (rc *Receipt) partnerKind() ledger.PartnerKind {
	switch rc.Subtype {
	case ReceiveCustomerPayment:
		return ledger.PartnerCustomer
	case ReceiveSupplierRefund:
		return ledger.PartnerSupplier
	}
	return ledger.PartnerNone
}

// transfer reports whether the receipt moves money from Cash into the bank.
func (rc *Receipt) transfer() bool {
	return rc.Subtype == ReceiveBankTransfer || rc.Subtype == ReceiveCashDeposit
}

// Draft debits the receiving account and credits the account the subtype
// names. Cash received by hand lands in Cash, except for transfers out of
// Cash, which always land in the bank.
func (rc *Receipt) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := rc.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	switch {
	case rc.BankAccount != "":
		ls.debit(rc.BankAccount, rc.Amount, "", ledger.Partner{})
	case rc.Method == MethodCash && !rc.transfer():
		ls.debit(r.need(ledger.ConceptCash), rc.Amount, "", ledger.Partner{})
	default:
		ls.debit(r.need(ledger.ConceptBank), rc.Amount, "", ledger.Partner{})
	}

	switch rc.Subtype {
	case ReceiveCustomerPayment:
		ls.credit(r.need(ledger.ConceptReceivable), rc.Amount, "", rc.Partner)
	case ReceiveAdvance:
		ls.credit(r.need(ledger.ConceptCustomerAdvances), rc.Amount, "", ledger.Partner{})
	case ReceiveSupplierRefund:
		ls.credit(r.need(ledger.ConceptPayable), rc.Amount, "", rc.Partner)
	case ReceiveInterest:
		ls.credit(r.need(ledger.ConceptInterestIncome), rc.Amount, "", ledger.Partner{})
	case ReceiveRental:
		ls.credit(r.need(ledger.ConceptRentalIncome), rc.Amount, "", ledger.Partner{})
	case ReceiveCommission:
		ls.credit(r.need(ledger.ConceptCommissionIncome), rc.Amount, "", ledger.Partner{})
	case ReceiveAssetSale:
		ls.credit(r.need(ledger.ConceptAssetSaleGain), rc.Amount, "", ledger.Partner{})
	case ReceiveBankTransfer, ReceiveCashDeposit:
		ls.credit(r.need(ledger.ConceptCash), rc.Amount, "", ledger.Partner{})
	default:
		ls.credit(r.need(ledger.ConceptMiscIncome), rc.Amount, "", ledger.Partner{})
	}
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        rc.Date,
		Description: describe(rc.Description, "Receipt "+describe(rc.Number, rc.ID)),
		Reference:   rc.Number,
		Type:        ledger.EntryReceipt,
		SourceType:  sourceReceipt,
		SourceID:    rc.ID,
		Lines:       ls,
	}, nil
}

func (rc *Receipt) settles() bool {
	return rc.Subtype == ReceiveCustomerPayment && rc.Document != ""
}

// CreateReceipt books a new receipt and settles its sales invoice.
func (p *Poster) CreateReceipt(ctx context.Context, actor string, rc *Receipt) (Result, error) {
	if rc.status() == ReceiptCancelled {
		return Result{}, receiptFlow.invalid(rc.ID, "", ReceiptCancelled)
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, rc.Draft)
		if err != nil || res.Entry == nil || !rc.settles() {
			return err
		}
		return settle(ctx, tx, ledger.DocumentSales, rc.Document, rc.Partner, rc.Amount)
	})
	if err != nil {
		return Result{}, err
	}
	rc.Status = rc.status()
	if res.Entry != nil {
		rc.JournalEntryID = res.Entry.ID
	}
	return res, nil
}

// SetReceiptStatus moves a receipt one step along draft, pending, verified,
// deposited. Moving to cancelled goes through CancelReceipt.
func (p *Poster) SetReceiptStatus(ctx context.Context, actor string, rc *Receipt, to ReceiptStatus) (Result, error) {
	if to == ReceiptCancelled {
		return p.CancelReceipt(ctx, actor, rc, "")
	}
	if err := receiptFlow.advance(rc.ID, rc.status(), to); err != nil {
		return Result{}, err
	}
	p.log.Debug("receipt status changed", zap.String("receipt", rc.ID), zap.String("from", string(rc.status())), zap.String("to", string(to)))
	rc.Status = to
	return Result{}, nil
}

// CancelReceipt reverses the receipt entry and reopens the settled invoice.
// Deposited and cancelled receipts cannot be cancelled.
func (p *Poster) CancelReceipt(ctx context.Context, actor string, rc *Receipt, reason string) (Result, error) {
	if err := receiptFlow.cancel(rc.ID, rc.status()); err != nil {
		return Result{}, err
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		rev, err := reverseSource(ctx, tx, actor, rc.JournalEntryID, sourceReceipt, rc.ID, reason)
		if err != nil {
			return err
		}
		res = Result{Entry: rev}
		if rev != nil && rc.settles() {
			return settle(ctx, tx, ledger.DocumentSales, rc.Document, rc.Partner, rc.Amount.Neg())
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	rc.Status = ReceiptCancelled
	return res, nil
}
