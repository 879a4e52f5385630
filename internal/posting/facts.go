package posting

import (
	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/ledger"
)

// PaymentMethod is how money moved. Only cash is told apart; every other
// method settles through the bank.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "bank_transfer"
	MethodCheque   PaymentMethod = "cheque"
	MethodCard     PaymentMethod = "card"
)

const (
	sourceSalesInvoice    = "sales_invoice"
	sourceSalesReturn     = "sales_return"
	sourcePurchaseInvoice = "purchase_invoice"
	sourcePurchaseReturn  = "purchase_return"
	sourceExpense         = "expense"
	sourcePayroll         = "payroll"
	sourcePayment         = "payment"
	sourceReceipt         = "receipt"
)

func positive(field string, d decimal.Decimal) error {
	if err := ledger.CheckScale(d); err != nil {
		return ledger.Invalid(field, err, "%s", d)
	}
	if !d.IsPositive() {
		return ledger.Invalid(field, nil, "must be greater than zero")
	}
	return nil
}

func nonNegative(field string, d decimal.Decimal) error {
	if err := ledger.CheckScale(d); err != nil {
		return ledger.Invalid(field, err, "%s", d)
	}
	return nil
}

// partnerFor requires p to be a partner of kind for the given subtype.
// PartnerNone accepts anything.
func partnerFor(subtype string, p ledger.Partner, kind ledger.PartnerKind) error {
	if kind == ledger.PartnerNone || p.Kind == kind {
		return nil
	}
	return ledger.Invalid("partner", ledger.ErrInvalidPartner, "%s needs a %s, got %q", subtype, kind, p)
}

func required(field, v string) error {
	if v == "" {
		return ledger.Invalid(field, nil, "is required")
	}
	return nil
}

// lineSet collects entry lines, dropping zero amounts.
type lineSet []ledger.Line

func (ls *lineSet) debit(accountID string, amount decimal.Decimal, desc string, p ledger.Partner) {
	if amount.IsZero() {
		return
	}
	*ls = append(*ls, ledger.DebitLine(accountID, amount, desc).WithPartner(p))
}

func (ls *lineSet) credit(accountID string, amount decimal.Decimal, desc string, p ledger.Partner) {
	if amount.IsZero() {
		return
	}
	*ls = append(*ls, ledger.CreditLine(accountID, amount, desc).WithPartner(p))
}
