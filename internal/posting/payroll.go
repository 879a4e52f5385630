package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

// Payroll is one employee's salary run. Tax and Insurance are the amounts
// withheld from Gross.
type Payroll struct {
	ID          string
	Date        time.Time
	Employee    string
	Gross       decimal.Decimal
	Tax         decimal.Decimal
	Insurance   decimal.Decimal
	Description string
}

// Net is what the employee is owed after withholdings.
func (pr Payroll) Net() decimal.Decimal { return pr.Gross.Sub(pr.Tax).Sub(pr.Insurance) }

func (pr Payroll) Validate() error {
	if err := required("id", pr.ID); err != nil {
		return err
	}
	if err := required("employee", pr.Employee); err != nil {
		return err
	}
	if err := positive("gross", pr.Gross); err != nil {
		return err
	}
	if err := nonNegative("tax", pr.Tax); err != nil {
		return err
	}
	if err := nonNegative("insurance", pr.Insurance); err != nil {
		return err
	}
	if pr.Net().IsNegative() {
		return ledger.Invalid("gross", nil, "withholdings %s exceed gross %s", pr.Tax.Add(pr.Insurance), pr.Gross)
	}
	return nil
}

// Draft: Dr Salary Expense gross; Cr Tax Payable, Insurance Payable and
// Salary Payable (net, tagged with the employee).
func (pr Payroll) Draft(s ledger.Settings) (ledger.EntryDraft, error) {
	if err := pr.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	ls.debit(r.need(ledger.ConceptSalaryExpense), pr.Gross, "", ledger.Partner{})
	if pr.Tax.IsPositive() {
		ls.credit(r.need(ledger.ConceptTaxPayable), pr.Tax, "income tax withheld", ledger.Partner{})
	}
	if pr.Insurance.IsPositive() {
		ls.credit(r.need(ledger.ConceptInsurancePayable), pr.Insurance, "insurance withheld", ledger.Partner{})
	}
	ls.credit(r.need(ledger.ConceptSalaryPayable), pr.Net(), "", ledger.Employee(pr.Employee))
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        pr.Date,
		Description: describe(pr.Description, "Payroll "+pr.ID),
		Type:        ledger.EntryPayroll,
		SourceType:  sourcePayroll,
		SourceID:    pr.ID,
		Lines:       ls,
	}, nil
}

func (p *Poster) Payroll(ctx context.Context, actor string, pr Payroll) (Result, error) {
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, pr.Draft)
		return err
	})
	return res, err
}
