package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpensePaid     ExpenseStatus = "paid"
	ExpenseRejected ExpenseStatus = "rejected"
)

var expenseFlow = flow[ExpenseStatus]{
	entity:     "expense",
	steps:      []ExpenseStatus{ExpensePending, ExpenseApproved, ExpensePaid},
	terminal:   ExpenseRejected,
	cancelFrom: []ExpenseStatus{ExpensePending, ExpenseApproved},
}

// Expense is a business expense record. Category is the code of the expense
// account to charge. The rules update Status and the entry ids in place.
type Expense struct {
	ID             string
	Date           time.Time
	Description    string
	Amount         decimal.Decimal
	Category       string
	Method         PaymentMethod
	BankAccount    string
	AlreadyPaid    bool
	Supplier       string
	Status         ExpenseStatus
	JournalEntryID string
	PaymentEntryID string
}

func (exp *Expense) status() ExpenseStatus {
	if exp.Status == "" {
		return ExpensePending
	}
	return exp.Status
}

// SettledOnApproval reports whether approval books the expense straight
// against Cash/Bank instead of a payable.
func (exp *Expense) SettledOnApproval() bool {
	return exp.AlreadyPaid || exp.Method == MethodCash
}

func (exp *Expense) Validate() error {
	if err := required("id", exp.ID); err != nil {
		return err
	}
	return positive("amount", exp.Amount)
}

func (exp *Expense) payee() ledger.Partner {
	if exp.Supplier == "" {
		return ledger.Partner{}
	}
	return ledger.Supplier(exp.Supplier)
}

// ApprovalDraft debits categoryAccountID, or Expense Default when it is
// empty, and credits Cash/Bank when the expense is settled on approval or
// Expense Payable (fallback Payable) otherwise.
func (exp *Expense) ApprovalDraft(s ledger.Settings, categoryAccountID string) (ledger.EntryDraft, error) {
	if err := exp.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	if categoryAccountID == "" {
		categoryAccountID = r.need(ledger.ConceptExpenseDefault)
	}
	var ls lineSet
	ls.debit(categoryAccountID, exp.Amount, "", ledger.Partner{})
	if exp.SettledOnApproval() {
		ls.credit(r.cashAccount(exp.Method, exp.BankAccount), exp.Amount, "", ledger.Partner{})
	} else {
		ls.credit(r.first(ledger.ConceptExpensePayable, ledger.ConceptPayable), exp.Amount, "", exp.payee())
	}
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        exp.Date,
		Description: describe(exp.Description, "Expense "+exp.ID),
		Type:        ledger.EntryExpense,
		SourceType:  sourceExpense,
		SourceID:    exp.ID,
		Lines:       ls,
	}, nil
}

// PaymentDraft settles an approved expense: Dr Expense Payable (fallback
// Payable), Cr Cash/Bank by method.
func (exp *Expense) PaymentDraft(s ledger.Settings, method PaymentMethod, bankAccount string, date time.Time) (ledger.EntryDraft, error) {
	if err := exp.Validate(); err != nil {
		return ledger.EntryDraft{}, err
	}
	r := newResolver(s)
	var ls lineSet
	ls.debit(r.first(ledger.ConceptExpensePayable, ledger.ConceptPayable), exp.Amount, "", exp.payee())
	ls.credit(r.cashAccount(method, bankAccount), exp.Amount, "", ledger.Partner{})
	if err := r.err(); err != nil {
		return ledger.EntryDraft{}, err
	}
	return ledger.EntryDraft{
		Date:        date,
		Description: "Payment of expense " + exp.ID,
		Type:        ledger.EntryExpensePayment,
		SourceType:  sourceExpense,
		SourceID:    exp.ID,
		Lines:       ls,
	}, nil
}

// ApproveExpense books a pending expense. An expense settled on approval
// moves straight to paid.
func (p *Poster) ApproveExpense(ctx context.Context, actor string, exp *Expense) (Result, error) {
	next := ExpenseApproved
	if exp.SettledOnApproval() {
		next = ExpensePaid
	}
	if err := expenseFlow.advance(exp.ID, exp.status(), ExpenseApproved); err != nil {
		return Result{}, err
	}

	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		category, err := p.categoryAccount(ctx, tx, exp.Category)
		if err != nil {
			return err
		}
		res, err = p.post(ctx, tx, actor, func(s ledger.Settings) (ledger.EntryDraft, error) {
			return exp.ApprovalDraft(s, category)
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	exp.Status = next
	if res.Entry != nil {
		exp.JournalEntryID = res.Entry.ID
	}
	return res, nil
}

// PayExpense settles an approved expense through method.
func (p *Poster) PayExpense(ctx context.Context, actor string, exp *Expense, method PaymentMethod, bankAccount string) (Result, error) {
	if err := expenseFlow.advance(exp.ID, exp.status(), ExpensePaid); err != nil {
		return Result{}, err
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		var err error
		res, err = p.post(ctx, tx, actor, func(s ledger.Settings) (ledger.EntryDraft, error) {
			return exp.PaymentDraft(s, method, bankAccount, tx.Now())
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	exp.Status = ExpensePaid
	if res.Entry != nil {
		exp.PaymentEntryID = res.Entry.ID
	}
	return res, nil
}

// RejectExpense reverses the approval entry of a pending or approved
// expense. A pending expense has no entry and only changes status.
func (p *Poster) RejectExpense(ctx context.Context, actor string, exp *Expense, reason string) (Result, error) {
	if err := expenseFlow.cancel(exp.ID, exp.status()); err != nil {
		return Result{}, err
	}
	if exp.status() == ExpensePending {
		exp.Status = ExpenseRejected
		return Result{}, nil
	}
	var res Result
	err := p.journal.Run(ctx, func(tx *journal.Tx) error {
		rev, err := reverseSource(ctx, tx, actor, exp.JournalEntryID, sourceExpense, exp.ID, reason)
		res = Result{Entry: rev}
		return err
	})
	if err != nil {
		return Result{}, err
	}
	exp.Status = ExpenseRejected
	return res, nil
}

// categoryAccount finds the active account whose code is the expense
// category. An unknown or inactive category falls back to Expense Default.
func (p *Poster) categoryAccount(ctx context.Context, tx *journal.Tx, code string) (string, error) {
	if code == "" {
		return "", nil
	}
	acct, err := tx.Store().GetAccountByCode(ctx, code)
	if ledger.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !acct.Active {
		return "", nil
	}
	return acct.ID, nil
}
