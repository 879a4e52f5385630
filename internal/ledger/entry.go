package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusPosted   EntryStatus = "posted"
	StatusReversed EntryStatus = "reversed"
)

type EntryType string

const (
	EntryManual          EntryType = "manual"
	EntryAutomatic       EntryType = "automatic"
	EntryAdjustment      EntryType = "adjustment"
	EntryClosing         EntryType = "closing"
	EntrySalesInvoice    EntryType = "sales_invoice"
	EntrySalesReturn     EntryType = "sales_return"
	EntryPurchaseInvoice EntryType = "purchase_invoice"
	EntryPurchaseReturn  EntryType = "purchase_return"
	EntryExpense         EntryType = "expense"
	EntryExpensePayment  EntryType = "expense_payment"
	EntryPayroll         EntryType = "payroll"
	EntryPayment         EntryType = "payment"
	EntryReceipt         EntryType = "receipt"
	EntryReversal        EntryType = "reversal"
)

var allEntryTypes = []EntryType{
	EntryManual, EntryAutomatic, EntryAdjustment, EntryClosing,
	EntrySalesInvoice, EntrySalesReturn, EntryPurchaseInvoice, EntryPurchaseReturn,
	EntryExpense, EntryExpensePayment, EntryPayroll, EntryPayment, EntryReceipt,
	EntryReversal,
}

func ParseEntryType(s string) (EntryType, error) {
	for _, t := range allEntryTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", Invalid("type", nil, "unknown entry type %q", s)
}

// Line is one debit or credit of an entry. Exactly one of Debit and Credit is
// non-zero.
type Line struct {
	ID          int64           `json:"id,omitempty"`
	EntryID     string          `json:"entry_id,omitempty"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Partner     Partner         `json:"partner"`
}

func DebitLine(accountID string, amount decimal.Decimal, desc string) Line {
	return Line{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Description: desc}
}

func CreditLine(accountID string, amount decimal.Decimal, desc string) Line {
	return Line{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Description: desc}
}

// WithPartner returns a copy of l tagged with p.
func (l Line) WithPartner(p Partner) Line {
	l.Partner = p
	return l
}

// Validate checks the line in isolation. i is used for error messages.
func (l Line) Validate(i int) error {
	field := fmt.Sprintf("lines[%d]", i)
	if strings.TrimSpace(l.AccountID) == "" {
		return Invalid(field+".account_id", nil, "account is required")
	}
	if err := CheckScale(l.Debit); err != nil {
		return Invalid(field+".debit", err, "%v", err)
	}
	if err := CheckScale(l.Credit); err != nil {
		return Invalid(field+".credit", err, "%v", err)
	}
	if l.Debit.IsZero() == l.Credit.IsZero() {
		return Invalid(field, ErrInvalidLine, "debit %s credit %s", l.Debit, l.Credit)
	}
	if err := l.Partner.Validate(); err != nil {
		return Invalid(field+".partner", err, "%v", err)
	}
	return nil
}

// Swapped returns the line with debit and credit exchanged, same account and
// partner, ready to be written as a new line.
func (l Line) Swapped() Line {
	return Line{
		AccountID:   l.AccountID,
		Description: l.Description,
		Debit:       l.Credit,
		Credit:      l.Debit,
		Partner:     l.Partner,
	}
}

type JournalEntry struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Prefix      string          `json:"prefix"`
	Period      string          `json:"period"`
	Seq         int             `json:"seq"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Type        EntryType       `json:"type"`
	Status      EntryStatus     `json:"status"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	CreatedBy   string          `json:"created_by"`
	PostedBy    string          `json:"posted_by,omitempty"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ReversalOf  string          `json:"reversal_of,omitempty"`
	ReversedBy  string          `json:"reversed_by,omitempty"`
	SourceType  string          `json:"source_type,omitempty"`
	SourceID    string          `json:"source_id,omitempty"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Balanced reports whether the totals agree within Epsilon.
func (e *JournalEntry) Balanced() bool {
	return e.TotalDebit.Sub(e.TotalCredit).Abs().LessThan(Epsilon)
}

// AccountIDs returns the distinct accounts touched by the entry's lines in
// first-seen order.
func (e *JournalEntry) AccountIDs() []string {
	return distinctAccounts(e.Lines)
}

// EntryDraft is the input to the journal engine.
type EntryDraft struct {
	Date        time.Time
	Description string
	Reference   string
	Type        EntryType
	// Status is StatusDraft or StatusPosted. Empty means posted.
	Status     EntryStatus
	SourceType string
	SourceID   string
	Lines      []Line
}

// Totals sums debits and credits.
func Totals(lines []Line) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// CheckBalanced fails with ErrUnbalancedEntry when the totals differ by
// Epsilon or more.
func CheckBalanced(debit, credit decimal.Decimal) error {
	if debit.Sub(credit).Abs().LessThan(Epsilon) {
		return nil
	}
	return Invalid("lines", ErrUnbalancedEntry, "debits %s != credits %s", debit.StringFixed(AmountScale), credit.StringFixed(AmountScale))
}

// Validate normalizes the draft and checks every invariant that can be
// checked without storage. Balance is only required for posted drafts.
func (d *EntryDraft) Validate() error {
	if d.Status == "" {
		d.Status = StatusPosted
	}
	if d.Status != StatusDraft && d.Status != StatusPosted {
		return Invalid("status", nil, "entries are created as draft or posted, not %q", d.Status)
	}
	if d.Type == "" {
		d.Type = EntryManual
	}
	if _, err := ParseEntryType(string(d.Type)); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return Invalid("date", nil, "entry date is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return Invalid("description", nil, "description is required")
	}
	if len(d.Lines) < 2 {
		return Invalid("lines", ErrTooFewLines, "got %d", len(d.Lines))
	}
	for i, l := range d.Lines {
		if err := l.Validate(i); err != nil {
			return err
		}
	}
	debit, credit := Totals(d.Lines)
	for _, total := range []decimal.Decimal{debit, credit} {
		if err := checkMagnitude(total); err != nil {
			return Invalid("lines", err, "entry total %s", total)
		}
	}
	if d.Status == StatusPosted {
		return CheckBalanced(debit, credit)
	}
	return nil
}

// AccountIDs returns the distinct accounts referenced by the draft.
func (d *EntryDraft) AccountIDs() []string {
	return distinctAccounts(d.Lines)
}

// ReversalDraft builds the entry that cancels e: every line swapped, posted on
// date, referencing the original number.
func ReversalDraft(e *JournalEntry, date time.Time, description string) EntryDraft {
	if description == "" {
		description = "Reversal of " + e.Number + ": " + e.Description
	}
	lines := make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = l.Swapped()
	}
	return EntryDraft{
		Date:        date,
		Description: description,
		Reference:   e.Number,
		Type:        EntryReversal,
		Status:      StatusPosted,
		SourceType:  e.SourceType,
		SourceID:    e.SourceID,
		Lines:       lines,
	}
}

// CheckTransition validates a status change of entry e.
func CheckTransition(e *JournalEntry, to EntryStatus) error {
	ok := false
	switch e.Status {
	case StatusDraft:
		ok = to == StatusPosted
	case StatusPosted:
		ok = to == StatusReversed
	}
	if !ok {
		return &StateError{Entity: "journal entry", ID: e.Number, From: string(e.Status), To: string(to)}
	}
	return nil
}

func distinctAccounts(lines []Line) []string {
	seen := make(map[string]bool, len(lines))
	var out []string
	for _, l := range lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			out = append(out, l.AccountID)
		}
	}
	return out
}
