package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange bounds a query by entry date. Zero ends are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// HistoryRow is one posted line in a partner statement.
type HistoryRow struct {
	LineID         int64           `json:"line_id"`
	EntryID        string          `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	AccountID      string          `json:"account_id"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// PartnerSigned applies the partner sign convention to a debit/credit pair.
func PartnerSigned(p Partner, debit, credit decimal.Decimal) decimal.Decimal {
	if p.Receivable() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

type AgingLine struct {
	Document    Document        `json:"document"`
	DaysOld     int             `json:"days_old"`
	Bucket      AgingBucket     `json:"bucket"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type AgingReport struct {
	Partner Partner                         `json:"partner"`
	AsOf    time.Time                       `json:"as_of"`
	Lines   []AgingLine                     `json:"lines"`
	Buckets map[AgingBucket]decimal.Decimal `json:"buckets"`
	Total   decimal.Decimal                 `json:"total"`
}

// NewAgingReport buckets the outstanding remainder of docs as of asOf.
// Settled and cancelled documents are skipped.
func NewAgingReport(p Partner, asOf time.Time, docs []Document) AgingReport {
	r := AgingReport{
		Partner: p,
		AsOf:    asOf,
		Buckets: map[AgingBucket]decimal.Decimal{
			BucketCurrent: decimal.Zero,
			Bucket31To60:  decimal.Zero,
			Bucket61To90:  decimal.Zero,
			BucketOver90:  decimal.Zero,
		},
		Total: decimal.Zero,
	}
	for _, d := range docs {
		out := d.Outstanding()
		if !out.IsPositive() || d.Date.After(asOf) {
			continue
		}
		b := BucketFor(d.Date, asOf)
		r.Lines = append(r.Lines, AgingLine{Document: d, DaysOld: DaysBetween(d.Date, asOf), Bucket: b, Outstanding: out})
		r.Buckets[b] = r.Buckets[b].Add(out)
		r.Total = r.Total.Add(out)
	}
	return r
}

// TrialBalanceLine represents a single line in the trial balance.
type TrialBalanceLine struct {
	AccountID   string          `json:"account_id"`
	Code        string          `json:"code"`
	AccountName string          `json:"account_name"`
	Type        AccountType     `json:"type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	Balanced    bool               `json:"balanced"`
	AsOf        *time.Time         `json:"as_of,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// TrialBalanceLineFor places a signed balance on its natural side. A
// negative balance lands on the opposite column.
func TrialBalanceLineFor(a Account, balance decimal.Decimal) TrialBalanceLine {
	tl := TrialBalanceLine{
		AccountID:   a.ID,
		Code:        a.Code,
		AccountName: a.Name,
		Type:        a.Type,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	debitSide := NormalSide(a.Type) == SideDebit
	if balance.IsNegative() {
		debitSide = !debitSide
		balance = balance.Neg()
	}
	if debitSide {
		tl.Debit = balance
	} else {
		tl.Credit = balance
	}
	return tl
}
