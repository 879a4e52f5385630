package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocumentKind string

const (
	DocumentSales    DocumentKind = "sales"
	DocumentPurchase DocumentKind = "purchase"
)

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentPartial   DocumentStatus = "partial"
	DocumentPaid      DocumentStatus = "paid"
	DocumentCancelled DocumentStatus = "cancelled"
)

// Document is an open item (sales or purchase invoice) tracked for aging.
type Document struct {
	ID        string          `json:"id"`
	Kind      DocumentKind    `json:"kind"`
	Number    string          `json:"number"`
	Partner   Partner         `json:"partner"`
	Date      time.Time       `json:"date"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Status    DocumentStatus  `json:"status"`
	EntryID   string          `json:"entry_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Outstanding is the unpaid remainder, never negative.
func (d *Document) Outstanding() decimal.Decimal {
	if d.Status == DocumentCancelled {
		return decimal.Zero
	}
	o := d.Total.Sub(d.Paid)
	if o.IsNegative() {
		return decimal.Zero
	}
	return o
}

// ApplyPayment adds amount (negative to undo) to Paid and derives the status.
func (d *Document) ApplyPayment(amount decimal.Decimal) {
	d.Paid = d.Paid.Add(amount)
	if d.Paid.IsNegative() {
		d.Paid = decimal.Zero
	}
	d.Status = DocumentStatusFor(d.Total, d.Paid)
}

// DocumentStatusFor derives the settlement status of a live document.
func DocumentStatusFor(total, paid decimal.Decimal) DocumentStatus {
	switch {
	case paid.IsZero():
		return DocumentPending
	case paid.LessThan(total):
		return DocumentPartial
	default:
		return DocumentPaid
	}
}

// AgingBucket identifies a days-overdue range.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket31To60  AgingBucket = "31-60"
	Bucket61To90  AgingBucket = "61-90"
	BucketOver90  AgingBucket = "over-90"
)

// BucketFor places a document dated date into its bucket as of asOf.
func BucketFor(date, asOf time.Time) AgingBucket {
	days := DaysBetween(date, asOf)
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// DaysBetween counts calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
