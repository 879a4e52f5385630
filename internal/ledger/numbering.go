package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodGranularity selects the period stamp of reference numbers.
type PeriodGranularity string

const (
	PeriodYear  PeriodGranularity = "year"
	PeriodMonth PeriodGranularity = "month"
)

const DefaultSeqWidth = 4

// Numbering formats reference numbers as PREFIX-PERIOD-SEQ, e.g. JE-202501-0001.
type Numbering struct {
	Period PeriodGranularity
	Width  int
}

func DefaultNumbering() Numbering {
	return Numbering{Period: PeriodMonth, Width: DefaultSeqWidth}
}

// PrefixFor returns the number prefix used for entries of type t.
func PrefixFor(t EntryType) string {
	switch t {
	case EntrySalesInvoice:
		return "SI"
	case EntrySalesReturn:
		return "SR"
	case EntryPurchaseInvoice:
		return "PI"
	case EntryPurchaseReturn:
		return "PR"
	case EntryPayment:
		return "PV"
	case EntryReceipt:
		return "RV"
	default:
		return "JE"
	}
}

// PeriodOf stamps date according to the configured granularity.
func (n Numbering) PeriodOf(date time.Time) string {
	if n.Period == PeriodYear {
		return date.Format("2006")
	}
	return date.Format("200601")
}

func (n Numbering) Format(prefix, period string, seq int) string {
	w := n.Width
	if w <= 0 {
		w = DefaultSeqWidth
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, period, w, seq)
}

// ParseNumber splits a reference number into its parts.
func ParseNumber(number string) (prefix, period string, seq int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("invalid reference number %q", number)
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq <= 0 {
		return "", "", 0, fmt.Errorf("invalid sequence in reference number %q", number)
	}
	return parts[0], parts[1], seq, nil
}

func (n Numbering) Validate() error {
	if n.Period != PeriodYear && n.Period != PeriodMonth {
		return fmt.Errorf("numbering period must be %q or %q, got %q", PeriodYear, PeriodMonth, n.Period)
	}
	if n.Width < 1 || n.Width > 9 {
		return fmt.Errorf("numbering width must be between 1 and 9, got %d", n.Width)
	}
	return nil
}
