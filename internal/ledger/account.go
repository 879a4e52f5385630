package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"

	// TypeIncome is accepted on input and normalized to TypeRevenue.
	TypeIncome AccountType = "income"
)

var AllAccountTypes = []AccountType{
	TypeAsset,
	TypeLiability,
	TypeEquity,
	TypeRevenue,
	TypeExpense,
}

// Side is the side of a line that increases an account's balance.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

type Account struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Subtype        string          `json:"subtype,omitempty"`
	Active         bool            `json:"active"`
	IsSystem       bool            `json:"is_system"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	ParentID       string          `json:"parent_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AccountDefaults are the attributes used when GetOrCreate has to create the
// account.
type AccountDefaults struct {
	Name           string
	Type           AccountType
	Subtype        string
	IsSystem       bool
	OpeningBalance decimal.Decimal
	ParentID       string
}

// NormalizeType folds aliases and rejects unknown types.
func NormalizeType(t AccountType) (AccountType, error) {
	t = AccountType(strings.ToLower(strings.TrimSpace(string(t))))
	if t == TypeIncome {
		return TypeRevenue, nil
	}
	for _, at := range AllAccountTypes {
		if at == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
}

// NormalSide returns the side that increases balances of type t.
// Assets and expenses are debit-normal; liabilities, equity and revenue are
// credit-normal.
func NormalSide(t AccountType) Side {
	switch t {
	case TypeAsset, TypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Balance applies the sign convention of t. It is the only place where the
// convention is encoded.
func Balance(t AccountType, opening, debits, credits decimal.Decimal) decimal.Decimal {
	if NormalSide(t) == SideDebit {
		return opening.Add(debits).Sub(credits)
	}
	return opening.Add(credits).Sub(debits)
}

// Validate checks account invariants and normalizes the type.
func (a *Account) Validate() error {
	a.Code = strings.TrimSpace(a.Code)
	if a.Code == "" || strings.ContainsAny(a.Code, " \t\n") {
		return Invalid("code", ErrInvalidAccountCode, "code %q must be non-empty without whitespace", a.Code)
	}
	if strings.TrimSpace(a.Name) == "" {
		return Invalid("name", nil, "account name is required")
	}
	t, err := NormalizeType(a.Type)
	if err != nil {
		return Invalid("type", err, "%v", err)
	}
	a.Type = t
	if a.ParentID != "" && a.ParentID == a.ID {
		return Invalid("parent_id", nil, "account cannot be its own parent")
	}
	if !a.OpeningBalance.Equal(Round(a.OpeningBalance)) {
		return Invalid("opening_balance", ErrTooManyDecimals, "opening balance %s", a.OpeningBalance)
	}
	if err := checkMagnitude(a.OpeningBalance); err != nil {
		return Invalid("opening_balance", err, "opening balance %s", a.OpeningBalance)
	}
	return nil
}

// FullCode joins the codes of ancestors (root first) and the account itself.
func FullCode(codes ...string) string {
	return strings.Join(codes, CodeSeparator)
}

const CodeSeparator = "."
