package ledger

import "fmt"

// Concept names a business role that posting rules resolve to a concrete
// account through the registry.
type Concept string

const (
	ConceptSalesRevenue     Concept = "sales_revenue"
	ConceptSalesReturns     Concept = "sales_returns"
	ConceptReceivable       Concept = "receivable"
	ConceptTaxPayable       Concept = "tax_payable"
	ConceptPurchaseTax      Concept = "purchase_tax"
	ConceptPurchaseExpense  Concept = "purchase_expense"
	ConceptPurchaseReturns  Concept = "purchase_returns"
	ConceptPayable          Concept = "payable"
	ConceptInventory        Concept = "inventory"
	ConceptCostOfGoodsSold  Concept = "cost_of_goods_sold"
	ConceptCash             Concept = "cash"
	ConceptBank             Concept = "bank"
	ConceptExpenseDefault   Concept = "expense_default"
	ConceptExpensePayable   Concept = "expense_payable"
	ConceptSalaryExpense    Concept = "salary_expense"
	ConceptSalaryPayable    Concept = "salary_payable"
	ConceptInsurancePayable Concept = "insurance_payable"
	ConceptCustomerAdvances Concept = "customer_advances"
	ConceptInterestIncome   Concept = "interest_income"
	ConceptRentalIncome     Concept = "rental_income"
	ConceptCommissionIncome Concept = "commission_income"
	ConceptAssetSaleGain    Concept = "asset_sale_gain"
	ConceptMiscIncome       Concept = "misc_income"
)

var AllConcepts = []Concept{
	ConceptSalesRevenue,
	ConceptSalesReturns,
	ConceptReceivable,
	ConceptTaxPayable,
	ConceptPurchaseTax,
	ConceptPurchaseExpense,
	ConceptPurchaseReturns,
	ConceptPayable,
	ConceptInventory,
	ConceptCostOfGoodsSold,
	ConceptCash,
	ConceptBank,
	ConceptExpenseDefault,
	ConceptExpensePayable,
	ConceptSalaryExpense,
	ConceptSalaryPayable,
	ConceptInsurancePayable,
	ConceptCustomerAdvances,
	ConceptInterestIncome,
	ConceptRentalIncome,
	ConceptCommissionIncome,
	ConceptAssetSaleGain,
	ConceptMiscIncome,
}

// ParseConcept validates a concept name.
func ParseConcept(s string) (Concept, error) {
	for _, c := range AllConcepts {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownConcept, s)
}

// Settings is the account registry. A nil field means the concept is not
// mapped.
type Settings struct {
	SalesRevenue     *string `json:"sales_revenue,omitempty"`
	SalesReturns     *string `json:"sales_returns,omitempty"`
	Receivable       *string `json:"receivable,omitempty"`
	TaxPayable       *string `json:"tax_payable,omitempty"`
	PurchaseTax      *string `json:"purchase_tax,omitempty"`
	PurchaseExpense  *string `json:"purchase_expense,omitempty"`
	PurchaseReturns  *string `json:"purchase_returns,omitempty"`
	Payable          *string `json:"payable,omitempty"`
	Inventory        *string `json:"inventory,omitempty"`
	CostOfGoodsSold  *string `json:"cost_of_goods_sold,omitempty"`
	Cash             *string `json:"cash,omitempty"`
	Bank             *string `json:"bank,omitempty"`
	ExpenseDefault   *string `json:"expense_default,omitempty"`
	ExpensePayable   *string `json:"expense_payable,omitempty"`
	SalaryExpense    *string `json:"salary_expense,omitempty"`
	SalaryPayable    *string `json:"salary_payable,omitempty"`
	InsurancePayable *string `json:"insurance_payable,omitempty"`
	CustomerAdvances *string `json:"customer_advances,omitempty"`
	InterestIncome   *string `json:"interest_income,omitempty"`
	RentalIncome     *string `json:"rental_income,omitempty"`
	CommissionIncome *string `json:"commission_income,omitempty"`
	AssetSaleGain    *string `json:"asset_sale_gain,omitempty"`
	MiscIncome       *string `json:"misc_income,omitempty"`
}

func (s *Settings) field(c Concept) **string {
	switch c {
	case ConceptSalesRevenue:
		return &s.SalesRevenue
	case ConceptSalesReturns:
		return &s.SalesReturns
	case ConceptReceivable:
		return &s.Receivable
	case ConceptTaxPayable:
		return &s.TaxPayable
	case ConceptPurchaseTax:
		return &s.PurchaseTax
	case ConceptPurchaseExpense:
		return &s.PurchaseExpense
	case ConceptPurchaseReturns:
		return &s.PurchaseReturns
	case ConceptPayable:
		return &s.Payable
	case ConceptInventory:
		return &s.Inventory
	case ConceptCostOfGoodsSold:
		return &s.CostOfGoodsSold
	case ConceptCash:
		return &s.Cash
	case ConceptBank:
		return &s.Bank
	case ConceptExpenseDefault:
		return &s.ExpenseDefault
	case ConceptExpensePayable:
		return &s.ExpensePayable
	case ConceptSalaryExpense:
		return &s.SalaryExpense
	case ConceptSalaryPayable:
		return &s.SalaryPayable
	case ConceptInsurancePayable:
		return &s.InsurancePayable
	case ConceptCustomerAdvances:
		return &s.CustomerAdvances
	case ConceptInterestIncome:
		return &s.InterestIncome
	case ConceptRentalIncome:
		return &s.RentalIncome
	case ConceptCommissionIncome:
		return &s.CommissionIncome
	case ConceptAssetSaleGain:
		return &s.AssetSaleGain
	case ConceptMiscIncome:
		return &s.MiscIncome
	}
	return nil
}

// Resolve returns the account mapped to c.
func (s Settings) Resolve(c Concept) (string, bool) {
	f := s.field(c)
	if f == nil || *f == nil || **f == "" {
		return "", false
	}
	return **f, true
}

// ResolveFirst returns the first mapped concept in order, with the concept
// that matched.
func (s Settings) ResolveFirst(cs ...Concept) (string, Concept, bool) {
	for _, c := range cs {
		if id, ok := s.Resolve(c); ok {
			return id, c, true
		}
	}
	return "", "", false
}

// Set maps c to accountID. An empty accountID clears the mapping.
func (s *Settings) Set(c Concept, accountID string) error {
	f := s.field(c)
	if f == nil {
		return fmt.Errorf("%w: %q", ErrUnknownConcept, c)
	}
	if accountID == "" {
		*f = nil
		return nil
	}
	*f = &accountID
	return nil
}

// Mapped returns every concept that currently resolves.
func (s Settings) Mapped() map[Concept]string {
	out := make(map[Concept]string)
	for _, c := range AllConcepts {
		if id, ok := s.Resolve(c); ok {
			out[c] = id
		}
	}
	return out
}
