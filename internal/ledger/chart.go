package ledger

// ChartEntry is a predefined account of the default chart.
type ChartEntry struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Subtype     string      `json:"subtype"`
	Parent      string      `json:"parent,omitempty"`
	Description string      `json:"description"`
	IsSystem    bool        `json:"is_system"`
	Concept     Concept     `json:"concept,omitempty"`
}

const (
	SubtypeCurrentAsset      = "current_asset"
	SubtypeFixedAsset        = "fixed_asset"
	SubtypeCurrentLiability  = "current_liability"
	SubtypeLongTermLiability = "long_term_liability"
	SubtypeEquity            = "equity"
	SubtypeOperatingRevenue  = "operating_revenue"
	SubtypeOtherRevenue      = "other_revenue"
	SubtypeContraRevenue     = "contra_revenue"
	SubtypeCostOfSales       = "cost_of_sales"
	SubtypeOperatingExpense  = "operating_expense"
	SubtypeContraExpense     = "contra_expense"
)

// DefaultChart is the chart provisioned by EnsureDefaultChart. Group accounts
// come before their children.
var DefaultChart = []ChartEntry{
	// Assets (1xxx)
	{Code: "1000", Name: "Current Assets", Type: TypeAsset, Subtype: SubtypeCurrentAsset, IsSystem: true, Description: "Group for short-term assets"},
	{Code: "1100", Name: "Cash on Hand", Type: TypeAsset, Subtype: SubtypeCurrentAsset, Parent: "1000", IsSystem: true, Concept: ConceptCash, Description: "Physical cash and petty cash"},
	{Code: "1110", Name: "Bank", Type: TypeAsset, Subtype: SubtypeCurrentAsset, Parent: "1000", IsSystem: true, Concept: ConceptBank, Description: "Default operating bank account"},
	{Code: "1200", Name: "Accounts Receivable", Type: TypeAsset, Subtype: SubtypeCurrentAsset, Parent: "1000", IsSystem: true, Concept: ConceptReceivable, Description: "Amounts owed by customers"},
	{Code: "1300", Name: "Inventory", Type: TypeAsset, Subtype: SubtypeCurrentAsset, Parent: "1000", IsSystem: true, Concept: ConceptInventory, Description: "Goods held for sale"},
	{Code: "1400", Name: "Input Tax", Type: TypeAsset, Subtype: SubtypeCurrentAsset, Parent: "1000", IsSystem: true, Concept: ConceptPurchaseTax, Description: "Tax paid on purchases, recoverable"},
	{Code: "1500", Name: "Property, Plant & Equipment", Type: TypeAsset, Subtype: SubtypeFixedAsset, Description: "Long-term tangible assets"},

	// Liabilities (2xxx)
	{Code: "2000", Name: "Current Liabilities", Type: TypeLiability, Subtype: SubtypeCurrentLiability, IsSystem: true, Description: "Group for short-term obligations"},
	{Code: "2100", Name: "Accounts Payable", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptPayable, Description: "Amounts owed to suppliers"},
	{Code: "2150", Name: "Expenses Payable", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptExpensePayable, Description: "Approved expenses not yet paid"},
	{Code: "2200", Name: "Tax Payable", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptTaxPayable, Description: "Tax collected on behalf of tax authorities"},
	{Code: "2300", Name: "Salaries Payable", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptSalaryPayable, Description: "Net pay owed to employees"},
	{Code: "2310", Name: "Insurance Payable", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptInsurancePayable, Description: "Social insurance withheld from payroll"},
	{Code: "2400", Name: "Customer Advances", Type: TypeLiability, Subtype: SubtypeCurrentLiability, Parent: "2000", IsSystem: true, Concept: ConceptCustomerAdvances, Description: "Payments received before delivery"},
	{Code: "2500", Name: "Loans Payable", Type: TypeLiability, Subtype: SubtypeLongTermLiability, Description: "Outstanding loan obligations"},

	// Equity (3xxx)
	{Code: "3000", Name: "Owner's Capital", Type: TypeEquity, Subtype: SubtypeEquity, IsSystem: true, Description: "Owner's capital contributions and withdrawals"},
	{Code: "3100", Name: "Retained Earnings", Type: TypeEquity, Subtype: SubtypeEquity, IsSystem: true, Description: "Accumulated profits retained in the entity"},

	// Revenue (4xxx)
	{Code: "4000", Name: "Sales Revenue", Type: TypeRevenue, Subtype: SubtypeOperatingRevenue, IsSystem: true, Concept: ConceptSalesRevenue, Description: "Income from sales of goods and services"},
	{Code: "4100", Name: "Sales Returns", Type: TypeRevenue, Subtype: SubtypeContraRevenue, IsSystem: true, Concept: ConceptSalesReturns, Description: "Contra-revenue for returned sales"},
	{Code: "4200", Name: "Interest Income", Type: TypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true, Concept: ConceptInterestIncome, Description: "Interest earned"},
	{Code: "4300", Name: "Rental Income", Type: TypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true, Concept: ConceptRentalIncome, Description: "Rent received"},
	{Code: "4400", Name: "Commission Income", Type: TypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true, Concept: ConceptCommissionIncome, Description: "Commissions earned"},
	{Code: "4500", Name: "Gain on Asset Sale", Type: TypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true, Concept: ConceptAssetSaleGain, Description: "Proceeds from disposal of assets"},
	{Code: "4900", Name: "Miscellaneous Income", Type: TypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true, Concept: ConceptMiscIncome, Description: "Other income"},

	// Expenses (5xxx, 6xxx)
	{Code: "5000", Name: "Cost of Goods Sold", Type: TypeExpense, Subtype: SubtypeCostOfSales, IsSystem: true, Concept: ConceptCostOfGoodsSold, Description: "Direct costs of goods sold"},
	{Code: "5100", Name: "Purchases", Type: TypeExpense, Subtype: SubtypeCostOfSales, IsSystem: true, Concept: ConceptPurchaseExpense, Description: "Purchases not held as inventory"},
	{Code: "5200", Name: "Purchase Returns", Type: TypeExpense, Subtype: SubtypeContraExpense, IsSystem: true, Concept: ConceptPurchaseReturns, Description: "Contra-expense for returned purchases"},
	{Code: "6000", Name: "General Expenses", Type: TypeExpense, Subtype: SubtypeOperatingExpense, IsSystem: true, Concept: ConceptExpenseDefault, Description: "Operating expenses without a specific account"},
	{Code: "6100", Name: "Salaries and Wages", Type: TypeExpense, Subtype: SubtypeOperatingExpense, IsSystem: true, Concept: ConceptSalaryExpense, Description: "Employee compensation"},
	{Code: "6200", Name: "Rent Expense", Type: TypeExpense, Subtype: SubtypeOperatingExpense, Description: "Premises rent"},
	{Code: "6300", Name: "Utilities", Type: TypeExpense, Subtype: SubtypeOperatingExpense, Description: "Electricity, water and telecoms"},
}

// LookupChartEntry finds a default chart entry by code.
func LookupChartEntry(code string) *ChartEntry {
	for i := range DefaultChart {
		if DefaultChart[i].Code == code {
			return &DefaultChart[i]
		}
	}
	return nil
}

// ChartEntryFor returns the default chart entry backing concept c.
func ChartEntryFor(c Concept) *ChartEntry {
	for i := range DefaultChart {
		if DefaultChart[i].Concept == c {
			return &DefaultChart[i]
		}
	}
	return nil
}

// Defaults converts the entry into GetOrCreate defaults. parentID must be the
// resolved ID of e.Parent.
func (e ChartEntry) Defaults(parentID string) AccountDefaults {
	return AccountDefaults{
		Name:     e.Name,
		Type:     e.Type,
		Subtype:  e.Subtype,
		IsSystem: e.IsSystem,
		ParentID: parentID,
	}
}
