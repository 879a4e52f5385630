package posting

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/simonvc/bookledger/internal/accounts"
	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/store"
)

type env struct {
	st      *store.Store
	accts   *accounts.Service
	journal *journal.Service
	poster  *Poster
	logs    *observer.ObservedLogs
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "posting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	e := &env{
		st:      st,
		accts:   accounts.New(st, log),
		journal: journal.New(st, log, journal.WithClock(func() time.Time { return day.Add(9 * time.Hour) })),
		logs:    logs,
	}
	e.poster = New(e.journal, log, opts...)
	_, err = e.accts.EnsureDefaultChart(context.Background())
	require.NoError(t, err)
	return e
}

func (e *env) account(t *testing.T, code string) *ledger.Account {
	t.Helper()
	a, err := e.accts.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return a
}

func (e *env) balance(t *testing.T, code string) string {
	t.Helper()
	return e.account(t, code).CurrentBalance.StringFixed(2)
}

func TestSalesInvoice_OnCredit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{
		Number: "INV-1001", Date: day, Customer: "c-1", Subtotal: amt("1000"), Tax: amt("80"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.False(t, res.Skipped)

	entry := res.Entry
	assert.Equal(t, "SI-202503-0001", entry.Number)
	assert.Equal(t, ledger.StatusPosted, entry.Status)
	assert.Equal(t, "1080.00", entry.TotalDebit.StringFixed(2))
	assert.Equal(t, "1080.00", entry.TotalCredit.StringFixed(2))
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, e.account(t, "1200").ID, entry.Lines[0].AccountID)
	assert.Equal(t, ledger.Customer("c-1"), entry.Lines[0].Partner)

	assert.Equal(t, "1080.00", e.balance(t, "1200"))
	assert.Equal(t, "1000.00", e.balance(t, "4000"))
	assert.Equal(t, "80.00", e.balance(t, "2200"))

	doc, err := e.st.GetDocument(ctx, ledger.DocumentSales, "INV-1001")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPending, doc.Status)
	assert.Equal(t, "1080.00", doc.Outstanding().StringFixed(2))
	assert.Equal(t, entry.ID, doc.EntryID)

	_, err = e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{
		Number: "INV-1001", Date: day, Customer: "c-1", Subtotal: amt("1"),
	})
	require.Error(t, err, "invoice numbers are unique")
	assert.Equal(t, "1080.00", e.balance(t, "1200"))
}

func TestApproveExpense_CashAtCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	exp := &Expense{ID: "exp-1", Date: day, Description: "printer paper", Amount: amt("250"), Category: "6000", Method: MethodCash}
	res, err := e.poster.ApproveExpense(ctx, "manager", exp)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	assert.Equal(t, ledger.StatusPosted, res.Entry.Status)
	assert.Equal(t, res.Entry.ID, exp.JournalEntryID)
	assert.Equal(t, ExpensePaid, exp.Status)
	assert.Equal(t, []side{
		{e.account(t, "6000").ID, "250.00", "0.00", ledger.Partner{}},
		{e.account(t, "1100").ID, "0.00", "250.00", ledger.Partner{}},
	}, sides(ledger.EntryDraft{Lines: res.Entry.Lines}))

	_, err = e.poster.ApproveExpense(ctx, "manager", exp)
	assert.True(t, ledger.IsInvalidState(err))
}

func TestApproveExpense_UnknownCategoryFallsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.accts.MapConcept(ctx, ledger.ConceptExpenseDefault, "6300"))

	exp := &Expense{ID: "exp-2", Date: day, Amount: amt("12"), Category: "9999", Method: MethodTransfer}
	res, err := e.poster.ApproveExpense(ctx, "manager", exp)
	require.NoError(t, err)
	assert.Equal(t, e.account(t, "6300").ID, res.Entry.Lines[0].AccountID)
	assert.Equal(t, e.account(t, "2150").ID, res.Entry.Lines[1].AccountID)
	assert.Equal(t, ExpenseApproved, exp.Status)

	pay, err := e.poster.PayExpense(ctx, "cashier", exp, MethodTransfer, "")
	require.NoError(t, err)
	assert.Equal(t, ExpensePaid, exp.Status)
	assert.Equal(t, pay.Entry.ID, exp.PaymentEntryID)
	assert.Equal(t, ledger.EntryExpensePayment, pay.Entry.Type)
	assert.Equal(t, "0.00", e.balance(t, "2150"))
	assert.Equal(t, "-12.00", e.balance(t, "1110"))
}

func TestRejectExpense_ReversesApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	before := e.balance(t, "6000")

	exp := &Expense{ID: "exp-3", Date: day, Amount: amt("250"), Category: "6000", Method: MethodTransfer}
	approved, err := e.poster.ApproveExpense(ctx, "manager", exp)
	require.NoError(t, err)
	assert.Equal(t, "JE-202503-0001", approved.Entry.Number)
	assert.Equal(t, "250.00", e.balance(t, "6000"))

	res, err := e.poster.RejectExpense(ctx, "manager", exp, "duplicate claim")
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "JE-202503-0002", res.Entry.Number)
	assert.Equal(t, "duplicate claim", res.Entry.Description)
	assert.Equal(t, ExpenseRejected, exp.Status)
	for i, l := range approved.Entry.Lines {
		assert.Equal(t, l.AccountID, res.Entry.Lines[i].AccountID)
		assert.True(t, l.Debit.Equal(res.Entry.Lines[i].Credit))
		assert.True(t, l.Credit.Equal(res.Entry.Lines[i].Debit))
	}

	orig, err := e.journal.Get(ctx, approved.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, orig.Status)
	assert.Equal(t, before, e.balance(t, "6000"))
	assert.Equal(t, "0.00", e.balance(t, "2150"))

	_, err = e.poster.RejectExpense(ctx, "manager", exp, "")
	assert.True(t, ledger.IsInvalidState(err))
}

func TestRejectExpense_LostEntryID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	exp := &Expense{ID: "exp-4", Date: day, Amount: amt("30"), Method: MethodTransfer}
	_, err := e.poster.ApproveExpense(ctx, "manager", exp)
	require.NoError(t, err)
	exp.JournalEntryID = ""

	res, err := e.poster.RejectExpense(ctx, "manager", exp, "")
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "0.00", e.balance(t, "6000"))
}

func TestPayroll(t *testing.T) {
	e := newEnv(t)
	res, err := e.poster.Payroll(context.Background(), "hr", Payroll{
		ID: "run-2025-03", Date: day, Employee: "emp-1", Gross: amt("3000"), Tax: amt("300"), Insurance: amt("150"),
	})
	require.NoError(t, err)
	assert.Equal(t, "JE-202503-0001", res.Entry.Number)
	assert.Equal(t, "3000.00", e.balance(t, "6100"))
	assert.Equal(t, "2550.00", e.balance(t, "2300"))
	assert.Equal(t, "150.00", e.balance(t, "2310"))
	assert.Equal(t, "300.00", e.balance(t, "2200"))
}

func TestPayment_LifecycleAndSettlement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.poster.PurchaseInvoice(ctx, "buyer", PurchaseInvoice{
		Number: "BILL-9", Date: day, Supplier: "s-1", Subtotal: amt("400"), Stock: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00", e.balance(t, "2100"))

	pay := &Payment{ID: "pay-1", Number: "PV-1", Date: day, Subtype: PaySupplier, Partner: ledger.Supplier("s-1"),
		Amount: amt("150"), Method: MethodTransfer, Document: "BILL-9"}
	res, err := e.poster.CreatePayment(ctx, "cashier", pay)
	require.NoError(t, err)
	assert.Equal(t, "PV-202503-0001", res.Entry.Number)
	assert.Equal(t, PaymentDraft, pay.Status)
	assert.Equal(t, "250.00", e.balance(t, "2100"))

	doc, err := e.st.GetDocument(ctx, ledger.DocumentPurchase, "BILL-9")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPartial, doc.Status)

	for _, st := range []PaymentStatus{PaymentPending, PaymentApproved} {
		_, err = e.poster.SetPaymentStatus(ctx, "cashier", pay, st)
		require.NoError(t, err)
	}

	res, err = e.poster.SetPaymentStatus(ctx, "cashier", pay, PaymentCancelled)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "PV-202503-0002", res.Entry.Number)
	assert.Equal(t, PaymentCancelled, pay.Status)
	assert.Equal(t, "400.00", e.balance(t, "2100"))
	assert.Equal(t, "0.00", e.balance(t, "1110"))

	doc, err = e.st.GetDocument(ctx, ledger.DocumentPurchase, "BILL-9")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPending, doc.Status)
	assert.True(t, doc.Paid.IsZero())
}

func TestCancelPaidPayment_Fails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pay := &Payment{ID: "pay-2", Date: day, Subtype: PayOther, Amount: amt("20"), Method: MethodCash}
	_, err := e.poster.CreatePayment(ctx, "cashier", pay)
	require.NoError(t, err)
	for _, st := range []PaymentStatus{PaymentPending, PaymentApproved, PaymentPaid} {
		_, err = e.poster.SetPaymentStatus(ctx, "cashier", pay, st)
		require.NoError(t, err)
	}

	_, err = e.poster.CancelPayment(ctx, "cashier", pay, "")
	var se *ledger.StateError
	require.ErrorAs(t, err, &se)
	assert.True(t, ledger.IsInvalidState(err))
	assert.Equal(t, "paid", se.From)

	entry, err := e.journal.Get(ctx, pay.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, entry.Status)
	assert.Equal(t, "-20.00", e.balance(t, "1100"))
}

func TestReceipt_SettlesInvoice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{Number: "INV-7", Date: day, Customer: "c-9", Subtotal: amt("300")})
	require.NoError(t, err)

	rc := &Receipt{ID: "rc-1", Date: day, Subtype: ReceiveCustomerPayment, Partner: ledger.Customer("c-9"),
		Amount: amt("300"), Method: MethodTransfer, Document: "INV-7"}
	res, err := e.poster.CreateReceipt(ctx, "cashier", rc)
	require.NoError(t, err)
	assert.Equal(t, "RV-202503-0001", res.Entry.Number)
	assert.Equal(t, "0.00", e.balance(t, "1200"))
	assert.Equal(t, "300.00", e.balance(t, "1110"))

	doc, err := e.st.GetDocument(ctx, ledger.DocumentSales, "INV-7")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPaid, doc.Status)

	_, err = e.poster.SetReceiptStatus(ctx, "cashier", rc, ReceiptVerified)
	assert.True(t, ledger.IsInvalidState(err), "receipts move one step at a time")

	_, err = e.poster.CancelReceipt(ctx, "cashier", rc, "bounced")
	require.NoError(t, err)
	doc, err = e.st.GetDocument(ctx, ledger.DocumentSales, "INV-7")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPending, doc.Status)
	assert.Equal(t, "300.00", e.balance(t, "1200"))

	// Already cancelled.
	_, err = e.poster.CancelReceipt(ctx, "cashier", rc, "")
	assert.True(t, ledger.IsInvalidState(err))
}

func TestSettlement_PartnerMustMatchDocument(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{Number: "INV-1", Date: day, Customer: "c-1", Subtotal: amt("100")})
	require.NoError(t, err)
	_, err = e.poster.PurchaseInvoice(ctx, "buyer", PurchaseInvoice{Number: "BILL-1", Date: day, Supplier: "s-1", Subtotal: amt("40")})
	require.NoError(t, err)

	untagged := &Receipt{ID: "rc-1", Date: day, Subtype: ReceiveCustomerPayment, Amount: amt("100"), Method: MethodTransfer, Document: "INV-1"}
	_, err = e.poster.CreateReceipt(ctx, "cashier", untagged)
	assert.True(t, ledger.IsValidation(err))
	assert.ErrorIs(t, err, ledger.ErrInvalidPartner)

	other := &Receipt{ID: "rc-2", Date: day, Subtype: ReceiveCustomerPayment, Partner: ledger.Customer("c-2"),
		Amount: amt("100"), Method: MethodTransfer, Document: "INV-1"}
	_, err = e.poster.CreateReceipt(ctx, "cashier", other)
	assert.True(t, ledger.IsValidation(err))
	assert.ErrorIs(t, err, ledger.ErrInvalidPartner)
	assert.Empty(t, other.JournalEntryID)

	pay := &Payment{ID: "pay-1", Date: day, Subtype: PaySupplier, Partner: ledger.Supplier("s-2"),
		Amount: amt("40"), Method: MethodTransfer, Document: "BILL-1"}
	_, err = e.poster.CreatePayment(ctx, "cashier", pay)
	assert.True(t, ledger.IsValidation(err))

	_, err = e.poster.CreatePayment(ctx, "cashier", &Payment{ID: "pay-2", Date: day, Subtype: PayPurchaseInvoice,
		Amount: amt("40"), Method: MethodTransfer, Document: "BILL-1"})
	assert.ErrorIs(t, err, ledger.ErrInvalidPartner)

	_, err = e.poster.SalesReturn(ctx, "clerk", SalesReturn{Number: "SR-1", Invoice: "INV-1", Date: day, Customer: "c-2", Subtotal: amt("10")})
	assert.True(t, ledger.IsValidation(err))

	// Nothing was booked: the rejected events rolled back with their entries.
	receipts, err := e.journal.List(ctx, store.EntryFilter{Type: ledger.EntryReceipt})
	require.NoError(t, err)
	assert.Empty(t, receipts)
	assert.Equal(t, "100.00", e.balance(t, "1200"))
	assert.Equal(t, "40.00", e.balance(t, "2100"))

	for _, p := range []ledger.Partner{ledger.Customer("c-1"), ledger.Supplier("s-1")} {
		dr, cr, err := e.st.PartnerSums(ctx, p, nil)
		require.NoError(t, err)
		docs, err := e.st.OpenDocuments(ctx, p)
		require.NoError(t, err)
		aging := ledger.NewAgingReport(p, day, docs)
		assert.True(t, ledger.PartnerSigned(p, dr, cr).Equal(aging.Total), "%s", p)
	}
	c2, err := e.st.OpenDocuments(ctx, ledger.Customer("c-2"))
	require.NoError(t, err)
	assert.Empty(t, c2)
}

func TestCancel_NothingToReverse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rc := &Receipt{ID: "rc-unbooked", Date: day, Subtype: ReceiveMisc, Amount: amt("5")}
	res, err := e.poster.CancelReceipt(ctx, "cashier", rc, "")
	require.NoError(t, err)
	assert.Nil(t, res.Entry)
	assert.Equal(t, ReceiptCancelled, rc.Status)
}

func TestMissingMapping_SoftFail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.accts.UnmapConcept(ctx, ledger.ConceptReceivable))

	res, err := e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{Number: "INV-2", Date: day, Customer: "c-1", Subtotal: amt("10")})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Nil(t, res.Entry)
	assert.Equal(t, ledger.ConceptReceivable, res.Missing)

	warnings := e.logs.FilterMessage("entry skipped, account mapping missing").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Equal(t, "receivable", warnings[0].ContextMap()["concept"])

	entries, err := e.journal.List(ctx, store.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The open item is still tracked.
	doc, err := e.st.GetDocument(ctx, ledger.DocumentSales, "INV-2")
	require.NoError(t, err)
	assert.Empty(t, doc.EntryID)
}

func TestMissingMapping_Strict(t *testing.T) {
	e := newEnv(t, WithStrict(true))
	ctx := context.Background()
	require.NoError(t, e.accts.UnmapConcept(ctx, ledger.ConceptSalaryPayable))

	_, err := e.poster.Payroll(ctx, "hr", Payroll{ID: "run", Date: day, Employee: "emp", Gross: amt("10")})
	assert.ErrorIs(t, err, ledger.ErrMissingConfiguration)
	assert.Zero(t, e.logs.FilterMessage("entry skipped, account mapping missing").Len())
}

func TestReturns_ReduceOpenItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.poster.SalesInvoice(ctx, "clerk", SalesInvoice{Number: "INV-20", Date: day, Customer: "c-1", Subtotal: amt("200"), Tax: amt("20")})
	require.NoError(t, err)
	res, err := e.poster.SalesReturn(ctx, "clerk", SalesReturn{Number: "SR-1", Invoice: "INV-20", Date: day, Customer: "c-1", Subtotal: amt("50"), Tax: amt("5")})
	require.NoError(t, err)
	assert.Equal(t, "SR-202503-0001", res.Entry.Number)
	assert.Equal(t, "165.00", e.balance(t, "1200"))
	assert.Equal(t, "15.00", e.balance(t, "2200"))

	doc, err := e.st.GetDocument(ctx, ledger.DocumentSales, "INV-20")
	require.NoError(t, err)
	assert.Equal(t, "165.00", doc.Outstanding().StringFixed(2))

	_, err = e.poster.PurchaseInvoice(ctx, "buyer", PurchaseInvoice{Number: "BILL-1", Date: day, Supplier: "s-1", Subtotal: amt("80")})
	require.NoError(t, err)
	_, err = e.poster.PurchaseReturn(ctx, "buyer", PurchaseReturn{Number: "PR-1", Invoice: "BILL-1", Date: day, Supplier: "s-1", Amount: amt("80")})
	require.NoError(t, err)
	assert.Equal(t, "0.00", e.balance(t, "2100"))

	doc, err = e.st.GetDocument(ctx, ledger.DocumentPurchase, "BILL-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPaid, doc.Status)

	_, err = e.poster.SalesReturn(ctx, "clerk", SalesReturn{Number: "SR-2", Invoice: "INV-404", Date: day, Customer: "c-1", Subtotal: amt("1")})
	assert.ErrorIs(t, err, ledger.ErrDocumentNotFound)
}
