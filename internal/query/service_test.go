package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/accounts"
	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/posting"
	"github.com/simonvc/bookledger/internal/store"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func daysAgo(n int) time.Time { return asOf.AddDate(0, 0, -n) }

type env struct {
	st     *store.Store
	accts  *accounts.Service
	poster *posting.Poster
	query  *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "query.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := zap.NewNop()
	e := &env{
		st:     st,
		accts:  accounts.New(st, log),
		poster: posting.New(journal.New(st, log, journal.WithClock(func() time.Time { return asOf })), log),
		query:  New(st, log),
	}
	_, err = e.accts.EnsureDefaultChart(context.Background())
	require.NoError(t, err)
	return e
}

func (e *env) sell(t *testing.T, number string, date time.Time, customer, subtotal string) {
	t.Helper()
	_, err := e.poster.SalesInvoice(context.Background(), "clerk", posting.SalesInvoice{
		Number: number, Date: date, Customer: customer, Subtotal: amt(subtotal),
	})
	require.NoError(t, err)
}

func (e *env) receive(t *testing.T, id string, date time.Time, customer, amount, invoice string) {
	t.Helper()
	_, err := e.poster.CreateReceipt(context.Background(), "cashier", &posting.Receipt{
		ID: id, Date: date, Subtype: posting.ReceiveCustomerPayment, Partner: ledger.Customer(customer),
		Amount: amt(amount), Method: posting.MethodTransfer, Document: invoice,
	})
	require.NoError(t, err)
}

func TestPartnerBalance_SignByRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.sell(t, "INV-1", daysAgo(20), "c-1", "1080")
	e.receive(t, "rc-1", daysAgo(5), "c-1", "300", "INV-1")

	_, err := e.poster.PurchaseInvoice(ctx, "buyer", posting.PurchaseInvoice{Number: "B-1", Date: daysAgo(10), Supplier: "s-1", Subtotal: amt("400")})
	require.NoError(t, err)
	_, err = e.poster.CreatePayment(ctx, "cashier", &posting.Payment{ID: "pv-1", Date: daysAgo(2), Subtype: posting.PaySupplier,
		Partner: ledger.Supplier("s-1"), Amount: amt("150"), Method: posting.MethodTransfer})
	require.NoError(t, err)

	bal, err := e.query.PartnerBalance(ctx, ledger.Customer("c-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "780.00", bal.StringFixed(2))

	bal, err = e.query.PartnerBalance(ctx, ledger.Supplier("s-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "250.00", bal.StringFixed(2))

	before := daysAgo(6)
	bal, err = e.query.PartnerBalance(ctx, ledger.Customer("c-1"), &before)
	require.NoError(t, err)
	assert.Equal(t, "1080.00", bal.StringFixed(2))

	bal, err = e.query.PartnerBalance(ctx, ledger.Customer("nobody"), nil)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	_, err = e.query.PartnerBalance(ctx, ledger.Partner{}, nil)
	assert.True(t, ledger.IsValidation(err))
}

func TestTransactionHistory_RunningBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := ledger.Customer("c-1")

	// Entry dates deliberately out of creation order.
	e.sell(t, "INV-1", daysAgo(3), "c-1", "100")
	e.sell(t, "INV-2", daysAgo(30), "c-1", "50")
	e.receive(t, "rc-1", daysAgo(1), "c-1", "120", "")
	e.sell(t, "INV-3", daysAgo(2), "c-2", "999")

	collect := func(rng ledger.DateRange) []string {
		var out []string
		for row, err := range e.query.TransactionHistory(ctx, c, rng) {
			require.NoError(t, err)
			out = append(out, row.RunningBalance.StringFixed(2))
		}
		return out
	}

	assert.Equal(t, []string{"100.00", "150.00", "30.00"}, collect(ledger.DateRange{}))
	// Restartable: a second call reseeds at zero.
	assert.Equal(t, []string{"100.00", "150.00", "30.00"}, collect(ledger.DateRange{}))
	// The range filters rows; the running balance still starts at zero.
	assert.Equal(t, []string{"100.00", "-20.00"}, collect(ledger.DateRange{From: daysAgo(5)}))

	n := 0
	for _, err := range e.query.TransactionHistory(ctx, c, ledger.DateRange{}) {
		require.NoError(t, err)
		n++
		if n == 1 {
			break
		}
	}
	assert.Equal(t, 1, n)

	for _, err := range e.query.TransactionHistory(ctx, ledger.Partner{Kind: "vendor", ID: "x"}, ledger.DateRange{}) {
		assert.True(t, ledger.IsValidation(err))
	}
}

func TestAgingReport_Buckets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.sell(t, "INV-A", daysAgo(10), "c-1", "100")
	e.sell(t, "INV-B", daysAgo(45), "c-1", "200")
	e.sell(t, "INV-C", daysAgo(75), "c-1", "300")
	e.sell(t, "INV-D", daysAgo(120), "c-1", "400")
	e.sell(t, "INV-E", daysAgo(30), "c-1", "50")
	e.sell(t, "INV-F", daysAgo(31), "c-1", "60")
	e.receive(t, "rc-1", daysAgo(1), "c-1", "150", "INV-D")
	e.receive(t, "rc-2", daysAgo(1), "c-1", "50", "INV-E")
	e.sell(t, "INV-X", daysAgo(10), "c-2", "1000")

	r, err := e.query.AgingReport(ctx, ledger.Customer("c-1"), asOf)
	require.NoError(t, err)

	got := map[ledger.AgingBucket]string{}
	for b, v := range r.Buckets {
		got[b] = v.StringFixed(2)
	}
	assert.Equal(t, map[ledger.AgingBucket]string{
		ledger.BucketCurrent: "100.00",
		ledger.Bucket31To60:  "260.00",
		ledger.Bucket61To90:  "300.00",
		ledger.BucketOver90:  "250.00",
	}, got)
	assert.Equal(t, "910.00", r.Total.StringFixed(2))
	require.Len(t, r.Lines, 5)
	assert.Equal(t, "INV-D", r.Lines[0].Document.Number)
	assert.Equal(t, 120, r.Lines[0].DaysOld)

	// Aging and the ledger agree for the customer.
	bal, err := e.query.PartnerBalance(ctx, ledger.Customer("c-1"), nil)
	require.NoError(t, err)
	assert.True(t, bal.Equal(r.Total))
}

func TestSummary(t *testing.T) {
	e := newEnv(t)
	e.sell(t, "INV-1", daysAgo(40), "c-1", "75")

	sum, err := e.query.Summary(context.Background(), ledger.Customer("c-1"), asOf)
	require.NoError(t, err)
	assert.Equal(t, "75.00", sum.Balance.StringFixed(2))
	assert.Equal(t, "75.00", sum.Aging.Buckets[ledger.Bucket31To60].StringFixed(2))

	_, err = e.query.Summary(context.Background(), ledger.Partner{}, asOf)
	assert.True(t, ledger.IsValidation(err))
}

func TestAccountBalanceAndTrialBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.sell(t, "INV-1", daysAgo(40), "c-1", "500")
	e.receive(t, "rc-1", daysAgo(3), "c-1", "200", "INV-1")
	_, err := e.poster.Payroll(ctx, "hr", posting.Payroll{ID: "run", Date: daysAgo(3), Employee: "emp-1", Gross: amt("120"), Tax: amt("20")})
	require.NoError(t, err)

	ar, err := e.accts.GetByCode(ctx, "1200")
	require.NoError(t, err)
	bal, err := e.query.AccountBalance(ctx, ar.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "300.00", bal.StringFixed(2))

	cutoff := daysAgo(10)
	bal, err = e.query.AccountBalance(ctx, ar.ID, &cutoff)
	require.NoError(t, err)
	assert.Equal(t, "500.00", bal.StringFixed(2))

	_, err = e.query.AccountBalance(ctx, "missing", nil)
	assert.True(t, ledger.IsNotFound(err))

	tb, err := e.query.TrialBalance(ctx, nil)
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.Equal(t, "620.00", tb.TotalDebit.StringFixed(2))
	assert.Equal(t, "620.00", tb.TotalCredit.StringFixed(2))

	codes := map[string][2]string{}
	for _, l := range tb.Lines {
		codes[l.Code] = [2]string{l.Debit.StringFixed(2), l.Credit.StringFixed(2)}
	}
	assert.Equal(t, map[string][2]string{
		"1110": {"200.00", "0.00"},
		"1200": {"300.00", "0.00"},
		"2200": {"0.00", "20.00"},
		"2300": {"0.00", "100.00"},
		"4000": {"0.00", "500.00"},
		"6100": {"120.00", "0.00"},
	}, codes)

	tb, err = e.query.TrialBalance(ctx, &cutoff)
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.Equal(t, "500.00", tb.TotalDebit.StringFixed(2))
}
