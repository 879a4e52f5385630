package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonvc/bookledger/internal/ledger"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func mkAccounts(t *testing.T, s *Store) (cash, revenue *ledger.Account) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		var err error
		cash, _, err = tx.GetOrCreateAccount(ctx, "1100", ledger.AccountDefaults{Name: "Cash", Type: ledger.TypeAsset})
		if err != nil {
			return err
		}
		revenue, _, err = tx.GetOrCreateAccount(ctx, "4000", ledger.AccountDefaults{Name: "Revenue", Type: ledger.TypeRevenue})
		return err
	}))
	return cash, revenue
}

func insertEntry(t *testing.T, s *Store, status ledger.EntryStatus, lines ...ledger.Line) *ledger.JournalEntry {
	t.Helper()
	ctx := context.Background()
	e := &ledger.JournalEntry{
		Date:        day,
		Description: "sale",
		Type:        ledger.EntryManual,
		Status:      status,
		CreatedBy:   "tester",
		PostedBy:    "tester",
		Lines:       lines,
	}
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		e.Prefix, e.Period = "JE", "202503"
		seq, err := tx.NextSeq(ctx, e.Prefix, e.Period)
		if err != nil {
			return err
		}
		e.Seq = seq
		e.Number = ledger.DefaultNumbering().Format(e.Prefix, e.Period, seq)
		return tx.InsertEntry(ctx, e)
	}))
	return e
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.reader.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetOrCreateAccount_Idempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var first, second *ledger.Account
	var created1, created2 bool
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		var err error
		first, created1, err = tx.GetOrCreateAccount(ctx, "6000", ledger.AccountDefaults{Name: "General", Type: ledger.TypeExpense})
		if err != nil {
			return err
		}
		second, created2, err = tx.GetOrCreateAccount(ctx, "6000", ledger.AccountDefaults{Name: "Other name", Type: ledger.TypeAsset})
		return err
	}))
	assert.True(t, created1)
	assert.False(t, created2)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "General", second.Name)
	assert.Equal(t, ledger.TypeExpense, second.Type)
}

func TestGetOrCreateAccount_ExistingIgnoresDefaults(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	mkAccounts(t, s)

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		got, created, err := tx.GetOrCreateAccount(ctx, "1100", ledger.AccountDefaults{})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "1100", got.Code)

		_, _, err = tx.GetOrCreateAccount(ctx, " 1100 ", ledger.AccountDefaults{Name: "x", Type: "bogus"})
		require.NoError(t, err)

		_, _, err = tx.GetOrCreateAccount(ctx, "1999", ledger.AccountDefaults{})
		assert.True(t, ledger.IsValidation(err), "new accounts still need valid defaults")
		return nil
	}))
}

func TestCreateAccount_DuplicateCode(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	mkAccounts(t, s)
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.CreateAccount(ctx, &ledger.Account{Code: "1100", Name: "Dup", Type: ledger.TypeAsset, Active: true})
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateAccount)
}

func TestInsertEntry_PostedAndSums(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)

	e := insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("125.50"), ""),
		ledger.CreditLine(rev.ID, amt("125.50"), ""),
	)
	assert.Equal(t, "JE-202503-0001", e.Number)

	got, err := s.GetEntryByNumber(ctx, e.Number)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, got.Status)
	assert.Equal(t, "tester", got.PostedBy)
	require.NotNil(t, got.PostedAt)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.TotalDebit.Equal(amt("125.50")))
	assert.Less(t, got.Lines[0].ID, got.Lines[1].ID)

	dr, cr, err := s.AccountSums(ctx, cash.ID, nil)
	require.NoError(t, err)
	assert.True(t, dr.Equal(amt("125.50")))
	assert.True(t, cr.IsZero())

	before := day.AddDate(0, 0, -1)
	dr, _, err = s.AccountSums(ctx, cash.ID, &before)
	require.NoError(t, err)
	assert.True(t, dr.IsZero())
}

func TestInsertEntry_DraftExcludedFromSums(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)

	insertEntry(t, s, ledger.StatusDraft,
		ledger.DebitLine(cash.ID, amt("10"), ""),
		ledger.CreditLine(rev.ID, amt("10"), ""),
	)
	dr, cr, err := s.AccountSums(ctx, cash.ID, nil)
	require.NoError(t, err)
	assert.True(t, dr.IsZero())
	assert.True(t, cr.IsZero())
}

func TestTrigger_RejectsUnbalancedPost(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)

	e := insertEntry(t, s, ledger.StatusDraft,
		ledger.DebitLine(cash.ID, amt("10"), ""),
		ledger.CreditLine(rev.ID, amt("9"), ""),
	)
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.MarkPosted(ctx, e.ID, "tester", time.Now())
	})
	assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry)

	got, err := s.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, got.Status)
}

func TestTrigger_PostedLinesImmutable(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)

	e := insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("10"), ""),
		ledger.CreditLine(rev.ID, amt("10"), ""),
	)
	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx, `UPDATE journal_lines SET debit = 999 WHERE entry_id = ?`, e.ID)
		return mapConstraint(err)
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceDraft(ctx, e)
	})
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestTrigger_StatusTransitions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)

	draft := insertEntry(t, s, ledger.StatusDraft,
		ledger.DebitLine(cash.ID, amt("10"), ""),
		ledger.CreditLine(rev.ID, amt("10"), ""),
	)
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.MarkReversed(ctx, draft.ID, draft.ID)
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestTrigger_ProtectsSystemAccounts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	var sys *ledger.Account
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		var err error
		sys, _, err = tx.GetOrCreateAccount(ctx, "2200", ledger.AccountDefaults{Name: "Tax", Type: ledger.TypeLiability, IsSystem: true})
		return err
	}))
	err := s.WithTx(ctx, func(tx *Tx) error { return tx.DeleteAccount(ctx, sys.ID) })
	assert.ErrorIs(t, err, ledger.ErrProtectedAccount)

	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, sys.ID)
		return mapConstraint(err)
	})
	assert.ErrorIs(t, err, ledger.ErrProtectedAccount)
}

func TestDeleteAccount_InUse(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)
	insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("1"), ""),
		ledger.CreditLine(rev.ID, amt("1"), ""),
	)
	err := s.WithTx(ctx, func(tx *Tx) error { return tx.DeleteAccount(ctx, cash.ID) })
	assert.ErrorIs(t, err, ledger.ErrAccountInUse)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, _, err := tx.GetOrCreateAccount(ctx, "9999", ledger.AccountDefaults{Name: "Temp", Type: ledger.TypeAsset}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetAccountByCode(ctx, "9999")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestNextSeq_SeedsFromExisting(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)
	insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("1"), ""),
		ledger.CreditLine(rev.ID, amt("1"), ""),
	)

	// Drop the counter to simulate entries written before it existed.
	_, err := s.writer.Exec(`DELETE FROM number_sequences`)
	require.NoError(t, err)

	var seq int
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		var err error
		seq, err = tx.NextSeq(ctx, "JE", "202503")
		return err
	}))
	assert.Equal(t, 2, seq)
}

func TestInsertEntry_DuplicateNumberIsConflict(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)
	e := insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("1"), ""),
		ledger.CreditLine(rev.ID, amt("1"), ""),
	)
	err := s.WithTx(ctx, func(tx *Tx) error {
		dup := &ledger.JournalEntry{
			Number: e.Number, Prefix: e.Prefix, Period: e.Period, Seq: e.Seq,
			Date: day, Description: "dup", Type: ledger.EntryManual, Status: ledger.StatusDraft, CreatedBy: "x",
			Lines: []ledger.Line{
				ledger.DebitLine(cash.ID, amt("1"), ""),
				ledger.CreditLine(rev.ID, amt("1"), ""),
			},
		}
		return tx.InsertEntry(ctx, dup)
	})
	assert.ErrorIs(t, err, ledger.ErrNumberConflict)
	assert.True(t, ledger.IsRetryable(err))
}

func TestSettings_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, _ := mkAccounts(t, s)

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertSetting(ctx, ledger.ConceptCash, cash.ID); err != nil {
			return err
		}
		return tx.InsertSettingIfMissing(ctx, ledger.ConceptCash, "ignored")
	}))
	settings, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	id, ok := settings.Resolve(ledger.ConceptCash)
	assert.True(t, ok)
	assert.Equal(t, cash.ID, id)

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.DeleteSetting(ctx, ledger.ConceptCash) }))
	settings, err = s.LoadSettings(ctx)
	require.NoError(t, err)
	_, ok = settings.Resolve(ledger.ConceptCash)
	assert.False(t, ok)
}

func TestPartnerLines_CreationOrder(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)
	c := ledger.Customer("c-1")

	insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("100"), "").WithPartner(c),
		ledger.CreditLine(rev.ID, amt("100"), ""),
	)
	insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(rev.ID, amt("30"), ""),
		ledger.CreditLine(cash.ID, amt("30"), "").WithPartner(c),
	)
	insertEntry(t, s, ledger.StatusDraft,
		ledger.DebitLine(cash.ID, amt("5"), "").WithPartner(c),
		ledger.CreditLine(rev.ID, amt("5"), ""),
	)

	var rows []ledger.HistoryRow
	for row, err := range s.PartnerLines(ctx, c, ledger.DateRange{}) {
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Debit.Equal(amt("100")))
	assert.True(t, rows[1].Credit.Equal(amt("30")))

	dr, cr, err := s.PartnerSums(ctx, c, nil)
	require.NoError(t, err)
	assert.True(t, dr.Equal(amt("100")))
	assert.True(t, cr.Equal(amt("30")))
}

func TestDocuments_OpenItems(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	c := ledger.Customer("c-9")

	doc := &ledger.Document{Kind: ledger.DocumentSales, Number: "SI-1", Partner: c, Date: day, Total: amt("100"), Paid: decimal.Zero}
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.InsertDocument(ctx, doc) }))
	assert.Equal(t, ledger.DocumentPending, doc.Status)

	docs, err := s.OpenDocuments(ctx, c)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc.ApplyPayment(amt("100"))
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error { return tx.UpdateDocumentSettlement(ctx, doc) }))
	docs, err = s.OpenDocuments(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, docs)

	got, err := s.GetDocument(ctx, ledger.DocumentSales, "SI-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPaid, got.Status)
}

func TestAccountTotals(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	cash, rev := mkAccounts(t, s)
	insertEntry(t, s, ledger.StatusPosted,
		ledger.DebitLine(cash.ID, amt("40"), ""),
		ledger.CreditLine(rev.ID, amt("40"), ""),
	)
	insertEntry(t, s, ledger.StatusDraft,
		ledger.DebitLine(cash.ID, amt("7"), ""),
		ledger.CreditLine(rev.ID, amt("7"), ""),
	)

	totals, err := s.AccountTotals(ctx, nil)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "1100", totals[0].Account.Code)
	assert.True(t, totals[0].Debits.Equal(amt("40")))
	assert.True(t, totals[1].Credits.Equal(amt("40")))
}
