package query

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simonvc/bookledger/internal/accounts"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/logging"
	"github.com/simonvc/bookledger/internal/store"
)

// Service answers balance and sub-ledger questions from committed state.
type Service struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(st *store.Store, log *zap.Logger) *Service {
	return &Service{
		store: st,
		log:   logging.OrNop(log).Named("query"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AccountBalance is the signed balance of an account from posted history up
// to asOf, or all of it when asOf is nil.
func (s *Service) AccountBalance(ctx context.Context, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return accounts.ComputeBalance(ctx, s.store.Reader, acct, asOf)
}

// PartnerBalance sums the posted lines tagged with p. Customers owe
// debits minus credits; suppliers and employees are owed credits minus
// debits.
func (s *Service) PartnerBalance(ctx context.Context, p ledger.Partner, asOf *time.Time) (decimal.Decimal, error) {
	if err := checkPartner(p); err != nil {
		return decimal.Zero, err
	}
	dr, cr, err := s.store.PartnerSums(ctx, p, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.PartnerSigned(p, dr, cr), nil
}

// TransactionHistory streams the posted lines of p in creation order with a
// running balance. Each call starts again from zero; ranging stops early
// without leaking the cursor.
func (s *Service) TransactionHistory(ctx context.Context, p ledger.Partner, rng ledger.DateRange) iter.Seq2[ledger.HistoryRow, error] {
	return func(yield func(ledger.HistoryRow, error) bool) {
		if err := checkPartner(p); err != nil {
			yield(ledger.HistoryRow{}, err)
			return
		}
		running := decimal.Zero
		for row, err := range s.store.PartnerLines(ctx, p, rng) {
			if err != nil {
				yield(ledger.HistoryRow{}, err)
				return
			}
			running = running.Add(ledger.PartnerSigned(p, row.Debit, row.Credit))
			row.RunningBalance = running
			if !yield(row, nil) {
				return
			}
		}
	}
}

// AgingReport buckets the outstanding source documents of p by age as of
// asOf.
func (s *Service) AgingReport(ctx context.Context, p ledger.Partner, asOf time.Time) (ledger.AgingReport, error) {
	if err := checkPartner(p); err != nil {
		return ledger.AgingReport{}, err
	}
	docs, err := s.store.OpenDocuments(ctx, p)
	if err != nil {
		return ledger.AgingReport{}, err
	}
	return ledger.NewAgingReport(p, asOf, docs), nil
}

// PartnerSummary is the balance and aging of one partner at a date.
type PartnerSummary struct {
	Partner ledger.Partner
	Balance decimal.Decimal
	Aging   ledger.AgingReport
}

// Summary loads the balance and the aging report of p concurrently.
func (s *Service) Summary(ctx context.Context, p ledger.Partner, asOf time.Time) (*PartnerSummary, error) {
	sum := &PartnerSummary{Partner: p}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bal, err := s.PartnerBalance(ctx, p, &asOf)
		sum.Balance = bal
		return err
	})
	g.Go(func() error {
		aging, err := s.AgingReport(ctx, p, asOf)
		sum.Aging = aging
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !sum.Balance.Equal(sum.Aging.Total) {
		s.log.Debug("partner balance differs from open items",
			zap.String("partner", p.String()),
			zap.String("balance", sum.Balance.StringFixed(ledger.AmountScale)),
			zap.String("open_items", sum.Aging.Total.StringFixed(ledger.AmountScale)),
		)
	}
	return sum, nil
}

// TrialBalance lists every account with a non-zero balance on its natural
// side as of asOf.
func (s *Service) TrialBalance(ctx context.Context, asOf *time.Time) (*ledger.TrialBalance, error) {
	totals, err := s.store.AccountTotals(ctx, asOf)
	if err != nil {
		return nil, err
	}

	tb := &ledger.TrialBalance{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		AsOf:        asOf,
		GeneratedAt: s.now(),
	}
	for _, at := range totals {
		bal := ledger.Balance(at.Account.Type, at.Account.OpeningBalance, at.Debits, at.Credits)
		if bal.IsZero() {
			continue
		}
		line := ledger.TrialBalanceLineFor(at.Account, bal)
		tb.Lines = append(tb.Lines, line)
		tb.TotalDebit = tb.TotalDebit.Add(line.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(line.Credit)
	}
	tb.Balanced = tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThan(ledger.Epsilon)
	return tb, nil
}

func checkPartner(p ledger.Partner) error {
	if p.IsZero() {
		return ledger.Invalid("partner", ledger.ErrInvalidPartner, "a partner is required")
	}
	if err := p.Validate(); err != nil {
		return ledger.Invalid("partner", err, "%s", p)
	}
	return nil
}
