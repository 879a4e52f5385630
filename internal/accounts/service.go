package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/logging"
	"github.com/simonvc/bookledger/internal/store"
)

// Service is the chart of accounts and the concept registry.
type Service struct {
	store *store.Store
	log   *zap.Logger
}

func New(st *store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: logging.OrNop(log).Named("accounts")}
}

// GetOrCreate returns the account with code, creating it from def when it
// does not exist yet. It never fails on a duplicate code.
func (s *Service) GetOrCreate(ctx context.Context, code string, def ledger.AccountDefaults) (*ledger.Account, error) {
	var acct *ledger.Account
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		acct, err = GetOrCreate(ctx, tx, s.log, code, def)
		return err
	})
	return acct, err
}

// GetOrCreate is the transaction-scoped form used by posting rules.
func GetOrCreate(ctx context.Context, tx *store.Tx, log *zap.Logger, code string, def ledger.AccountDefaults) (*ledger.Account, error) {
	existing, err := tx.GetAccountByCode(ctx, strings.TrimSpace(code))
	if err == nil {
		return existing, nil
	}
	if !ledger.IsNotFound(err) {
		return nil, err
	}
	if def.ParentID != "" {
		parent, err := tx.GetAccount(ctx, def.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent of %s: %w", code, err)
		}
		if t, err := ledger.NormalizeType(def.Type); err == nil && parent.Type != t {
			return nil, fmt.Errorf("%w: %s is %s, parent %s is %s", ledger.ErrParentTypeMismatch, code, t, parent.Code, parent.Type)
		}
	}
	acct, created, err := tx.GetOrCreateAccount(ctx, code, def)
	if err != nil {
		return nil, err
	}
	if created {
		logging.OrNop(log).Info("account provisioned",
			zap.String("code", acct.Code),
			zap.String("name", acct.Name),
			zap.String("type", string(acct.Type)),
		)
	}
	return acct, nil
}

// Create adds a new account. A duplicate code fails with ErrDuplicateAccount.
func (s *Service) Create(ctx context.Context, acct *ledger.Account) error {
	acct.Active = true
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		if acct.ParentID != "" {
			parent, err := tx.GetAccount(ctx, acct.ParentID)
			if err != nil {
				return fmt.Errorf("parent: %w", err)
			}
			if t, err := ledger.NormalizeType(acct.Type); err == nil && parent.Type != t {
				return fmt.Errorf("%w: parent %s is %s", ledger.ErrParentTypeMismatch, parent.Code, parent.Type)
			}
		}
		return tx.CreateAccount(ctx, acct)
	})
}

func (s *Service) Get(ctx context.Context, id string) (*ledger.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*ledger.Account, error) {
	return s.store.GetAccountByCode(ctx, code)
}

func (s *Service) List(ctx context.Context, filter store.AccountFilter) ([]ledger.Account, error) {
	return s.store.ListAccounts(ctx, filter)
}

// Delete removes an account that is neither system-protected nor referenced.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.DeleteAccount(ctx, id)
	})
}

// SetActive toggles whether new lines may be posted to the account.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.SetAccountActive(ctx, id, active)
	})
}

// ComputeBalance derives the balance of acct from posted history, up to and
// including asOf when given. It never reads drafts.
func (s *Service) ComputeBalance(ctx context.Context, acct *ledger.Account, asOf *time.Time) (decimal.Decimal, error) {
	return ComputeBalance(ctx, s.store.Reader, acct, asOf)
}

func ComputeBalance(ctx context.Context, r store.Reader, acct *ledger.Account, asOf *time.Time) (decimal.Decimal, error) {
	debits, credits, err := r.AccountSums(ctx, acct.ID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(acct.Type, acct.OpeningBalance, debits, credits), nil
}

// RefreshCurrentBalance recomputes the cached balance from the full posted
// history and persists it. Repeated calls converge on the same value.
func (s *Service) RefreshCurrentBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		bal, err = Refresh(ctx, tx, id)
		return err
	})
	return bal, err
}

// Refresh is the transaction-scoped form of RefreshCurrentBalance.
func Refresh(ctx context.Context, tx *store.Tx, id string) (decimal.Decimal, error) {
	acct, err := tx.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := ComputeBalance(ctx, tx.Reader, acct, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.SetCurrentBalance(ctx, id, bal); err != nil {
		return decimal.Zero, err
	}
	return bal, nil
}

// RefreshAll recomputes every cached balance.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	n := 0
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		accts, err := tx.ListAccounts(ctx, store.AccountFilter{})
		if err != nil {
			return err
		}
		for _, a := range accts {
			if _, err := Refresh(ctx, tx, a.ID); err != nil {
				return fmt.Errorf("refresh %s: %w", a.Code, err)
			}
			n++
		}
		return nil
	})
	return n, err
}

// FullCode joins the codes of the account's ancestors and its own code.
func (s *Service) FullCode(ctx context.Context, id string) (string, error) {
	chain, err := s.ancestry(ctx, id)
	if err != nil {
		return "", err
	}
	codes := make([]string, len(chain))
	for i, a := range chain {
		codes[len(chain)-1-i] = a.Code
	}
	return ledger.FullCode(codes...), nil
}

// ancestry returns the account followed by its parents, nearest first.
func (s *Service) ancestry(ctx context.Context, id string) ([]*ledger.Account, error) {
	var chain []*ledger.Account
	seen := map[string]bool{}
	for id != "" {
		if seen[id] {
			return nil, fmt.Errorf("account hierarchy cycle at %s", id)
		}
		seen[id] = true
		a, err := s.store.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, a)
		id = a.ParentID
	}
	return chain, nil
}

// RollupBalance is the account's own balance plus that of every descendant.
// Children are summed with their own sign convention; a child with a
// different type than its parent cannot exist.
func (s *Service) RollupBalance(ctx context.Context, id string, asOf *time.Time) (decimal.Decimal, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return s.rollup(ctx, acct, asOf, map[string]bool{})
}

func (s *Service) rollup(ctx context.Context, acct *ledger.Account, asOf *time.Time, seen map[string]bool) (decimal.Decimal, error) {
	if seen[acct.ID] {
		return decimal.Zero, fmt.Errorf("account hierarchy cycle at %s", acct.Code)
	}
	seen[acct.ID] = true

	total, err := s.ComputeBalance(ctx, acct, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	children, err := s.store.ListAccounts(ctx, store.AccountFilter{ParentID: acct.ID})
	if err != nil {
		return decimal.Zero, err
	}
	for i := range children {
		sub, err := s.rollup(ctx, &children[i], asOf, seen)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(sub)
	}
	return total, nil
}
