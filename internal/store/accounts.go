package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/ledger"
)

const accountColumns = `id, code, name, type, subtype, active, is_system, opening_balance, current_balance, COALESCE(parent_id, ''), created_at`

func (t *Tx) CreateAccount(ctx context.Context, acct *ledger.Account) error {
	if acct.ID == "" {
		acct.ID = uuid.Must(uuid.NewV7()).String()
	}
	if err := acct.Validate(); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (id, code, name, type, subtype, active, is_system, opening_balance, current_balance, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Code, acct.Name, string(acct.Type), acct.Subtype, boolToInt(acct.Active), boolToInt(acct.IsSystem),
		ledger.ToMinor(acct.OpeningBalance), ledger.ToMinor(acct.OpeningBalance), nullString(acct.ParentID),
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", mapConstraint(err))
	}
	acct.CurrentBalance = acct.OpeningBalance
	return nil
}

// GetOrCreateAccount returns the account with code, creating it from
// defaults when absent. created reports whether this call inserted it. The
// defaults are only validated when they are used.
func (t *Tx) GetOrCreateAccount(ctx context.Context, code string, def ledger.AccountDefaults) (*ledger.Account, bool, error) {
	code = strings.TrimSpace(code)
	existing, err := t.GetAccountByCode(ctx, code)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, false, err
	}

	acct := &ledger.Account{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Code:           code,
		Name:           def.Name,
		Type:           def.Type,
		Subtype:        def.Subtype,
		Active:         true,
		IsSystem:       def.IsSystem,
		OpeningBalance: def.OpeningBalance,
		ParentID:       def.ParentID,
	}
	if err := acct.Validate(); err != nil {
		return nil, false, err
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (id, code, name, type, subtype, active, is_system, opening_balance, current_balance, parent_id)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		 ON CONFLICT(code) DO NOTHING`,
		acct.ID, acct.Code, acct.Name, string(acct.Type), acct.Subtype, boolToInt(acct.IsSystem),
		ledger.ToMinor(acct.OpeningBalance), ledger.ToMinor(acct.OpeningBalance), nullString(acct.ParentID),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert account %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("upsert account %s: %w", code, err)
	}

	got, err := t.GetAccountByCode(ctx, acct.Code)
	if err != nil {
		return nil, false, err
	}
	return got, n == 1, nil
}

func (t *Tx) SetCurrentBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ? WHERE id = ?`, ledger.ToMinor(balance), id)
	if err != nil {
		return fmt.Errorf("update current balance: %w", err)
	}
	return expectOne(res, ledger.ErrAccountNotFound)
}

func (t *Tx) SetAccountActive(ctx context.Context, id string, active bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return expectOne(res, ledger.ErrAccountNotFound)
}

func (t *Tx) DeleteAccount(ctx context.Context, id string) error {
	acct, err := t.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if acct.IsSystem {
		return fmt.Errorf("%w: %s", ledger.ErrProtectedAccount, acct.Code)
	}

	// Refuse if any line, child or mapping references the account
	var count int
	err = t.tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM journal_lines WHERE account_id = ?)
		      + (SELECT COUNT(*) FROM accounts WHERE parent_id = ?)
		      + (SELECT COUNT(*) FROM account_settings WHERE account_id = ?)`,
		id, id, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("check references: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s has %d references", ledger.ErrAccountInUse, acct.Code, count)
	}

	_, err = t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", mapConstraint(err))
	}
	return nil
}

func (r Reader) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r Reader) GetAccountByCode(ctx context.Context, code string) (*ledger.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = ?`, code)
	return scanAccount(row)
}

func (r Reader) ListAccounts(ctx context.Context, filter AccountFilter) ([]ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.IsSystem != nil {
		query += ` AND is_system = ?`
		args = append(args, boolToInt(*filter.IsSystem))
	}
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	if filter.ParentID != "" {
		query += ` AND parent_id = ?`
		args = append(args, filter.ParentID)
	}

	query += ` ORDER BY code` + limitClause(filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// AccountSums totals the debits and credits of posted history on an account,
// optionally up to and including asOf. Reversed entries count: their
// reversal carries the offsetting lines.
func (r Reader) AccountSums(ctx context.Context, accountID string, asOf *time.Time) (debits, credits decimal.Decimal, err error) {
	query := `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = ? AND e.status IN ('posted', 'reversed')`
	args := []any{accountID}
	if asOf != nil {
		query += ` AND e.entry_date <= ?`
		args = append(args, formatDate(*asOf))
	}

	var dr, cr int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&dr, &cr); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("account sums: %w", err)
	}
	return ledger.FromMinor(dr), ledger.FromMinor(cr), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var acct ledger.Account
	var active, isSystem int
	var opening, current int64
	var createdAt string
	err := row.Scan(&acct.ID, &acct.Code, &acct.Name, &acct.Type, &acct.Subtype, &active, &isSystem,
		&opening, &current, &acct.ParentID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	acct.Active = active == 1
	acct.IsSystem = isSystem == 1
	acct.OpeningBalance = ledger.FromMinor(opening)
	acct.CurrentBalance = ledger.FromMinor(current)
	acct.CreatedAt = parseTime(createdAt)
	return &acct, nil
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
