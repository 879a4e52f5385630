package store

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/ledger"
)

// AccountTotal is an account with its posted debit and credit sums.
type AccountTotal struct {
	Account ledger.Account
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// AccountTotals sums posted history per account, ordered by code.
func (r Reader) AccountTotals(ctx context.Context, asOf *time.Time) ([]AccountTotal, error) {
	dateCond := ``
	args := []any{}
	if asOf != nil {
		dateCond = ` AND e.entry_date <= ?`
		args = append(args, formatDate(*asOf))
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT a.id, a.code, a.name, a.type, a.subtype, a.active, a.is_system, a.opening_balance, a.current_balance,
			COALESCE(a.parent_id, ''), a.created_at,
			COALESCE(SUM(CASE WHEN e.id IS NOT NULL THEN l.debit END), 0),
			COALESCE(SUM(CASE WHEN e.id IS NOT NULL THEN l.credit END), 0)
		FROM accounts a
		LEFT JOIN journal_lines l ON l.account_id = a.id
		LEFT JOIN journal_entries e ON e.id = l.entry_id AND e.status IN ('posted', 'reversed')`+dateCond+`
		GROUP BY a.id
		ORDER BY a.code`, args...)
	if err != nil {
		return nil, fmt.Errorf("account totals query: %w", err)
	}
	defer rows.Close()

	var out []AccountTotal
	for rows.Next() {
		var at AccountTotal
		var active, isSystem int
		var opening, current, dr, cr int64
		var createdAt string
		a := &at.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Subtype, &active, &isSystem, &opening, &current,
			&a.ParentID, &createdAt, &dr, &cr); err != nil {
			return nil, fmt.Errorf("scan account totals: %w", err)
		}
		a.Active = active == 1
		a.IsSystem = isSystem == 1
		a.OpeningBalance = ledger.FromMinor(opening)
		a.CurrentBalance = ledger.FromMinor(current)
		a.CreatedAt = parseTime(createdAt)
		at.Debits = ledger.FromMinor(dr)
		at.Credits = ledger.FromMinor(cr)
		out = append(out, at)
	}
	return out, rows.Err()
}

// PartnerSums totals posted lines tagged with p.
func (r Reader) PartnerSums(ctx context.Context, p ledger.Partner, asOf *time.Time) (debits, credits decimal.Decimal, err error) {
	query := `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.partner_kind = ? AND l.partner_id = ? AND e.status IN ('posted', 'reversed')`
	args := []any{string(p.Kind), p.ID}
	if asOf != nil {
		query += ` AND e.entry_date <= ?`
		args = append(args, formatDate(*asOf))
	}

	var dr, cr int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&dr, &cr); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("partner sums: %w", err)
	}
	return ledger.FromMinor(dr), ledger.FromMinor(cr), nil
}

// PartnerLines streams the posted lines tagged with p in creation order. The
// cursor stays open until iteration stops. RunningBalance is left zero.
func (r Reader) PartnerLines(ctx context.Context, p ledger.Partner, rng ledger.DateRange) iter.Seq2[ledger.HistoryRow, error] {
	return func(yield func(ledger.HistoryRow, error) bool) {
		query := `SELECT l.id, e.id, e.number, e.entry_date, CASE WHEN l.description != '' THEN l.description ELSE e.description END,
				l.account_id, l.debit, l.credit
			FROM journal_lines l
			JOIN journal_entries e ON e.id = l.entry_id
			WHERE l.partner_kind = ? AND l.partner_id = ? AND e.status IN ('posted', 'reversed')`
		args := []any{string(p.Kind), p.ID}
		if !rng.From.IsZero() {
			query += ` AND e.entry_date >= ?`
			args = append(args, formatDate(rng.From))
		}
		if !rng.To.IsZero() {
			query += ` AND e.entry_date <= ?`
			args = append(args, formatDate(rng.To))
		}
		query += ` ORDER BY l.id`

		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			yield(ledger.HistoryRow{}, fmt.Errorf("partner lines: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var h ledger.HistoryRow
			var date string
			var dr, cr int64
			if err := rows.Scan(&h.LineID, &h.EntryID, &h.EntryNumber, &date, &h.Description, &h.AccountID, &dr, &cr); err != nil {
				yield(ledger.HistoryRow{}, fmt.Errorf("scan partner line: %w", err))
				return
			}
			h.Date = parseDate(date)
			h.Debit = ledger.FromMinor(dr)
			h.Credit = ledger.FromMinor(cr)
			if !yield(h, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.HistoryRow{}, err)
		}
	}
}
