package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simonvc/bookledger/internal/ledger"
)

const entryColumns = `id, number, prefix, period, seq, entry_date, description, reference, type, status,
	total_debit, total_credit, created_by, COALESCE(posted_by, ''), COALESCE(posted_at, ''),
	COALESCE(reversal_of, ''), COALESCE(reversed_by, ''), source_type, source_id, created_at`

// InsertEntry writes the header and lines of e. The header is inserted as a
// draft and, when e.Status is posted, flipped afterwards so the balance
// trigger checks the persisted lines.
func (t *Tx) InsertEntry(ctx context.Context, e *ledger.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.TotalDebit, e.TotalCredit = ledger.Totals(e.Lines)

	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO journal_entries (id, number, prefix, period, seq, entry_date, description, reference, type, status,
			total_debit, total_credit, created_by, reversal_of, source_type, source_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Number, e.Prefix, e.Period, e.Seq, formatDate(e.Date), e.Description, e.Reference, string(e.Type),
		ledger.ToMinor(e.TotalDebit), ledger.ToMinor(e.TotalCredit), e.CreatedBy, nullString(e.ReversalOf),
		e.SourceType, e.SourceID, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", mapConstraint(err))
	}

	if err := t.insertLines(ctx, e); err != nil {
		return err
	}

	if e.Status == ledger.StatusPosted {
		at := time.Now().UTC()
		if e.PostedAt != nil {
			at = *e.PostedAt
		}
		if err := t.MarkPosted(ctx, e.ID, e.PostedBy, at); err != nil {
			return err
		}
		e.PostedAt = &at
	}
	return nil
}

func (t *Tx) insertLines(ctx context.Context, e *ledger.JournalEntry) error {
	for i := range e.Lines {
		l := &e.Lines[i]
		l.EntryID = e.ID
		var id int64
		err := t.tx.QueryRowContext(ctx,
			`INSERT INTO journal_lines (entry_id, account_id, description, debit, credit, partner_kind, partner_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			e.ID, l.AccountID, l.Description, ledger.ToMinor(l.Debit), ledger.ToMinor(l.Credit),
			string(l.Partner.Kind), l.Partner.ID,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i, mapConstraint(err))
		}
		l.ID = id
	}
	return nil
}

// MarkPosted flips a draft to posted. The balance trigger rejects unbalanced
// lines.
func (t *Tx) MarkPosted(ctx context.Context, id, actor string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE journal_entries SET status = 'posted', posted_by = ?, posted_at = ? WHERE id = ?`,
		actor, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("post entry: %w", mapConstraint(err))
	}
	return expectOne(res, ledger.ErrEntryNotFound)
}

// MarkReversed flips a posted entry to reversed and links its reversal.
func (t *Tx) MarkReversed(ctx context.Context, id, reversalID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE journal_entries SET status = 'reversed', reversed_by = ? WHERE id = ?`, reversalID, id)
	if err != nil {
		return fmt.Errorf("reverse entry: %w", mapConstraint(err))
	}
	return expectOne(res, ledger.ErrEntryNotFound)
}

// ReplaceDraft rewrites the header fields, number and lines of a draft entry.
func (t *Tx) ReplaceDraft(ctx context.Context, e *ledger.JournalEntry) error {
	e.TotalDebit, e.TotalCredit = ledger.Totals(e.Lines)
	res, err := t.tx.ExecContext(ctx,
		`UPDATE journal_entries SET number = ?, prefix = ?, period = ?, seq = ?,
			entry_date = ?, description = ?, reference = ?, type = ?,
			total_debit = ?, total_credit = ?, source_type = ?, source_id = ?
		 WHERE id = ? AND status = 'draft'`,
		e.Number, e.Prefix, e.Period, e.Seq, formatDate(e.Date), e.Description, e.Reference, string(e.Type),
		ledger.ToMinor(e.TotalDebit), ledger.ToMinor(e.TotalCredit), e.SourceType, e.SourceID, e.ID)
	if err != nil {
		return fmt.Errorf("update draft: %w", mapConstraint(err))
	}
	if err := expectOne(res, ledger.ErrEntryNotFound); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM journal_lines WHERE entry_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear draft lines: %w", mapConstraint(err))
	}
	return t.insertLines(ctx, e)
}

func (r Reader) GetEntry(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, id)
	return r.entryWithLines(ctx, row)
}

func (r Reader) GetEntryByNumber(ctx context.Context, number string) (*ledger.JournalEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE number = ?`, number)
	return r.entryWithLines(ctx, row)
}

// LatestEntryForSource returns the newest non-reversal entry linked to a
// business document, or ErrEntryNotFound.
func (r Reader) LatestEntryForSource(ctx context.Context, sourceType, sourceID string) (*ledger.JournalEntry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries
		 WHERE source_type = ? AND source_id = ? AND reversal_of IS NULL
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, sourceType, sourceID)
	return r.entryWithLines(ctx, row)
}

func (r Reader) ListEntries(ctx context.Context, filter EntryFilter) ([]ledger.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.AccountID != "" {
		query += ` AND id IN (SELECT entry_id FROM journal_lines WHERE account_id = ?)`
		args = append(args, filter.AccountID)
	}
	if !filter.Range.From.IsZero() {
		query += ` AND entry_date >= ?`
		args = append(args, formatDate(filter.Range.From))
	}
	if !filter.Range.To.IsZero() {
		query += ` AND entry_date <= ?`
		args = append(args, formatDate(filter.Range.To))
	}

	query += ` ORDER BY entry_date, number` + limitClause(filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	var entries []ledger.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Lines are loaded after the header cursor is closed: inside a write
	// transaction there is only one connection.
	for i := range entries {
		lines, err := r.linesForEntry(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

func (r Reader) entryWithLines(ctx context.Context, row *sql.Row) (*ledger.JournalEntry, error) {
	e, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	e.Lines, err = r.linesForEntry(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r Reader) linesForEntry(ctx context.Context, entryID string) ([]ledger.Line, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, entry_id, account_id, description, debit, credit, partner_kind, partner_id
		 FROM journal_lines WHERE entry_id = ? ORDER BY id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		var l ledger.Line
		var dr, cr int64
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Description, &dr, &cr, &l.Partner.Kind, &l.Partner.ID); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.Debit = ledger.FromMinor(dr)
		l.Credit = ledger.FromMinor(cr)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanEntry(row rowScanner) (*ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var date, postedAt, createdAt string
	var dr, cr int64
	err := row.Scan(&e.ID, &e.Number, &e.Prefix, &e.Period, &e.Seq, &date, &e.Description, &e.Reference,
		&e.Type, &e.Status, &dr, &cr, &e.CreatedBy, &e.PostedBy, &postedAt,
		&e.ReversalOf, &e.ReversedBy, &e.SourceType, &e.SourceID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Date = parseDate(date)
	e.TotalDebit = ledger.FromMinor(dr)
	e.TotalCredit = ledger.FromMinor(cr)
	if postedAt != "" {
		t := parseTime(postedAt)
		e.PostedAt = &t
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}
