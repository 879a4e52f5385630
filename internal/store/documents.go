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

const documentColumns = `id, kind, number, partner_kind, partner_id, doc_date, total, paid, status, COALESCE(entry_id, ''), created_at`

func (t *Tx) InsertDocument(ctx context.Context, d *ledger.Document) error {
	if d.ID == "" {
		d.ID = uuid.Must(uuid.NewV7()).String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = ledger.DocumentStatusFor(d.Total, d.Paid)
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO documents (id, kind, number, partner_kind, partner_id, doc_date, total, paid, status, entry_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.Kind), d.Number, string(d.Partner.Kind), d.Partner.ID, formatDate(d.Date),
		ledger.ToMinor(d.Total), ledger.ToMinor(d.Paid), string(d.Status), nullString(d.EntryID), formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.Number, err)
	}
	return nil
}

// UpdateDocumentSettlement persists Paid and Status of d.
func (t *Tx) UpdateDocumentSettlement(ctx context.Context, d *ledger.Document) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE documents SET paid = ?, status = ? WHERE id = ?`,
		ledger.ToMinor(d.Paid), string(d.Status), d.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return expectOne(res, ledger.ErrDocumentNotFound)
}

func (r Reader) GetDocument(ctx context.Context, kind ledger.DocumentKind, number string) (*ledger.Document, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE kind = ? AND number = ?`, string(kind), number)
	return scanDocument(row)
}

// OpenDocuments lists documents of a partner that still carry an outstanding
// amount, oldest first.
func (r Reader) OpenDocuments(ctx context.Context, p ledger.Partner) ([]ledger.Document, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE partner_kind = ? AND partner_id = ? AND status IN ('pending', 'partial')
		 ORDER BY doc_date, number`,
		string(p.Kind), p.ID)
	if err != nil {
		return nil, fmt.Errorf("open documents: %w", err)
	}
	defer rows.Close()

	var docs []ledger.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func scanDocument(row rowScanner) (*ledger.Document, error) {
	var d ledger.Document
	var date, createdAt string
	var total, paid int64
	err := row.Scan(&d.ID, &d.Kind, &d.Number, &d.Partner.Kind, &d.Partner.ID, &date, &total, &paid,
		&d.Status, &d.EntryID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.Date = parseDate(date)
	d.Total = ledger.FromMinor(total)
	d.Paid = ledger.FromMinor(paid)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}
