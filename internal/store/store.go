package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/simonvc/bookledger/internal/ledger"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type AccountFilter struct {
	Type       ledger.AccountType
	IsSystem   *bool
	ActiveOnly bool
	ParentID   string
	Limit      int
	Offset     int
}

type EntryFilter struct {
	Status    ledger.EntryStatus
	Type      ledger.EntryType
	AccountID string
	Range     ledger.DateRange
	Limit     int
	Offset    int
}

// Reader holds the read queries. Store embeds one bound to the reader pool,
// Tx embeds one bound to the open write transaction.
type Reader struct {
	q querier
}

type Store struct {
	Reader
	writer *sql.DB
	reader *sql.DB
}

// Tx is an open write transaction. All writes of one business event go
// through a single Tx.
type Tx struct {
	Reader
	tx *sql.Tx
}

func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	writer, err := sql.Open("sqlite", dsn+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{Reader: Reader{q: reader}, writer: writer, reader: reader}

	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	err1 := s.writer.Close()
	err2 := s.reader.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// WithTx runs fn inside one write transaction. fn's error rolls everything
// back; nothing is visible to readers until commit.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{Reader: Reader{q: sqlTx}, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapConstraint(err))
	}
	return nil
}

// mapConstraint translates SQLite constraint failures into ledger errors.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || strings.Contains(msg, "UNIQUE constraint failed") {
		switch {
		case strings.Contains(msg, "journal_entries.number"):
			return fmt.Errorf("%w: %v", ledger.ErrNumberConflict, err)
		case strings.Contains(msg, "accounts.code"):
			return fmt.Errorf("%w: %v", ledger.ErrDuplicateAccount, err)
		}
	}
	switch {
	case strings.Contains(msg, "do not balance"):
		return fmt.Errorf("%w: %v", ledger.ErrUnbalancedEntry, err)
	case strings.Contains(msg, "status transition"), strings.Contains(msg, "immutable"):
		return fmt.Errorf("%w: %v", ledger.ErrInvalidState, err)
	case strings.Contains(msg, "system accounts"):
		return fmt.Errorf("%w: %v", ledger.ErrProtectedAccount, err)
	}
	return err
}

const timeLayout = time.RFC3339Nano
const dateLayout = "2006-01-02"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset > 0 {
		return fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, offset)
	}
	return fmt.Sprintf(` LIMIT %d`, limit)
}
