package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Create schema version table
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		// Chart of accounts. Amounts are integer cents.
		`CREATE TABLE IF NOT EXISTS accounts (
			id              TEXT PRIMARY KEY,
			code            TEXT NOT NULL UNIQUE,
			name            TEXT NOT NULL,
			type            TEXT NOT NULL CHECK (type IN ('asset','liability','equity','revenue','expense')),
			subtype         TEXT NOT NULL DEFAULT '',
			active          INTEGER NOT NULL DEFAULT 1,
			is_system       INTEGER NOT NULL DEFAULT 0,
			opening_balance INTEGER NOT NULL DEFAULT 0,
			current_balance INTEGER NOT NULL DEFAULT 0,
			parent_id       TEXT REFERENCES accounts(id),
			created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_type ON accounts(type)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_parent ON accounts(parent_id)`,

		// Journal entry headers
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id           TEXT PRIMARY KEY,
			number       TEXT NOT NULL UNIQUE,
			prefix       TEXT NOT NULL,
			period       TEXT NOT NULL,
			seq          INTEGER NOT NULL,
			entry_date   TEXT NOT NULL,
			description  TEXT NOT NULL,
			reference    TEXT NOT NULL DEFAULT '',
			type         TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft','posted','reversed')),
			total_debit  INTEGER NOT NULL DEFAULT 0,
			total_credit INTEGER NOT NULL DEFAULT 0,
			created_by   TEXT NOT NULL,
			posted_by    TEXT,
			posted_at    TEXT,
			reversal_of  TEXT REFERENCES journal_entries(id),
			reversed_by  TEXT REFERENCES journal_entries(id),
			source_type  TEXT NOT NULL DEFAULT '',
			source_id    TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_period ON journal_entries(prefix, period, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON journal_entries(entry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_source ON journal_entries(source_type, source_id)`,

		// Journal lines. The autoincrement id is the creation order.
		`CREATE TABLE IF NOT EXISTS journal_lines (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id     TEXT NOT NULL REFERENCES journal_entries(id),
			account_id   TEXT NOT NULL REFERENCES accounts(id),
			description  TEXT NOT NULL DEFAULT '',
			debit        INTEGER NOT NULL DEFAULT 0 CHECK (debit >= 0),
			credit       INTEGER NOT NULL DEFAULT 0 CHECK (credit >= 0),
			partner_kind TEXT NOT NULL DEFAULT '',
			partner_id   TEXT NOT NULL DEFAULT '',
			CHECK ((debit > 0 AND credit = 0) OR (debit = 0 AND credit > 0))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_entry ON journal_lines(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account ON journal_lines(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_partner ON journal_lines(partner_kind, partner_id)`,

		// Per (prefix, period) counters for reference numbers
		`CREATE TABLE IF NOT EXISTS number_sequences (
			prefix   TEXT NOT NULL,
			period   TEXT NOT NULL,
			last_seq INTEGER NOT NULL,
			PRIMARY KEY (prefix, period)
		)`,

		// Concept -> account registry
		`CREATE TABLE IF NOT EXISTS account_settings (
			concept    TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		// Open items for aging
		`CREATE TABLE IF NOT EXISTS documents (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL CHECK (kind IN ('sales','purchase')),
			number       TEXT NOT NULL,
			partner_kind TEXT NOT NULL,
			partner_id   TEXT NOT NULL,
			doc_date     TEXT NOT NULL,
			total        INTEGER NOT NULL CHECK (total >= 0),
			paid         INTEGER NOT NULL DEFAULT 0 CHECK (paid >= 0),
			status       TEXT NOT NULL CHECK (status IN ('pending','partial','paid','cancelled')),
			entry_id     TEXT REFERENCES journal_entries(id),
			created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			UNIQUE (kind, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_partner ON documents(partner_kind, partner_id, status)`,

		// Trigger: prevent posting an unbalanced entry
		`CREATE TRIGGER IF NOT EXISTS trg_check_balance
		BEFORE UPDATE OF status ON journal_entries
		WHEN NEW.status = 'posted' AND OLD.status = 'draft'
		BEGIN
			SELECT CASE
				WHEN (SELECT COUNT(*) FROM journal_lines WHERE entry_id = NEW.id) < 2
				THEN RAISE(ABORT, 'journal entry lines do not balance: fewer than two lines')
				WHEN (SELECT COALESCE(SUM(debit), 0) - COALESCE(SUM(credit), 0) FROM journal_lines WHERE entry_id = NEW.id) != 0
				THEN RAISE(ABORT, 'journal entry lines do not balance: debits != credits')
			END;
		END`,

		// Trigger: draft -> posted -> reversed only
		`CREATE TRIGGER IF NOT EXISTS trg_entry_status_transition
		BEFORE UPDATE OF status ON journal_entries
		WHEN NEW.status != OLD.status
			AND NOT ((OLD.status = 'draft' AND NEW.status = 'posted')
				OR (OLD.status = 'posted' AND NEW.status = 'reversed'))
		BEGIN
			SELECT RAISE(ABORT, 'illegal journal entry status transition');
		END`,

		// Trigger: posted headers keep their content
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_posted_entry
		BEFORE UPDATE ON journal_entries
		WHEN OLD.status != 'draft' AND (
			NEW.number != OLD.number OR
			NEW.entry_date != OLD.entry_date OR
			NEW.description != OLD.description OR
			NEW.total_debit != OLD.total_debit OR
			NEW.total_credit != OLD.total_credit)
		BEGIN
			SELECT RAISE(ABORT, 'posted journal entries are immutable');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_immutable_posted_entry_delete
		BEFORE DELETE ON journal_entries
		WHEN OLD.status != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'posted journal entries are immutable');
		END`,

		// Trigger: prevent adding lines to posted entries
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_insert
		BEFORE INSERT ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = NEW.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'lines of posted journal entries are immutable');
		END`,

		// Trigger: prevent deleting lines from posted entries
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_delete
		BEFORE DELETE ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = OLD.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'lines of posted journal entries are immutable');
		END`,

		// Trigger: prevent updating lines of posted entries
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_update
		BEFORE UPDATE ON journal_lines
		WHEN (SELECT status FROM journal_entries WHERE id = OLD.entry_id) != 'draft'
		BEGIN
			SELECT RAISE(ABORT, 'lines of posted journal entries are immutable');
		END`,

		// Trigger: system accounts are never hard-deleted
		`CREATE TRIGGER IF NOT EXISTS trg_protect_system_accounts
		BEFORE DELETE ON accounts
		WHEN OLD.is_system = 1
		BEGIN
			SELECT RAISE(ABORT, 'system accounts cannot be deleted');
		END`,

		// Record schema version
		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}

	return nil
}
