package store

import (
	"context"
	"fmt"

	"github.com/simonvc/bookledger/internal/ledger"
)

// LoadSettings reads the concept registry. Rows naming unknown concepts are
// ignored.
func (r Reader) LoadSettings(ctx context.Context) (ledger.Settings, error) {
	var s ledger.Settings
	rows, err := r.q.QueryContext(ctx, `SELECT concept, account_id FROM account_settings ORDER BY concept`)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var concept, accountID string
		if err := rows.Scan(&concept, &accountID); err != nil {
			return s, fmt.Errorf("scan setting: %w", err)
		}
		c, err := ledger.ParseConcept(concept)
		if err != nil {
			continue
		}
		if err := s.Set(c, accountID); err != nil {
			return s, err
		}
	}
	return s, rows.Err()
}

func (t *Tx) UpsertSetting(ctx context.Context, concept ledger.Concept, accountID string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO account_settings (concept, account_id) VALUES (?, ?)
		 ON CONFLICT(concept) DO UPDATE SET account_id = excluded.account_id,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		string(concept), accountID,
	)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// InsertSettingIfMissing maps concept only when it has no mapping yet.
func (t *Tx) InsertSettingIfMissing(ctx context.Context, concept ledger.Concept, accountID string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO account_settings (concept, account_id) VALUES (?, ?) ON CONFLICT(concept) DO NOTHING`,
		string(concept), accountID,
	)
	if err != nil {
		return fmt.Errorf("insert setting: %w", err)
	}
	return nil
}

func (t *Tx) DeleteSetting(ctx context.Context, concept ledger.Concept) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM account_settings WHERE concept = ?`, string(concept))
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}
