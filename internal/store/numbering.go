package store

import (
	"context"
	"fmt"
)

// NextSeq allocates the next sequence for (prefix, period) inside the write
// transaction. The counter row is seeded from the highest sequence already
// used, so numbers written before the counter existed are never reissued.
func (t *Tx) NextSeq(ctx context.Context, prefix, period string) (int, error) {
	var seq int
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO number_sequences (prefix, period, last_seq)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) FROM journal_entries WHERE prefix = ? AND period = ?) + 1)
		 ON CONFLICT(prefix, period) DO UPDATE SET last_seq = last_seq + 1
		 RETURNING last_seq`,
		prefix, period, prefix, period,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate number %s-%s: %w", prefix, period, err)
	}
	return seq, nil
}

// MaxSeq returns the highest sequence used for (prefix, period).
func (r Reader) MaxSeq(ctx context.Context, prefix, period string) (int, error) {
	var seq int
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM journal_entries WHERE prefix = ? AND period = ?`,
		prefix, period).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
