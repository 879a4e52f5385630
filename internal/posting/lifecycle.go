package posting

import (
	"context"
	"slices"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

// flow is a linear document lifecycle: a status advances only to the one
// after it, and cancellation is allowed from a fixed set of statuses.
type flow[S ~string] struct {
	entity     string
	steps      []S
	terminal   S
	cancelFrom []S
}

// advance checks from -> to against the lifecycle.
func (f flow[S]) advance(id string, from, to S) error {
	for i := 0; i+1 < len(f.steps); i++ {
		if f.steps[i] == from && f.steps[i+1] == to {
			return nil
		}
	}
	return f.invalid(id, from, to)
}

// cancel checks that a document in from may be cancelled.
func (f flow[S]) cancel(id string, from S) error {
	if slices.Contains(f.cancelFrom, from) {
		return nil
	}
	return f.invalid(id, from, f.terminal)
}

func (f flow[S]) invalid(id string, from, to S) error {
	return &ledger.StateError{Entity: f.entity, ID: id, From: string(from), To: string(to)}
}

// reverseSource reverses the entry recorded for a business document. When
// the caller lost the entry id it falls back to the newest entry linked to
// the document. Nothing to reverse yields a nil entry.
func reverseSource(ctx context.Context, tx *journal.Tx, actor, entryID, sourceType, sourceID, reason string) (*ledger.JournalEntry, error) {
	if entryID == "" && sourceID != "" {
		e, err := tx.Store().LatestEntryForSource(ctx, sourceType, sourceID)
		switch {
		case err == nil:
			entryID = e.ID
		case !ledger.IsNotFound(err):
			return nil, err
		}
	}
	return tx.ReverseIfPosted(ctx, entryID, actor, journal.ReverseOptions{Description: reason})
}
