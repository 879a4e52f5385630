package journal

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/accounts"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/store"
)

// ReverseOptions customizes a reversal. Zero values use the engine clock and
// a description derived from the original.
type ReverseOptions struct {
	Date        time.Time
	Description string
}

// Tx is the journal engine bound to one store transaction.
type Tx struct {
	svc *Service
	tx  *store.Tx
}

// Store exposes the underlying transaction for writes that belong to the
// same business event.
func (t *Tx) Store() *store.Tx { return t.tx }

func (t *Tx) Now() time.Time { return t.svc.now() }

func (t *Tx) CreateEntry(ctx context.Context, actor string, draft ledger.EntryDraft) (*ledger.JournalEntry, error) {
	return t.create(ctx, actor, draft, "", "")
}

func (t *Tx) create(ctx context.Context, actor string, draft ledger.EntryDraft, prefix, reversalOf string) (*ledger.JournalEntry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := t.checkAccounts(ctx, draft.Lines, reversalOf == ""); err != nil {
		return nil, err
	}

	if prefix == "" {
		prefix = ledger.PrefixFor(draft.Type)
	}
	period := t.svc.numbering.PeriodOf(draft.Date)
	seq, err := t.tx.NextSeq(ctx, prefix, period)
	if err != nil {
		return nil, err
	}

	e := &ledger.JournalEntry{
		Number:      t.svc.numbering.Format(prefix, period, seq),
		Prefix:      prefix,
		Period:      period,
		Seq:         seq,
		Date:        draft.Date,
		Description: draft.Description,
		Reference:   draft.Reference,
		Type:        draft.Type,
		Status:      draft.Status,
		CreatedBy:   actor,
		CreatedAt:   t.svc.now(),
		ReversalOf:  reversalOf,
		SourceType:  draft.SourceType,
		SourceID:    draft.SourceID,
		Lines:       append([]ledger.Line(nil), draft.Lines...),
	}
	if e.Status == ledger.StatusPosted {
		at := t.svc.now()
		e.PostedBy = actor
		e.PostedAt = &at
	}

	if err := t.tx.InsertEntry(ctx, e); err != nil {
		return nil, err
	}
	if e.Status == ledger.StatusPosted {
		if err := t.refresh(ctx, e.AccountIDs()); err != nil {
			return nil, err
		}
	}

	t.svc.log.Info("entry created",
		zap.String("number", e.Number),
		zap.String("type", string(e.Type)),
		zap.String("status", string(e.Status)),
		zap.String("total", e.TotalDebit.StringFixed(ledger.AmountScale)),
		zap.String("actor", actor),
	)
	return e, nil
}

func (t *Tx) UpdateDraft(ctx context.Context, id, actor string, draft ledger.EntryDraft) (*ledger.JournalEntry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	e, err := t.tx.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != ledger.StatusDraft {
		return nil, &ledger.StateError{Entity: "journal entry", ID: e.Number, From: string(e.Status), To: string(ledger.StatusDraft)}
	}

	draft.Status = ledger.StatusDraft
	if draft.Type == "" {
		draft.Type = e.Type
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if err := t.checkAccounts(ctx, draft.Lines, true); err != nil {
		return nil, err
	}

	// A draft moved to another period or prefix takes a number from there.
	prefix, period := ledger.PrefixFor(draft.Type), t.svc.numbering.PeriodOf(draft.Date)
	if prefix != e.Prefix || period != e.Period {
		seq, err := t.tx.NextSeq(ctx, prefix, period)
		if err != nil {
			return nil, err
		}
		old := e.Number
		e.Prefix, e.Period, e.Seq = prefix, period, seq
		e.Number = t.svc.numbering.Format(prefix, period, seq)
		t.svc.log.Info("draft renumbered", zap.String("from", old), zap.String("to", e.Number))
	}

	e.Date = draft.Date
	e.Description = draft.Description
	e.Reference = draft.Reference
	e.Type = draft.Type
	e.SourceType = draft.SourceType
	e.SourceID = draft.SourceID
	e.Lines = append([]ledger.Line(nil), draft.Lines...)
	if err := t.tx.ReplaceDraft(ctx, e); err != nil {
		return nil, err
	}

	t.svc.log.Info("draft updated", zap.String("number", e.Number), zap.String("actor", actor))
	return e, nil
}

func (t *Tx) Post(ctx context.Context, id, actor string) (*ledger.JournalEntry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	e, err := t.tx.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckTransition(e, ledger.StatusPosted); err != nil {
		return nil, err
	}
	if len(e.Lines) < 2 {
		return nil, ledger.Invalid("lines", ledger.ErrTooFewLines, "got %d", len(e.Lines))
	}
	if err := ledger.CheckBalanced(ledger.Totals(e.Lines)); err != nil {
		return nil, err
	}
	if err := t.checkAccounts(ctx, e.Lines, true); err != nil {
		return nil, err
	}

	at := t.svc.now()
	if err := t.tx.MarkPosted(ctx, e.ID, actor, at); err != nil {
		return nil, err
	}
	e.Status = ledger.StatusPosted
	e.PostedBy = actor
	e.PostedAt = &at

	if err := t.refresh(ctx, e.AccountIDs()); err != nil {
		return nil, err
	}

	t.svc.log.Info("entry posted", zap.String("number", e.Number), zap.String("actor", actor))
	return e, nil
}

func (t *Tx) Reverse(ctx context.Context, id, actor string, opts ReverseOptions) (*ledger.JournalEntry, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	orig, err := t.tx.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckTransition(orig, ledger.StatusReversed); err != nil {
		return nil, err
	}

	date := opts.Date
	if date.IsZero() {
		date = t.svc.now()
	}
	rev, err := t.create(ctx, actor, ledger.ReversalDraft(orig, date, opts.Description), orig.Prefix, orig.ID)
	if err != nil {
		return nil, err
	}
	if err := t.tx.MarkReversed(ctx, orig.ID, rev.ID); err != nil {
		return nil, err
	}

	t.svc.log.Info("entry reversed",
		zap.String("number", orig.Number),
		zap.String("reversal", rev.Number),
		zap.String("actor", actor),
	)
	return rev, nil
}

// ReverseIfPosted reverses the entry when it is still posted. A missing or
// already reversed entry is a no-op returning a nil entry and nil error.
func (t *Tx) ReverseIfPosted(ctx context.Context, id, actor string, opts ReverseOptions) (*ledger.JournalEntry, error) {
	if id == "" {
		return nil, nil
	}
	orig, err := t.tx.GetEntry(ctx, id)
	if ledger.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if orig.Status != ledger.StatusPosted {
		t.svc.log.Debug("reversal skipped", zap.String("number", orig.Number), zap.String("status", string(orig.Status)))
		return nil, nil
	}
	return t.Reverse(ctx, id, actor, opts)
}

func (t *Tx) refresh(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := accounts.Refresh(ctx, t.tx, id); err != nil {
			return err
		}
	}
	return nil
}

// checkAccounts verifies that every line targets an existing account, and an
// active one unless requireActive is false (reversals).
func (t *Tx) checkAccounts(ctx context.Context, lines []ledger.Line, requireActive bool) error {
	for _, id := range distinct(lines) {
		acct, err := t.tx.GetAccount(ctx, id)
		if err != nil {
			return ledger.Invalid("lines", err, "account %s", id)
		}
		if requireActive && !acct.Active {
			return ledger.Invalid("lines", ledger.ErrAccountInactive, "account %s", acct.Code)
		}
	}
	return nil
}

func distinct(lines []ledger.Line) []string {
	e := ledger.JournalEntry{Lines: lines}
	return e.AccountIDs()
}

func checkActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return ledger.Invalid("actor", ledger.ErrMissingActor, "mutating calls need an actor")
	}
	return nil
}
