package posting

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/logging"
)

// Result is the outcome of a rule. Entry is nil when nothing was written:
// either the rule skipped on a missing mapping (Skipped, Missing set) or a
// reversal found nothing left to reverse.
type Result struct {
	Entry   *ledger.JournalEntry
	Skipped bool
	Missing ledger.Concept
}

// Poster turns business events into journal entries. Each method runs one
// business event in one transaction.
type Poster struct {
	journal *journal.Service
	log     *zap.Logger
	strict  bool
}

type Option func(*Poster)

// WithStrict makes a missing registry mapping an ErrMissingConfiguration
// error instead of a logged skip.
func WithStrict(strict bool) Option {
	return func(p *Poster) { p.strict = strict }
}

func New(j *journal.Service, log *zap.Logger, opts ...Option) *Poster {
	p := &Poster{journal: j, log: logging.OrNop(log).Named("posting")}
	for _, o := range opts {
		o(p)
	}
	return p
}

// builder maps a business fact onto an entry draft given the registry.
type builder func(s ledger.Settings) (ledger.EntryDraft, error)

// post resolves and writes one draft inside tx.
func (p *Poster) post(ctx context.Context, tx *journal.Tx, actor string, build builder) (Result, error) {
	settings, err := tx.Store().LoadSettings(ctx)
	if err != nil {
		return Result{}, err
	}
	draft, err := build(settings)
	if err != nil {
		return p.skip(err)
	}
	e, err := tx.CreateEntry(ctx, actor, draft)
	if err != nil {
		return Result{}, err
	}
	return Result{Entry: e}, nil
}

// skip downgrades a missing mapping to a logged skip unless strict.
func (p *Poster) skip(err error) (Result, error) {
	var missing *ledger.MissingConfigError
	if !errors.As(err, &missing) || p.strict {
		return Result{}, err
	}
	p.log.Warn("entry skipped, account mapping missing", zap.String("concept", string(missing.Concept)))
	return Result{Skipped: true, Missing: missing.Concept}, nil
}

// resolver looks concepts up in the registry and remembers the first one
// that was not mapped, so a builder can collect every account before
// checking.
type resolver struct {
	s       ledger.Settings
	missing ledger.Concept
}

func newResolver(s ledger.Settings) *resolver { return &resolver{s: s} }

// need returns the account for c, or "" and records c as missing.
func (r *resolver) need(c ledger.Concept) string {
	id, ok := r.s.Resolve(c)
	if !ok && r.missing == "" {
		r.missing = c
	}
	return id
}

// first returns the first mapped concept of cs; when none is mapped the
// first one is recorded as missing.
func (r *resolver) first(cs ...ledger.Concept) string {
	id, _, ok := r.s.ResolveFirst(cs...)
	if !ok && r.missing == "" && len(cs) > 0 {
		r.missing = cs[0]
	}
	return id
}

func (r *resolver) optional(c ledger.Concept) (string, bool) {
	return r.s.Resolve(c)
}

func (r *resolver) err() error {
	if r.missing == "" {
		return nil
	}
	return &ledger.MissingConfigError{Concept: r.missing}
}

// cashAccount selects the cash-equivalent account for a payment method. An
// explicit GL account, such as the one behind a bank account record, wins.
func (r *resolver) cashAccount(method PaymentMethod, glAccountID string) string {
	if glAccountID != "" {
		return glAccountID
	}
	if method == MethodCash {
		return r.need(ledger.ConceptCash)
	}
	return r.need(ledger.ConceptBank)
}
