package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/logging"
	"github.com/simonvc/bookledger/internal/store"
)

const defaultMaxAttempts = 3

// Service creates, posts and reverses journal entries. Every mutating call
// runs in one store transaction and takes the acting user explicitly.
type Service struct {
	store       *store.Store
	log         *zap.Logger
	numbering   ledger.Numbering
	now         func() time.Time
	maxAttempts int
}

type Option func(*Service)

// WithNumbering sets the reference number format.
func WithNumbering(n ledger.Numbering) Option {
	return func(s *Service) { s.numbering = n }
}

// WithClock replaces time.Now for posting timestamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st *store.Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:       st,
		log:         logging.OrNop(log).Named("journal"),
		numbering:   ledger.DefaultNumbering(),
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: defaultMaxAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run executes fn in one write transaction, retrying from scratch when a
// reference number collides.
func (s *Service) Run(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.store.WithTx(ctx, func(stx *store.Tx) error {
			return fn(s.InTx(stx))
		})
		if err == nil || !ledger.IsRetryable(err) {
			return err
		}
		s.log.Warn("retrying after number conflict", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}

// InTx binds the engine to an open transaction so it can be combined with
// other writes of the same business event.
func (s *Service) InTx(tx *store.Tx) *Tx {
	return &Tx{svc: s, tx: tx}
}

// CreateEntry validates and persists an entry with its lines. Posted drafts
// must balance; touched account balances are refreshed in the same
// transaction.
func (s *Service) CreateEntry(ctx context.Context, actor string, draft ledger.EntryDraft) (*ledger.JournalEntry, error) {
	var e *ledger.JournalEntry
	err := s.Run(ctx, func(tx *Tx) error {
		var err error
		e, err = tx.CreateEntry(ctx, actor, draft)
		return err
	})
	return e, err
}

// UpdateDraft replaces the header fields and lines of a draft entry.
func (s *Service) UpdateDraft(ctx context.Context, id, actor string, draft ledger.EntryDraft) (*ledger.JournalEntry, error) {
	var e *ledger.JournalEntry
	err := s.Run(ctx, func(tx *Tx) error {
		var err error
		e, err = tx.UpdateDraft(ctx, id, actor, draft)
		return err
	})
	return e, err
}

// Post moves a draft to posted.
func (s *Service) Post(ctx context.Context, id, actor string) (*ledger.JournalEntry, error) {
	var e *ledger.JournalEntry
	err := s.Run(ctx, func(tx *Tx) error {
		var err error
		e, err = tx.Post(ctx, id, actor)
		return err
	})
	return e, err
}

// Reverse writes the swapped copy of a posted entry and marks the original
// reversed. It returns the reversal entry.
func (s *Service) Reverse(ctx context.Context, id, actor string, opts ReverseOptions) (*ledger.JournalEntry, error) {
	var e *ledger.JournalEntry
	err := s.Run(ctx, func(tx *Tx) error {
		var err error
		e, err = tx.Reverse(ctx, id, actor, opts)
		return err
	})
	return e, err
}

func (s *Service) Get(ctx context.Context, id string) (*ledger.JournalEntry, error) {
	return s.store.GetEntry(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*ledger.JournalEntry, error) {
	return s.store.GetEntryByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, filter store.EntryFilter) ([]ledger.JournalEntry, error) {
	return s.store.ListEntries(ctx, filter)
}

// Numbering returns the reference number format in use.
func (s *Service) Numbering() ledger.Numbering { return s.numbering }

// Now returns the engine clock.
func (s *Service) Now() time.Time { return s.now() }
