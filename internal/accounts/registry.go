package accounts

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/simonvc/bookledger/internal/ledger"
	"github.com/simonvc/bookledger/internal/store"
)

// EnsureDefaultChart provisions the default chart and maps every concept
// that has no mapping yet to its default account. Existing accounts and
// mappings are left alone, so the call is safe to repeat.
func (s *Service) EnsureDefaultChart(ctx context.Context) (int, error) {
	created := 0
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		ids := make(map[string]string, len(ledger.DefaultChart))
		for _, e := range ledger.DefaultChart {
			parentID := ""
			if e.Parent != "" {
				parentID = ids[e.Parent]
			}
			acct, made, err := tx.GetOrCreateAccount(ctx, e.Code, e.Defaults(parentID))
			if err != nil {
				return fmt.Errorf("provision %s: %w", e.Code, err)
			}
			ids[e.Code] = acct.ID
			if made {
				created++
			}
			if e.Concept != "" {
				if err := tx.InsertSettingIfMissing(ctx, e.Concept, acct.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("default chart ensured", zap.Int("created", created))
	return created, nil
}

// Settings loads the concept registry.
func (s *Service) Settings(ctx context.Context) (ledger.Settings, error) {
	return s.store.LoadSettings(ctx)
}

// MapConcept points concept at the account with code.
func (s *Service) MapConcept(ctx context.Context, concept ledger.Concept, code string) error {
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		return mapConcept(ctx, tx, concept, code)
	})
}

func mapConcept(ctx context.Context, tx *store.Tx, concept ledger.Concept, code string) error {
	if _, err := ledger.ParseConcept(string(concept)); err != nil {
		return err
	}
	acct, err := tx.GetAccountByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("map %s to %s: %w", concept, code, err)
	}
	return tx.UpsertSetting(ctx, concept, acct.ID)
}

// UnmapConcept removes the mapping of concept. Rules needing it will skip.
func (s *Service) UnmapConcept(ctx context.Context, concept ledger.Concept) error {
	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.DeleteSetting(ctx, concept)
	})
}

// ApplyMappings binds a concept-name to account-code table, as read from the
// config file, in one transaction.
func (s *Service) ApplyMappings(ctx context.Context, mappings map[string]string) error {
	if len(mappings) == 0 {
		return nil
	}
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)

	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, name := range names {
			c, err := ledger.ParseConcept(name)
			if err != nil {
				return err
			}
			if err := mapConcept(ctx, tx, c, mappings[name]); err != nil {
				return err
			}
			s.log.Debug("concept mapped", zap.String("concept", name), zap.String("code", mappings[name]))
		}
		return nil
	})
}
