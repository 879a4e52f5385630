package posting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simonvc/bookledger/internal/journal"
	"github.com/simonvc/bookledger/internal/ledger"
)

// settle applies amount to the paid total of an open document of partner. A
// negative amount undoes an earlier settlement. An empty number is a no-op.
func settle(ctx context.Context, tx *journal.Tx, kind ledger.DocumentKind, number string, partner ledger.Partner, amount decimal.Decimal) error {
	if number == "" {
		return nil
	}
	doc, err := tx.Store().GetDocument(ctx, kind, number)
	if err != nil {
		return fmt.Errorf("settle %s document %s: %w", kind, number, err)
	}
	if doc.Partner != partner {
		return ledger.Invalid("document", ledger.ErrInvalidPartner, "%s document %s belongs to %s, not %s", kind, number, doc.Partner, partner)
	}
	doc.ApplyPayment(amount)
	return tx.Store().UpdateDocumentSettlement(ctx, doc)
}
