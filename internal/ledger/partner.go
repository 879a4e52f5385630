package ledger

import (
	"fmt"
	"strings"
)

type PartnerKind string

const (
	PartnerNone     PartnerKind = ""
	PartnerCustomer PartnerKind = "customer"
	PartnerSupplier PartnerKind = "supplier"
	PartnerEmployee PartnerKind = "employee"
)

// Partner is the counterparty tag of a line. The zero value means no partner.
// It is a weak link: nothing cascades when the counterparty goes away.
type Partner struct {
	Kind PartnerKind `json:"kind,omitempty"`
	ID   string      `json:"id,omitempty"`
}

func Customer(id string) Partner { return Partner{Kind: PartnerCustomer, ID: id} }
func Supplier(id string) Partner { return Partner{Kind: PartnerSupplier, ID: id} }
func Employee(id string) Partner { return Partner{Kind: PartnerEmployee, ID: id} }

func (p Partner) IsZero() bool { return p.Kind == PartnerNone && p.ID == "" }

func (p Partner) String() string {
	if p.IsZero() {
		return "none"
	}
	return string(p.Kind) + ":" + p.ID
}

// Validate accepts the zero partner or a known kind with a non-empty ID.
func (p Partner) Validate() error {
	if p.IsZero() {
		return nil
	}
	switch p.Kind {
	case PartnerCustomer, PartnerSupplier, PartnerEmployee:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPartner, p.Kind)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidPartner, p.Kind)
	}
	return nil
}

// ParsePartner reads the "kind:id" form produced by String.
func ParsePartner(s string) (Partner, error) {
	if s == "" || s == "none" {
		return Partner{}, nil
	}
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Partner{}, fmt.Errorf("%w: %q, want kind:id", ErrInvalidPartner, s)
	}
	p := Partner{Kind: PartnerKind(kind), ID: id}
	if err := p.Validate(); err != nil {
		return Partner{}, err
	}
	return p, nil
}

// Receivable reports whether the partner's balance grows with debits.
// Customers are receivable-like; suppliers and employees are payable-like.
func (p Partner) Receivable() bool { return p.Kind == PartnerCustomer }
