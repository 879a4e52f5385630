package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrMissingConfiguration = errors.New("account mapping not configured")
	ErrNumberConflict       = errors.New("reference number already allocated")
	ErrUnbalancedEntry      = errors.New("journal entry debits and credits do not balance")
	ErrInvalidLine          = errors.New("line must carry exactly one of debit or credit")
	ErrNegativeAmount       = errors.New("amounts must not be negative")
	ErrTooManyDecimals      = errors.New("amount has more than 2 decimal places")
	ErrAmountTooLarge       = errors.New("amount exceeds the largest storable value")
	ErrTooFewLines          = errors.New("journal entry must have at least 2 lines")
	ErrMissingActor         = errors.New("actor identity is required")
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrInvalidAccountCode   = errors.New("invalid account code")
	ErrInvalidPartner       = errors.New("invalid partner reference")
	ErrUnknownConcept       = errors.New("unknown account concept")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrEntryNotFound        = errors.New("journal entry not found")
	ErrDocumentNotFound     = errors.New("source document not found")
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrProtectedAccount     = errors.New("system accounts cannot be deleted")
	ErrAccountInUse         = errors.New("account is referenced by journal lines")
	ErrParentTypeMismatch   = errors.New("parent account type does not match")
)

// ValidationError is raised before anything is persisted. It wraps
// ErrValidation and, when set, a more specific cause.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "validation failed"
	if e.Field != "" {
		msg += " for " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// Invalid builds a ValidationError for field wrapping cause.
func Invalid(field string, cause error, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// StateError reports an illegal lifecycle transition on an entry or a
// business document.
type StateError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %q to %q", e.Entity, e.ID, e.From, e.To)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// MissingConfigError names the registry concept a posting rule could not
// resolve. It unwraps to ErrMissingConfiguration.
type MissingConfigError struct {
	Concept Concept
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfiguration, e.Concept)
}

func (e *MissingConfigError) Unwrap() error { return ErrMissingConfiguration }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInvalidState reports whether err is an illegal state transition.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsNotFound reports whether err is one of the lookup misses.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}

// IsRetryable reports whether the operation may succeed if attempted again.
func IsRetryable(err error) bool { return errors.Is(err, ErrNumberConflict) }
