package trade

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting user is not a party to the
	// offer, or is a party without permission for the attempted action.
	ErrUnauthorized = errors.New("user is not authorized to perform this action")

	// ErrInvalidTransition is returned when the requested status change is
	// not an allowed edge of the offer state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotDeletable is returned when deleting an offer that has left the
	// pending state.
	ErrNotDeletable = errors.New("only pending offers can be deleted")

	// ErrDuplicateOffer is returned when an idempotency key has already been
	// claimed by an earlier submission.
	ErrDuplicateOffer = errors.New("duplicate offer submission")

	// ErrInvalidInput is the base error for malformed propose requests.
	// Callers wrap it with a detail message.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationKind categorizes a failed catalog check.
type ValidationKind string

const (
	ItemsNotFound       ValidationKind = "items_not_found"
	ItemsInactive       ValidationKind = "items_inactive"
	WrongOwnerOffered   ValidationKind = "wrong_owner_offered"
	WrongOwnerRequested ValidationKind = "wrong_owner_requested"
)

// ValidationError reports the first failed catalog check together with the
// complete set of offending item IDs.
type ValidationError struct {
	Kind    ValidationKind
	ItemIDs []int64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ItemsNotFound:
		return fmt.Sprintf("items not found: %v", e.ItemIDs)
	case ItemsInactive:
		return fmt.Sprintf("items are not active: %v", e.ItemIDs)
	case WrongOwnerOffered:
		return fmt.Sprintf("proposer does not own offered items: %v", e.ItemIDs)
	case WrongOwnerRequested:
		return fmt.Sprintf("receiver does not own requested items: %v", e.ItemIDs)
	default:
		return fmt.Sprintf("item validation failed: %v", e.ItemIDs)
	}
}
