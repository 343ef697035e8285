package trade

import (
	"github.com/vietddude/swapmatch/internal/core/domain"
)

// transitionKey identifies one edge of the offer state machine.
type transitionKey struct {
	From domain.OfferStatus
	To   domain.OfferStatus
}

// ValidTransitions defines the allowed status changes and the roles permitted
// to perform each one. Any pair absent from the map is rejected.
var ValidTransitions = map[transitionKey][]domain.Role{
	{From: domain.OfferStatusPending, To: domain.OfferStatusCancelled}:  {domain.RoleProposer},
	{From: domain.OfferStatusPending, To: domain.OfferStatusAccepted}:   {domain.RoleReceiver},
	{From: domain.OfferStatusPending, To: domain.OfferStatusRejected}:   {domain.RoleReceiver},
	{From: domain.OfferStatusAccepted, To: domain.OfferStatusCompleted}: {domain.RoleProposer, domain.RoleReceiver},
}

// CanTransition checks whether role may move an offer from one status to
// another.
func CanTransition(from, to domain.OfferStatus, role domain.Role) bool {
	allowed, ok := ValidTransitions[transitionKey{From: from, To: to}]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
