package trade

import (
	"context"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/remote"
)

// Validator checks item existence and ownership against the catalog service.
type Validator struct {
	services remote.Services
}

func NewValidator(services remote.Services) *Validator {
	return &Validator{services: services}
}

// ValidateOwnership runs the catalog checks for a proposed trade in fixed
// order: existence, active state, offered-side ownership, requested-side
// ownership. The first failed check is reported with every offending item,
// and later checks are skipped. All items are validated in a single batched
// catalog call.
func (v *Validator) ValidateOwnership(ctx context.Context, offered, requested []int64, proposerID, receiverID string) error {
	all := make([]int64, 0, len(offered)+len(requested))
	all = append(all, offered...)
	all = append(all, requested...)

	verdicts, err := v.services.ValidateItems(ctx, all)
	if err != nil {
		return err
	}

	byID := make(map[int64]domain.ItemVerdict, len(verdicts))
	for _, vd := range verdicts {
		byID[vd.ItemID] = vd
	}

	var missing []int64
	for _, id := range all {
		if !byID[id].Exists {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Kind: ItemsNotFound, ItemIDs: missing}
	}

	var inactive []int64
	for _, id := range all {
		if !byID[id].IsActive {
			inactive = append(inactive, id)
		}
	}
	if len(inactive) > 0 {
		return &ValidationError{Kind: ItemsInactive, ItemIDs: inactive}
	}

	var wrongOffered []int64
	for _, id := range offered {
		if byID[id].OwnerID != proposerID {
			wrongOffered = append(wrongOffered, id)
		}
	}
	if len(wrongOffered) > 0 {
		return &ValidationError{Kind: WrongOwnerOffered, ItemIDs: wrongOffered}
	}

	var wrongRequested []int64
	for _, id := range requested {
		if byID[id].OwnerID != receiverID {
			wrongRequested = append(wrongRequested, id)
		}
	}
	if len(wrongRequested) > 0 {
		return &ValidationError{Kind: WrongOwnerRequested, ItemIDs: wrongRequested}
	}

	return nil
}
