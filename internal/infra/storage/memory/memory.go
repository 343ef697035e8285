package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/storage"
)

// MemoryStorage keeps offers in process memory. Used when no database is
// configured, and in tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	offers map[string]*domain.TradeOffer
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		offers: make(map[string]*domain.TradeOffer),
	}
}

// OfferRepo implements storage.OfferRepository in memory.
type OfferRepo struct {
	store *MemoryStorage
}

func NewOfferRepo(store *MemoryStorage) *OfferRepo {
	return &OfferRepo{store: store}
}

func cloneOffer(o *domain.TradeOffer) *domain.TradeOffer {
	clone := *o
	clone.OfferedItemIDs = append([]int64(nil), o.OfferedItemIDs...)
	clone.RequestedItemIDs = append([]int64(nil), o.RequestedItemIDs...)
	if o.RespondedAt != nil {
		t := *o.RespondedAt
		clone.RespondedAt = &t
	}
	return &clone
}

func (r *OfferRepo) Create(ctx context.Context, offer *domain.TradeOffer) (*domain.TradeOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	stored := cloneOffer(offer)
	stored.ID = uuid.NewString()
	stored.Status = domain.OfferStatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.RespondedAt = nil

	r.store.offers[stored.ID] = stored
	return cloneOffer(stored), nil
}

func (r *OfferRepo) GetByID(ctx context.Context, id string) (*domain.TradeOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	offer, ok := r.store.offers[id]
	if !ok {
		return nil, storage.ErrOfferNotFound
	}
	return cloneOffer(offer), nil
}

func (r *OfferRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OfferStatus) (*domain.TradeOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	offer, ok := r.store.offers[id]
	if !ok || offer.Status != from {
		return nil, storage.ErrStatusConflict
	}

	now := time.Now().UTC()
	offer.Status = to
	offer.UpdatedAt = now
	if offer.RespondedAt == nil &&
		(to == domain.OfferStatusAccepted || to == domain.OfferStatusRejected) {
		offer.RespondedAt = &now
	}
	return cloneOffer(offer), nil
}

func (r *OfferRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.offers[id]; !ok {
		return storage.ErrOfferNotFound
	}
	delete(r.store.offers, id)
	return nil
}

func (r *OfferRepo) List(ctx context.Context, filter storage.ListFilter) ([]*domain.TradeOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*domain.TradeOffer
	for _, o := range r.store.offers {
		if filter.UserID != "" && !matchesUser(o, filter) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, filter.Limit, filter.Offset), nil
}

func matchesUser(o *domain.TradeOffer, filter storage.ListFilter) bool {
	switch {
	case filter.AsProposer && !filter.AsReceiver:
		return o.ProposerID == filter.UserID
	case filter.AsReceiver && !filter.AsProposer:
		return o.ReceiverID == filter.UserID
	default:
		return o.ProposerID == filter.UserID || o.ReceiverID == filter.UserID
	}
}

func (r *OfferRepo) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.TradeOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*domain.TradeOffer
	for _, o := range r.store.offers {
		if containsItem(o.OfferedItemIDs, itemID) || containsItem(o.RequestedItemIDs, itemID) {
			matched = append(matched, o)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return page(matched, limit, offset), nil
}

func containsItem(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func page(offers []*domain.TradeOffer, limit, offset int) []*domain.TradeOffer {
	if offset >= len(offers) {
		return nil
	}
	offers = offers[offset:]
	if limit > 0 && limit < len(offers) {
		offers = offers[:limit]
	}

	out := make([]*domain.TradeOffer, 0, len(offers))
	for _, o := range offers {
		out = append(out, cloneOffer(o))
	}
	return out
}

func (r *OfferRepo) Stats(ctx context.Context, userID string) (*domain.OfferStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &domain.OfferStats{}
	for _, o := range r.store.offers {
		if o.ProposerID != userID && o.ReceiverID != userID {
			continue
		}
		stats.TotalOffers++
		switch o.Status {
		case domain.OfferStatusPending:
			stats.PendingOffers++
		case domain.OfferStatusAccepted:
			stats.AcceptedOffers++
		case domain.OfferStatusRejected:
			stats.RejectedOffers++
		case domain.OfferStatusCompleted:
			stats.CompletedOffers++
		}
	}
	return stats, nil
}

func (r *OfferRepo) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[domain.OfferStatus]int)
	for _, o := range r.store.offers {
		counts[o.Status]++
	}
	return counts, nil
}

func (r *OfferRepo) CountActiveProposers(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	proposers := make(map[string]struct{})
	for _, o := range r.store.offers {
		if o.Status == domain.OfferStatusPending || o.Status == domain.OfferStatusAccepted {
			proposers[o.ProposerID] = struct{}{}
		}
	}
	return len(proposers), nil
}
