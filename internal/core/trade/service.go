package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/remote"
	"github.com/vietddude/swapmatch/internal/infra/storage"
	"github.com/vietddude/swapmatch/internal/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	maxUserIDLen  = 100
	maxMessageLen = 1000
)

// Guard filters duplicate offer submissions by idempotency key. A nil guard
// disables duplicate detection.
type Guard interface {
	ReserveIdempotencyKey(ctx context.Context, key string) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// ProposeRequest carries the input for a new trade offer.
type ProposeRequest struct {
	ProposerID       string
	ReceiverID       string
	OfferedItemIDs   []int64
	RequestedItemIDs []int64
	Message          string
	IdempotencyKey   string
}

// Service coordinates offer creation, lifecycle transitions, and the side
// effects that follow committed state changes.
type Service struct {
	repo      storage.OfferRepository
	validator *Validator
	services  remote.Services
	guard     Guard
}

func NewService(repo storage.OfferRepository, services remote.Services, guard Guard) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(services),
		services:  services,
		guard:     guard,
	}
}

// Propose validates and persists a new trade offer in pending state.
func (s *Service) Propose(ctx context.Context, req ProposeRequest) (*domain.TradeOffer, error) {
	if err := validateProposeInput(req); err != nil {
		return nil, err
	}

	if s.guard != nil && req.IdempotencyKey != "" {
		ok, err := s.guard.ReserveIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			slog.Warn("Idempotency guard unavailable, accepting submission without it",
				"key", req.IdempotencyKey,
				"error", err)
		} else if !ok {
			metrics.DuplicateCreates.Inc()
			return nil, ErrDuplicateOffer
		}
	}

	if err := s.validator.ValidateOwnership(ctx, req.OfferedItemIDs, req.RequestedItemIDs, req.ProposerID, req.ReceiverID); err != nil {
		s.releaseKey(ctx, req.IdempotencyKey)
		return nil, err
	}

	offer, err := s.repo.Create(ctx, &domain.TradeOffer{
		ProposerID:       req.ProposerID,
		ReceiverID:       req.ReceiverID,
		OfferedItemIDs:   req.OfferedItemIDs,
		RequestedItemIDs: req.RequestedItemIDs,
		Message:          req.Message,
	})
	if err != nil {
		s.releaseKey(ctx, req.IdempotencyKey)
		return nil, fmt.Errorf("create offer: %w", err)
	}

	metrics.OffersCreated.Inc()
	slog.Info("Trade offer created",
		"offer", offer.ID,
		"proposer", offer.ProposerID,
		"receiver", offer.ReceiverID)
	return offer, nil
}

// releaseKey frees a reserved idempotency key after a failed create so the
// client can retry with the same key.
func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.guard == nil || key == "" {
		return
	}
	if err := s.guard.ReleaseIdempotencyKey(context.WithoutCancel(ctx), key); err != nil {
		slog.Warn("Failed to release idempotency key", "key", key, "error", err)
	}
}

// Transition moves an offer to a new status on behalf of actorID. The change
// is applied as a conditional write. When a concurrent transition wins the
// race, the committed state is re-read and the request is re-evaluated
// against it once.
func (s *Service) Transition(ctx context.Context, offerID string, newStatus domain.OfferStatus, actorID string) (*domain.TradeOffer, error) {
	offer, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyTransition(ctx, offer, newStatus, actorID)
	if errors.Is(err, storage.ErrStatusConflict) {
		offer, err = s.repo.GetByID(ctx, offerID)
		if err != nil {
			return nil, err
		}
		updated, err = s.applyTransition(ctx, offer, newStatus, actorID)
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, ErrInvalidTransition
		}
	}
	return updated, err
}

func (s *Service) applyTransition(ctx context.Context, offer *domain.TradeOffer, newStatus domain.OfferStatus, actorID string) (*domain.TradeOffer, error) {
	role := offer.RoleOf(actorID)
	if role == domain.RoleNone {
		return nil, ErrUnauthorized
	}
	if !CanTransition(offer.Status, newStatus, role) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, offer.ID, offer.Status, newStatus)
	if err != nil {
		return nil, err
	}

	metrics.OfferTransitions.WithLabelValues(string(newStatus)).Inc()
	slog.Info("Trade offer transitioned",
		"offer", updated.ID,
		"from", offer.Status,
		"to", newStatus,
		"actor", actorID)

	s.dispatchSideEffects(ctx, updated, newStatus, actorID)
	return updated, nil
}

// dispatchSideEffects runs strictly after a transition is committed. Failures
// here never affect the persisted state change.
func (s *Service) dispatchSideEffects(ctx context.Context, offer *domain.TradeOffer, newStatus domain.OfferStatus, actorID string) {
	if n, ok := domain.StatusNotification(offer, newStatus, actorID); ok {
		s.services.Notify(ctx, n)
	}
	if newStatus == domain.OfferStatusAccepted {
		s.services.ProvisionChatRoom(ctx, domain.ChatRoomFor(offer))
	}
}

// Delete removes a pending offer. Only the proposer may delete, and only
// before the offer leaves pending.
func (s *Service) Delete(ctx context.Context, offerID, actorID string) error {
	offer, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.ProposerID != actorID {
		return ErrUnauthorized
	}
	if offer.Status != domain.OfferStatusPending {
		return ErrNotDeletable
	}
	if err := s.repo.Delete(ctx, offerID); err != nil {
		return err
	}
	slog.Info("Trade offer deleted", "offer", offerID, "proposer", actorID)
	return nil
}

// Get returns a single offer by ID.
func (s *Service) Get(ctx context.Context, offerID string) (*domain.TradeOffer, error) {
	return s.repo.GetByID(ctx, offerID)
}

// List returns offers matching the filter, newest first. Limit and offset are
// clamped to valid ranges.
func (s *Service) List(ctx context.Context, filter storage.ListFilter) ([]*domain.TradeOffer, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// ListByItem returns offers that reference itemID on either side.
func (s *Service) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.TradeOffer, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByItem(ctx, itemID, clampLimit(limit), offset)
}

// Stats returns aggregate offer counts for a user.
func (s *Service) Stats(ctx context.Context, userID string) (*domain.OfferStats, error) {
	return s.repo.Stats(ctx, userID)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func validateProposeInput(req ProposeRequest) error {
	if l := len(req.ProposerID); l < 1 || l > maxUserIDLen {
		return fmt.Errorf("%w: proposer_id must be 1-100 characters", ErrInvalidInput)
	}
	if l := len(req.ReceiverID); l < 1 || l > maxUserIDLen {
		return fmt.Errorf("%w: receiver_id must be 1-100 characters", ErrInvalidInput)
	}
	if req.ProposerID == req.ReceiverID {
		return fmt.Errorf("%w: cannot create a trade offer with yourself", ErrInvalidInput)
	}
	if len(req.OfferedItemIDs) == 0 {
		return fmt.Errorf("%w: offered_item_ids must not be empty", ErrInvalidInput)
	}
	if len(req.RequestedItemIDs) == 0 {
		return fmt.Errorf("%w: requested_item_ids must not be empty", ErrInvalidInput)
	}
	if hasDuplicates(req.OfferedItemIDs) {
		return fmt.Errorf("%w: duplicate item IDs in offered items", ErrInvalidInput)
	}
	if hasDuplicates(req.RequestedItemIDs) {
		return fmt.Errorf("%w: duplicate item IDs in requested items", ErrInvalidInput)
	}
	if overlaps(req.OfferedItemIDs, req.RequestedItemIDs) {
		return fmt.Errorf("%w: an item cannot be both offered and requested", ErrInvalidInput)
	}
	if len(req.Message) > maxMessageLen {
		return fmt.Errorf("%w: message must be at most 1000 characters", ErrInvalidInput)
	}
	return nil
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func overlaps(a, b []int64) bool {
	set := make(map[int64]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
