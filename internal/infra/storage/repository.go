package storage

import (
	"context"
	"errors"

	"github.com/vietddude/swapmatch/internal/core/domain"
)

var (
	// ErrOfferNotFound is returned when an offer doesn't exist
	ErrOfferNotFound = errors.New("trade offer not found")

	// ErrStatusConflict is returned when a conditional status update loses to
	// a concurrent writer
	ErrStatusConflict = errors.New("offer status changed concurrently")
)

// ListFilter narrows List results. Zero values mean no constraint.
// AsProposer and AsReceiver only apply when UserID is set; setting both
// (or neither) matches the user on either side.
type ListFilter struct {
	UserID     string
	Status     domain.OfferStatus
	AsProposer bool
	AsReceiver bool
	Limit      int
	Offset     int
}

// OfferRepository handles trade offer storage operations
type OfferRepository interface {
	// Create persists a new offer, assigning its ID and timestamps
	Create(ctx context.Context, offer *domain.TradeOffer) (*domain.TradeOffer, error)

	// GetByID retrieves an offer by ID
	GetByID(ctx context.Context, id string) (*domain.TradeOffer, error)

	// UpdateStatus atomically moves an offer from one status to another,
	// returning the updated offer. It fails with ErrStatusConflict when the
	// offer is no longer in from. responded_at is stamped the first time the
	// offer leaves pending for accepted or rejected, and never overwritten.
	UpdateStatus(ctx context.Context, id string, from, to domain.OfferStatus) (*domain.TradeOffer, error)

	// Delete removes an offer
	Delete(ctx context.Context, id string) error

	// List returns offers matching the filter, newest first
	List(ctx context.Context, filter ListFilter) ([]*domain.TradeOffer, error)

	// ListByItem returns offers involving the item on either side, newest first
	ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.TradeOffer, error)

	// Stats returns per-status counts for offers involving the user
	Stats(ctx context.Context, userID string) (*domain.OfferStats, error)

	// CountByStatus returns the current number of offers per status
	CountByStatus(ctx context.Context) (map[domain.OfferStatus]int, error)

	// CountActiveProposers returns the number of distinct proposers with
	// pending or accepted offers
	CountActiveProposers(ctx context.Context) (int, error)
}
