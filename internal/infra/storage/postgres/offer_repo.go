package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/storage"
)

// OfferRepo implements storage.OfferRepository using PostgreSQL.
type OfferRepo struct {
	db *DB
}

// NewOfferRepo creates a new PostgreSQL offer repository.
func NewOfferRepo(db *DB) *OfferRepo {
	return &OfferRepo{db: db}
}

const offerColumns = `id, proposer_id, receiver_id, offered_item_ids, requested_item_ids, status, message, created_at, updated_at, responded_at`

type offerRow struct {
	ID               string         `db:"id"`
	ProposerID       string         `db:"proposer_id"`
	ReceiverID       string         `db:"receiver_id"`
	OfferedItemIDs   pq.Int64Array  `db:"offered_item_ids"`
	RequestedItemIDs pq.Int64Array  `db:"requested_item_ids"`
	Status           string         `db:"status"`
	Message          sql.NullString `db:"message"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	RespondedAt      *time.Time     `db:"responded_at"`
}

func (r *offerRow) toDomain() *domain.TradeOffer {
	offer := &domain.TradeOffer{
		ID:               r.ID,
		ProposerID:       r.ProposerID,
		ReceiverID:       r.ReceiverID,
		OfferedItemIDs:   []int64(r.OfferedItemIDs),
		RequestedItemIDs: []int64(r.RequestedItemIDs),
		Status:           domain.OfferStatus(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		RespondedAt:      r.RespondedAt,
	}
	if r.Message.Valid {
		offer.Message = r.Message.String
	}
	return offer
}

// Create persists a new offer in pending status.
func (r *OfferRepo) Create(ctx context.Context, offer *domain.TradeOffer) (*domain.TradeOffer, error) {
	query := `
		INSERT INTO trade_offers (
			id, proposer_id, receiver_id, offered_item_ids, requested_item_ids, status, message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + offerColumns

	message := sql.NullString{String: offer.Message, Valid: offer.Message != ""}

	var row offerRow
	err := r.db.GetContext(ctx, &row, query,
		uuid.NewString(), offer.ProposerID, offer.ReceiverID,
		pq.Int64Array(offer.OfferedItemIDs), pq.Int64Array(offer.RequestedItemIDs),
		string(domain.OfferStatusPending), message,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return row.toDomain(), nil
}

// GetByID retrieves an offer by ID.
func (r *OfferRepo) GetByID(ctx context.Context, id string) (*domain.TradeOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM trade_offers WHERE id = $1`

	var row offerRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateStatus moves an offer from one status to another in a single
// conditional write. The WHERE clause on the current status serializes
// concurrent transitions; the CASE stamps responded_at exactly once.
func (r *OfferRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OfferStatus) (*domain.TradeOffer, error) {
	query := `
		UPDATE trade_offers
		SET status = $3,
		    updated_at = NOW(),
		    responded_at = CASE
		        WHEN responded_at IS NULL AND $3 IN ('accepted', 'rejected') THEN NOW()
		        ELSE responded_at
		    END
		WHERE id = $1 AND status = $2
		RETURNING ` + offerColumns

	var row offerRow
	err := r.db.GetContext(ctx, &row, query, id, string(from), string(to))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update offer status: %w", err)
	}
	return row.toDomain(), nil
}

// Delete removes an offer.
func (r *OfferRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trade_offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrOfferNotFound
	}
	return nil
}

// List returns offers matching the filter, newest first.
func (r *OfferRepo) List(ctx context.Context, filter storage.ListFilter) ([]*domain.TradeOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM trade_offers WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		n := strconv.Itoa(len(args))
		switch {
		case filter.AsProposer && !filter.AsReceiver:
			query += ` AND proposer_id = $` + n
		case filter.AsReceiver && !filter.AsProposer:
			query += ` AND receiver_id = $` + n
		default:
			query += ` AND (proposer_id = $` + n + ` OR receiver_id = $` + n + `)`
		}
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	var rows []offerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	offers := make([]*domain.TradeOffer, 0, len(rows))
	for i := range rows {
		offers = append(offers, rows[i].toDomain())
	}
	return offers, nil
}

// ListByItem returns offers involving the item on either side, newest first.
func (r *OfferRepo) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.TradeOffer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM trade_offers
		WHERE $1 = ANY(offered_item_ids) OR $1 = ANY(requested_item_ids)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var rows []offerRow
	if err := r.db.SelectContext(ctx, &rows, query, itemID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list offers by item: %w", err)
	}

	offers := make([]*domain.TradeOffer, 0, len(rows))
	for i := range rows {
		offers = append(offers, rows[i].toDomain())
	}
	return offers, nil
}

// Stats returns per-status counts for offers involving the user.
func (r *OfferRepo) Stats(ctx context.Context, userID string) (*domain.OfferStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'accepted') AS accepted,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed
		FROM trade_offers
		WHERE proposer_id = $1 OR receiver_id = $1`

	var row struct {
		Total     int `db:"total"`
		Pending   int `db:"pending"`
		Accepted  int `db:"accepted"`
		Rejected  int `db:"rejected"`
		Completed int `db:"completed"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get offer stats: %w", err)
	}

	return &domain.OfferStats{
		TotalOffers:     row.Total,
		PendingOffers:   row.Pending,
		AcceptedOffers:  row.Accepted,
		RejectedOffers:  row.Rejected,
		CompletedOffers: row.Completed,
	}, nil
}

// CountByStatus returns the current number of offers per status.
func (r *OfferRepo) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM trade_offers GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count offers: %w", err)
	}

	counts := make(map[domain.OfferStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.OfferStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// CountActiveProposers returns the number of distinct proposers with pending
// or accepted offers.
func (r *OfferRepo) CountActiveProposers(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT proposer_id) FROM trade_offers WHERE status IN ('pending', 'accepted')`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count active proposers: %w", err)
	}
	return count, nil
}
