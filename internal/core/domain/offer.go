package domain

import (
	"time"
)

// TradeOffer represents a proposed item swap between two users.
type TradeOffer struct {
	ID               string      `json:"id"`
	ProposerID       string      `json:"proposer_id"`
	ReceiverID       string      `json:"receiver_id"`
	OfferedItemIDs   []int64     `json:"offered_item_ids"`
	RequestedItemIDs []int64     `json:"requested_item_ids"`
	Status           OfferStatus `json:"status"`
	Message          string      `json:"message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	RespondedAt      *time.Time  `json:"responded_at,omitempty"`
}

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusCompleted OfferStatus = "completed"
)

// ParseOfferStatus validates a status string from the wire.
func ParseOfferStatus(s string) (OfferStatus, bool) {
	switch OfferStatus(s) {
	case OfferStatusPending, OfferStatusAccepted, OfferStatusRejected,
		OfferStatusCancelled, OfferStatusCompleted:
		return OfferStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusRejected || s == OfferStatusCancelled || s == OfferStatusCompleted
}

// Role identifies which side of an offer a user is on.
type Role string

const (
	RoleNone     Role = ""
	RoleProposer Role = "proposer"
	RoleReceiver Role = "receiver"
)

// RoleOf returns the user's role on this offer, or RoleNone.
// Proposer and receiver are distinct users, enforced at creation.
func (o *TradeOffer) RoleOf(userID string) Role {
	switch userID {
	case o.ProposerID:
		return RoleProposer
	case o.ReceiverID:
		return RoleReceiver
	}
	return RoleNone
}

// Counterparty returns the other party relative to the given user.
func (o *TradeOffer) Counterparty(userID string) string {
	if userID == o.ReceiverID {
		return o.ProposerID
	}
	return o.ReceiverID
}
