package domain

// OfferStats summarizes a user's trade activity across both roles.
type OfferStats struct {
	TotalOffers     int `json:"total_offers"`
	PendingOffers   int `json:"pending_offers"`
	AcceptedOffers  int `json:"accepted_offers"`
	RejectedOffers  int `json:"rejected_offers"`
	CompletedOffers int `json:"completed_offers"`
}
