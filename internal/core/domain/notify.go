package domain

// NotificationRequest is the payload sent to the notification service.
type NotificationRequest struct {
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	RelatedOfferID string `json:"related_offer_id"`
	RelatedUserID  string `json:"related_user_id"`
}

// ChatRoomRequest asks the chat service to open a room for an accepted trade.
type ChatRoomRequest struct {
	TradeOfferID string `json:"trade_offer_id"`
	User1ID      string `json:"user1_id"`
	User2ID      string `json:"user2_id"`
}

type statusMessage struct {
	Type  string
	Title string
	Body  string
}

var statusMessages = map[OfferStatus]statusMessage{
	OfferStatusAccepted: {
		Type:  "trade_offer_accepted",
		Title: "Trade Offer Accepted! 🎉",
		Body:  "Great news! Your trade offer has been accepted.",
	},
	OfferStatusRejected: {
		Type:  "trade_offer_rejected",
		Title: "Trade Offer Declined",
		Body:  "Your trade offer was declined. Keep exploring!",
	},
	OfferStatusCancelled: {
		Type:  "trade_offer_cancelled",
		Title: "Trade Offer Cancelled",
		Body:  "A trade offer you received has been cancelled.",
	},
	OfferStatusCompleted: {
		Type:  "trade_completed",
		Title: "Trade Completed! ✅",
		Body:  "Congratulations! Your trade has been completed.",
	},
}

// StatusNotification builds the notification for a status change, addressed
// to the party opposite the actor. The second return is false when the
// status carries no notification.
func StatusNotification(offer *TradeOffer, newStatus OfferStatus, actorID string) (NotificationRequest, bool) {
	msg, ok := statusMessages[newStatus]
	if !ok {
		return NotificationRequest{}, false
	}

	return NotificationRequest{
		UserID:         offer.Counterparty(actorID),
		Type:           msg.Type,
		Title:          msg.Title,
		Body:           msg.Body,
		RelatedOfferID: offer.ID,
		RelatedUserID:  actorID,
	}, true
}

// ChatRoomFor builds the chat provisioning request for an accepted offer.
func ChatRoomFor(offer *TradeOffer) ChatRoomRequest {
	return ChatRoomRequest{
		TradeOfferID: offer.ID,
		User1ID:      offer.ProposerID,
		User2ID:      offer.ReceiverID,
	}
}
