package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/core/trade"
	"github.com/vietddude/swapmatch/internal/infra/remote"
	"github.com/vietddude/swapmatch/internal/infra/storage"
)

type createOfferRequest struct {
	ProposerID       string  `json:"proposer_id"`
	ReceiverID       string  `json:"receiver_id"`
	OfferedItemIDs   []int64 `json:"offered_item_ids"`
	RequestedItemIDs []int64 `json:"requested_item_ids"`
	Message          string  `json:"message"`
}

type updateOfferRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "Swapmatch Trade Offer Service",
		"status":  "running",
		"version": serviceVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	}
	if s.deps != nil {
		resp["dependencies"] = s.deps.Health()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	offer, err := s.service.Propose(r.Context(), trade.ProposeRequest{
		ProposerID:       req.ProposerID,
		ReceiverID:       req.ReceiverID,
		OfferedItemIDs:   req.OfferedItemIDs,
		RequestedItemIDs: req.RequestedItemIDs,
		Message:          req.Message,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.service.Get(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	filter := storage.ListFilter{UserID: userID}
	var ok bool
	if filter.Status, ok = statusParam(r); !ok {
		writeDetail(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	filter.AsProposer = boolParam(r, "as_proposer")
	filter.AsReceiver = boolParam(r, "as_receiver")
	filter.Limit = intParam(r, "limit")
	filter.Offset = intParam(r, "offset")

	offers, err := s.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOfferList(w, offers)
}

func (s *Server) handleReceivedOffers(w http.ResponseWriter, r *http.Request) {
	s.listForRole(w, r, false)
}

func (s *Server) handleSentOffers(w http.ResponseWriter, r *http.Request) {
	s.listForRole(w, r, true)
}

func (s *Server) listForRole(w http.ResponseWriter, r *http.Request, asProposer bool) {
	filter := storage.ListFilter{
		UserID:     chi.URLParam(r, "userID"),
		AsProposer: asProposer,
		AsReceiver: !asProposer,
		Limit:      intParam(r, "limit"),
		Offset:     intParam(r, "offset"),
	}
	var ok bool
	if filter.Status, ok = statusParam(r); !ok {
		writeDetail(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	offers, err := s.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOfferList(w, offers)
}

func (s *Server) handleOffersByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	offers, err := s.service.ListByItem(r.Context(), itemID, intParam(r, "limit"), intParam(r, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOfferList(w, offers)
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	var req updateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newStatus, ok := domain.ParseOfferStatus(req.Status)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "invalid status")
		return
	}

	offer, err := s.service.Transition(r.Context(), chi.URLParam(r, "offerID"), newStatus, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleDeleteOffer(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	if err := s.service.Delete(r.Context(), chi.URLParam(r, "offerID"), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// statusParam parses the optional status query filter. ok is false when the
// value is not a known status.
func statusParam(r *http.Request) (domain.OfferStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return "", true
	}
	return domain.ParseOfferStatus(raw)
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func intParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// writeOfferList writes offers as a JSON array, never null.
func writeOfferList(w http.ResponseWriter, offers []*domain.TradeOffer) {
	if offers == nil {
		offers = []*domain.TradeOffer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

// writeError maps service errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *trade.ValidationError
	switch {
	case errors.As(err, &verr):
		code := http.StatusBadRequest
		switch verr.Kind {
		case trade.ItemsNotFound:
			code = http.StatusNotFound
		case trade.WrongOwnerOffered, trade.WrongOwnerRequested:
			code = http.StatusForbidden
		}
		writeDetail(w, code, verr.Error())

	case errors.Is(err, trade.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, trade.ErrDuplicateOffer):
		writeDetail(w, http.StatusConflict, err.Error())

	case errors.Is(err, trade.ErrUnauthorized):
		writeDetail(w, http.StatusForbidden, err.Error())

	case errors.Is(err, trade.ErrInvalidTransition), errors.Is(err, trade.ErrNotDeletable):
		writeDetail(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, storage.ErrOfferNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())

	case errors.Is(err, remote.ErrDependencyUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, "item validation service is temporarily unavailable")

	default:
		slog.Error("Unhandled request error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
