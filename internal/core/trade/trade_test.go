package trade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/remote"
	"github.com/vietddude/swapmatch/internal/infra/storage"
)

// =============================================================================
// Mock Repository
// =============================================================================

type mockOfferRepo struct {
	mu     sync.RWMutex
	offers map[string]*domain.TradeOffer
	seq    int

	createErr    error
	lastFilter   storage.ListFilter
	beforeUpdate func()
}

func newMockOfferRepo() *mockOfferRepo {
	return &mockOfferRepo{
		offers: make(map[string]*domain.TradeOffer),
	}
}

func (r *mockOfferRepo) Create(ctx context.Context, offer *domain.TradeOffer) (*domain.TradeOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	now := time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)

	c := *offer
	c.ID = fmt.Sprintf("offer-%04d", r.seq)
	c.Status = domain.OfferStatusPending
	c.CreatedAt = now
	c.UpdatedAt = now
	r.offers[c.ID] = &c

	out := c
	return &out, nil
}

func (r *mockOfferRepo) GetByID(ctx context.Context, id string) (*domain.TradeOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.offers[id]
	if !ok {
		return nil, storage.ErrOfferNotFound
	}
	c := *offer
	return &c, nil
}

func (r *mockOfferRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OfferStatus) (*domain.TradeOffer, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	offer, ok := r.offers[id]
	if !ok {
		return nil, storage.ErrOfferNotFound
	}
	if offer.Status != from {
		return nil, storage.ErrStatusConflict
	}
	offer.Status = to
	offer.UpdatedAt = time.Now().UTC()
	if offer.RespondedAt == nil && (to == domain.OfferStatusAccepted || to == domain.OfferStatusRejected) {
		t := offer.UpdatedAt
		offer.RespondedAt = &t
	}
	c := *offer
	return &c, nil
}

func (r *mockOfferRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.offers[id]; !ok {
		return storage.ErrOfferNotFound
	}
	delete(r.offers, id)
	return nil
}

func (r *mockOfferRepo) List(ctx context.Context, filter storage.ListFilter) ([]*domain.TradeOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.lastFilter = filter

	var out []*domain.TradeOffer
	for _, offer := range r.offers {
		c := *offer
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *mockOfferRepo) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.TradeOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.lastFilter = storage.ListFilter{Limit: limit, Offset: offset}
	return nil, nil
}

func (r *mockOfferRepo) Stats(ctx context.Context, userID string) (*domain.OfferStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.OfferStats{}
	for _, offer := range r.offers {
		if offer.ProposerID != userID && offer.ReceiverID != userID {
			continue
		}
		stats.TotalOffers++
		switch offer.Status {
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

func (r *mockOfferRepo) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.OfferStatus]int)
	for _, offer := range r.offers {
		counts[offer.Status]++
	}
	return counts, nil
}

func (r *mockOfferRepo) CountActiveProposers(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proposers := make(map[string]struct{})
	for _, offer := range r.offers {
		if offer.Status == domain.OfferStatusPending || offer.Status == domain.OfferStatusAccepted {
			proposers[offer.ProposerID] = struct{}{}
		}
	}
	return len(proposers), nil
}

// =============================================================================
// Stub Remote Services
// =============================================================================

type stubServices struct {
	mu          sync.Mutex
	verdicts    []domain.ItemVerdict
	validateErr error

	validated     [][]int64
	notifications []domain.NotificationRequest
	chatRooms     []domain.ChatRoomRequest
}

func newStubServices() *stubServices {
	return &stubServices{}
}

func (s *stubServices) ValidateItems(ctx context.Context, itemIDs []int64) ([]domain.ItemVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validateErr != nil {
		return nil, s.validateErr
	}
	s.validated = append(s.validated, itemIDs)
	return s.verdicts, nil
}

func (s *stubServices) Notify(ctx context.Context, req domain.NotificationRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, req)
	return true
}

func (s *stubServices) ProvisionChatRoom(ctx context.Context, req domain.ChatRoomRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatRooms = append(s.chatRooms, req)
	return true
}

type stubGuard struct {
	mu       sync.Mutex
	reserved map[string]bool
	failErr  error
	released []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{reserved: make(map[string]bool)}
}

func (g *stubGuard) ReserveIdempotencyKey(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failErr != nil {
		return false, g.failErr
	}
	if g.reserved[key] {
		return false, nil
	}
	g.reserved[key] = true
	return true, nil
}

func (g *stubGuard) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.reserved, key)
	g.released = append(g.released, key)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func activeVerdict(id int64, owner string) domain.ItemVerdict {
	return domain.ItemVerdict{ItemID: id, Exists: true, IsActive: true, OwnerID: owner}
}

func validPropose() ProposeRequest {
	return ProposeRequest{
		ProposerID:       "alice",
		ReceiverID:       "bob",
		OfferedItemIDs:   []int64{1, 2},
		RequestedItemIDs: []int64{3},
		Message:          "interested in a swap?",
	}
}

func validVerdicts() []domain.ItemVerdict {
	return []domain.ItemVerdict{
		activeVerdict(1, "alice"),
		activeVerdict(2, "alice"),
		activeVerdict(3, "bob"),
	}
}

func seedOffer(repo *mockOfferRepo, status domain.OfferStatus) *domain.TradeOffer {
	now := time.Now().UTC()
	offer := &domain.TradeOffer{
		ID:               "offer-0001",
		ProposerID:       "alice",
		ReceiverID:       "bob",
		OfferedItemIDs:   []int64{1},
		RequestedItemIDs: []int64{2},
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	repo.offers[offer.ID] = offer
	return offer
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.OfferStatus
		to       domain.OfferStatus
		role     domain.Role
		expected bool
	}{
		{"proposer cancels pending", domain.OfferStatusPending, domain.OfferStatusCancelled, domain.RoleProposer, true},
		{"receiver cancels pending", domain.OfferStatusPending, domain.OfferStatusCancelled, domain.RoleReceiver, false},
		{"receiver accepts pending", domain.OfferStatusPending, domain.OfferStatusAccepted, domain.RoleReceiver, true},
		{"proposer accepts own offer", domain.OfferStatusPending, domain.OfferStatusAccepted, domain.RoleProposer, false},
		{"receiver rejects pending", domain.OfferStatusPending, domain.OfferStatusRejected, domain.RoleReceiver, true},
		{"proposer rejects own offer", domain.OfferStatusPending, domain.OfferStatusRejected, domain.RoleProposer, false},
		{"proposer completes accepted", domain.OfferStatusAccepted, domain.OfferStatusCompleted, domain.RoleProposer, true},
		{"receiver completes accepted", domain.OfferStatusAccepted, domain.OfferStatusCompleted, domain.RoleReceiver, true},
		{"complete from pending", domain.OfferStatusPending, domain.OfferStatusCompleted, domain.RoleReceiver, false},
		{"accept after rejection", domain.OfferStatusRejected, domain.OfferStatusAccepted, domain.RoleReceiver, false},
		{"cancel accepted offer", domain.OfferStatusAccepted, domain.OfferStatusCancelled, domain.RoleProposer, false},
		{"reopen completed offer", domain.OfferStatusCompleted, domain.OfferStatusPending, domain.RoleProposer, false},
		{"no role", domain.OfferStatusPending, domain.OfferStatusAccepted, domain.RoleNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanTransition(tt.from, tt.to, tt.role)
			if result != tt.expected {
				t.Errorf("CanTransition(%s, %s, %q) = %v, want %v", tt.from, tt.to, tt.role, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Validator Tests
// =============================================================================

func TestValidateOwnership(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []domain.ItemVerdict
		wantKind ValidationKind
		wantIDs  []int64
	}{
		{
			name:     "all checks pass",
			verdicts: validVerdicts(),
		},
		{
			name: "missing items reported together",
			verdicts: []domain.ItemVerdict{
				activeVerdict(2, "alice"),
			},
			wantKind: ItemsNotFound,
			wantIDs:  []int64{1, 3},
		},
		{
			name: "inactive items",
			verdicts: []domain.ItemVerdict{
				activeVerdict(1, "alice"),
				{ItemID: 2, Exists: true, IsActive: false, OwnerID: "alice"},
				{ItemID: 3, Exists: true, IsActive: false, OwnerID: "bob"},
			},
			wantKind: ItemsInactive,
			wantIDs:  []int64{2, 3},
		},
		{
			name: "existence outranks activity",
			verdicts: []domain.ItemVerdict{
				activeVerdict(1, "alice"),
				{ItemID: 2, Exists: true, IsActive: false, OwnerID: "alice"},
				activeVerdict(3, "bob"),
			},
			wantKind: ItemsInactive,
			wantIDs:  []int64{2},
		},
		{
			name: "proposer does not own offered items",
			verdicts: []domain.ItemVerdict{
				activeVerdict(1, "mallory"),
				activeVerdict(2, "alice"),
				activeVerdict(3, "bob"),
			},
			wantKind: WrongOwnerOffered,
			wantIDs:  []int64{1},
		},
		{
			name: "receiver does not own requested items",
			verdicts: []domain.ItemVerdict{
				activeVerdict(1, "alice"),
				activeVerdict(2, "alice"),
				activeVerdict(3, "mallory"),
			},
			wantKind: WrongOwnerRequested,
			wantIDs:  []int64{3},
		},
		{
			name: "offered ownership outranks requested ownership",
			verdicts: []domain.ItemVerdict{
				activeVerdict(1, "mallory"),
				activeVerdict(2, "alice"),
				activeVerdict(3, "mallory"),
			},
			wantKind: WrongOwnerOffered,
			wantIDs:  []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcs := newStubServices()
			svcs.verdicts = tt.verdicts
			v := NewValidator(svcs)

			err := v.ValidateOwnership(context.Background(), []int64{1, 2}, []int64{3}, "alice", "bob")

			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("ValidateOwnership failed: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got: %v", err)
			}
			if verr.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, verr.Kind)
			}
			if fmt.Sprint(verr.ItemIDs) != fmt.Sprint(tt.wantIDs) {
				t.Errorf("expected item IDs %v, got %v", tt.wantIDs, verr.ItemIDs)
			}
		})
	}
}

func TestValidateOwnership_SingleBatchedCall(t *testing.T) {
	svcs := newStubServices()
	svcs.verdicts = validVerdicts()
	v := NewValidator(svcs)

	if err := v.ValidateOwnership(context.Background(), []int64{1, 2}, []int64{3}, "alice", "bob"); err != nil {
		t.Fatalf("ValidateOwnership failed: %v", err)
	}

	if len(svcs.validated) != 1 {
		t.Fatalf("expected 1 catalog call, got %d", len(svcs.validated))
	}
	if fmt.Sprint(svcs.validated[0]) != fmt.Sprint([]int64{1, 2, 3}) {
		t.Errorf("expected batched IDs [1 2 3], got %v", svcs.validated[0])
	}
}

func TestValidateOwnership_DependencyUnavailable(t *testing.T) {
	svcs := newStubServices()
	svcs.validateErr = remote.ErrDependencyUnavailable
	v := NewValidator(svcs)

	err := v.ValidateOwnership(context.Background(), []int64{1}, []int64{2}, "alice", "bob")
	if !errors.Is(err, remote.ErrDependencyUnavailable) {
		t.Errorf("expected ErrDependencyUnavailable, got: %v", err)
	}
}

// =============================================================================
// Propose Tests
// =============================================================================

func TestProposeCreatesOffer(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.verdicts = validVerdicts()
	service := NewService(repo, svcs, nil)

	offer, err := service.Propose(context.Background(), validPropose())
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if offer.ID == "" {
		t.Error("expected offer ID to be assigned")
	}
	if offer.Status != domain.OfferStatusPending {
		t.Errorf("expected status pending, got %s", offer.Status)
	}
	if offer.RespondedAt != nil {
		t.Error("expected responded_at to be unset on creation")
	}
	if _, ok := repo.offers[offer.ID]; !ok {
		t.Error("expected offer to be persisted")
	}
}

func TestProposeInputValidation(t *testing.T) {
	longID := make([]byte, 101)
	for i := range longID {
		longID[i] = 'x'
	}
	longMessage := make([]byte, 1001)
	for i := range longMessage {
		longMessage[i] = 'm'
	}

	tests := []struct {
		name   string
		mutate func(*ProposeRequest)
	}{
		{"empty proposer", func(r *ProposeRequest) { r.ProposerID = "" }},
		{"oversized proposer", func(r *ProposeRequest) { r.ProposerID = string(longID) }},
		{"empty receiver", func(r *ProposeRequest) { r.ReceiverID = "" }},
		{"self trade", func(r *ProposeRequest) { r.ReceiverID = r.ProposerID }},
		{"no offered items", func(r *ProposeRequest) { r.OfferedItemIDs = nil }},
		{"no requested items", func(r *ProposeRequest) { r.RequestedItemIDs = nil }},
		{"duplicate offered items", func(r *ProposeRequest) { r.OfferedItemIDs = []int64{1, 1} }},
		{"duplicate requested items", func(r *ProposeRequest) { r.RequestedItemIDs = []int64{3, 3} }},
		{"overlapping sides", func(r *ProposeRequest) { r.RequestedItemIDs = []int64{1} }},
		{"oversized message", func(r *ProposeRequest) { r.Message = string(longMessage) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockOfferRepo()
			svcs := newStubServices()
			svcs.verdicts = validVerdicts()
			service := NewService(repo, svcs, nil)

			req := validPropose()
			tt.mutate(&req)

			_, err := service.Propose(context.Background(), req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got: %v", err)
			}
			if len(svcs.validated) != 0 {
				t.Error("expected no catalog call for invalid input")
			}
			if len(repo.offers) != 0 {
				t.Error("expected no offer to be persisted")
			}
		})
	}
}

func TestProposeDuplicateKey(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.verdicts = validVerdicts()
	guard := newStubGuard()
	service := NewService(repo, svcs, guard)

	req := validPropose()
	req.IdempotencyKey = "req-123"

	if _, err := service.Propose(context.Background(), req); err != nil {
		t.Fatalf("first Propose failed: %v", err)
	}
	_, err := service.Propose(context.Background(), req)
	if !errors.Is(err, ErrDuplicateOffer) {
		t.Errorf("expected ErrDuplicateOffer, got: %v", err)
	}
	if len(repo.offers) != 1 {
		t.Errorf("expected 1 persisted offer, got %d", len(repo.offers))
	}
}

func TestProposeReleasesKeyOnFailure(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.verdicts = []domain.ItemVerdict{} // everything missing
	guard := newStubGuard()
	service := NewService(repo, svcs, guard)

	req := validPropose()
	req.IdempotencyKey = "req-456"

	_, err := service.Propose(context.Background(), req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
	if len(guard.released) != 1 || guard.released[0] != "req-456" {
		t.Errorf("expected key req-456 to be released, got %v", guard.released)
	}

	// The same key must work on retry.
	svcs.verdicts = validVerdicts()
	if _, err := service.Propose(context.Background(), req); err != nil {
		t.Fatalf("retry with released key failed: %v", err)
	}
}

func TestProposeGuardUnavailable(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.verdicts = validVerdicts()
	guard := newStubGuard()
	guard.failErr = errors.New("redis: connection refused")
	service := NewService(repo, svcs, guard)

	req := validPropose()
	req.IdempotencyKey = "req-789"

	// Duplicate detection degrades open when the guard is down.
	if _, err := service.Propose(context.Background(), req); err != nil {
		t.Fatalf("Propose with unavailable guard failed: %v", err)
	}
}

func TestProposeDependencyUnavailable(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.validateErr = remote.ErrDependencyUnavailable
	service := NewService(repo, svcs, nil)

	_, err := service.Propose(context.Background(), validPropose())
	if !errors.Is(err, remote.ErrDependencyUnavailable) {
		t.Errorf("expected ErrDependencyUnavailable, got: %v", err)
	}
	if len(repo.offers) != 0 {
		t.Error("expected no offer to be persisted")
	}
}

// =============================================================================
// Transition Tests
// =============================================================================

func TestTransitionAccept(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	service := NewService(repo, svcs, nil)
	seedOffer(repo, domain.OfferStatusPending)

	updated, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusAccepted, "bob")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if updated.Status != domain.OfferStatusAccepted {
		t.Errorf("expected status accepted, got %s", updated.Status)
	}
	if updated.RespondedAt == nil {
		t.Error("expected responded_at to be stamped on accept")
	}

	if len(svcs.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svcs.notifications))
	}
	n := svcs.notifications[0]
	if n.UserID != "alice" {
		t.Errorf("expected notification for proposer alice, got %s", n.UserID)
	}
	if n.Type != "trade_offer_accepted" {
		t.Errorf("expected type trade_offer_accepted, got %s", n.Type)
	}
	if n.RelatedOfferID != "offer-0001" || n.RelatedUserID != "bob" {
		t.Errorf("unexpected notification refs: %+v", n)
	}

	if len(svcs.chatRooms) != 1 {
		t.Fatalf("expected 1 chat room, got %d", len(svcs.chatRooms))
	}
	room := svcs.chatRooms[0]
	if room.TradeOfferID != "offer-0001" || room.User1ID != "alice" || room.User2ID != "bob" {
		t.Errorf("unexpected chat room request: %+v", room)
	}
}

func TestTransitionReject(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	service := NewService(repo, svcs, nil)
	seedOffer(repo, domain.OfferStatusPending)

	updated, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusRejected, "bob")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if updated.RespondedAt == nil {
		t.Error("expected responded_at to be stamped on reject")
	}
	if len(svcs.notifications) != 1 || svcs.notifications[0].Type != "trade_offer_rejected" {
		t.Errorf("expected rejection notification, got %+v", svcs.notifications)
	}
	if len(svcs.chatRooms) != 0 {
		t.Error("expected no chat room on rejection")
	}
}

func TestTransitionCancel(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	service := NewService(repo, svcs, nil)
	seedOffer(repo, domain.OfferStatusPending)

	updated, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusCancelled, "alice")
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if updated.RespondedAt != nil {
		t.Error("expected responded_at to stay unset on cancel")
	}
	if len(svcs.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(svcs.notifications))
	}
	n := svcs.notifications[0]
	if n.UserID != "bob" || n.Type != "trade_offer_cancelled" {
		t.Errorf("expected cancellation notification for bob, got %+v", n)
	}
}

func TestTransitionComplete(t *testing.T) {
	for _, actor := range []string{"alice", "bob"} {
		t.Run(actor, func(t *testing.T) {
			repo := newMockOfferRepo()
			svcs := newStubServices()
			service := NewService(repo, svcs, nil)
			seedOffer(repo, domain.OfferStatusAccepted)

			updated, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusCompleted, actor)
			if err != nil {
				t.Fatalf("Transition failed: %v", err)
			}
			if updated.Status != domain.OfferStatusCompleted {
				t.Errorf("expected status completed, got %s", updated.Status)
			}

			if len(svcs.notifications) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(svcs.notifications))
			}
			n := svcs.notifications[0]
			if n.UserID == actor {
				t.Errorf("expected notification for counterparty, got actor %s", n.UserID)
			}
			if n.Type != "trade_completed" {
				t.Errorf("expected type trade_completed, got %s", n.Type)
			}
		})
	}
}

func TestTransitionUnauthorized(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	service := NewService(repo, svcs, nil)
	seedOffer(repo, domain.OfferStatusPending)

	_, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusAccepted, "mallory")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got: %v", err)
	}
	if len(svcs.notifications) != 0 {
		t.Error("expected no side effects for unauthorized attempt")
	}
}

func TestTransitionInvalid(t *testing.T) {
	tests := []struct {
		name   string
		status domain.OfferStatus
		to     domain.OfferStatus
		actor  string
	}{
		{"proposer accepts own offer", domain.OfferStatusPending, domain.OfferStatusAccepted, "alice"},
		{"receiver cancels", domain.OfferStatusPending, domain.OfferStatusCancelled, "bob"},
		{"complete from pending", domain.OfferStatusPending, domain.OfferStatusCompleted, "bob"},
		{"accept a rejected offer", domain.OfferStatusRejected, domain.OfferStatusAccepted, "bob"},
		{"cancel an accepted offer", domain.OfferStatusAccepted, domain.OfferStatusCancelled, "alice"},
		{"complete twice", domain.OfferStatusCompleted, domain.OfferStatusCompleted, "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockOfferRepo()
			svcs := newStubServices()
			service := NewService(repo, svcs, nil)
			seedOffer(repo, tt.status)

			_, err := service.Transition(context.Background(), "offer-0001", tt.to, tt.actor)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got: %v", err)
			}
			if len(svcs.notifications) != 0 {
				t.Error("expected no side effects for invalid transition")
			}
		})
	}
}

func TestTransitionLostRace(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	service := NewService(repo, svcs, nil)
	seedOffer(repo, domain.OfferStatusPending)

	// A concurrent accept commits between the read and the conditional write.
	repo.beforeUpdate = func() {
		repo.beforeUpdate = nil
		repo.offers["offer-0001"].Status = domain.OfferStatusAccepted
	}

	_, err := service.Transition(context.Background(), "offer-0001", domain.OfferStatusCancelled, "alice")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition after lost race, got: %v", err)
	}

	// The racer's state must survive untouched.
	offer, _ := repo.GetByID(context.Background(), "offer-0001")
	if offer.Status != domain.OfferStatusAccepted {
		t.Errorf("expected status accepted, got %s", offer.Status)
	}
	if len(svcs.notifications) != 0 {
		t.Error("expected no side effects from the losing request")
	}
}

func TestTransitionNotFound(t *testing.T) {
	repo := newMockOfferRepo()
	service := NewService(repo, newStubServices(), nil)

	_, err := service.Transition(context.Background(), "missing", domain.OfferStatusAccepted, "bob")
	if !errors.Is(err, storage.ErrOfferNotFound) {
		t.Errorf("expected ErrOfferNotFound, got: %v", err)
	}
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestDelete(t *testing.T) {
	repo := newMockOfferRepo()
	service := NewService(repo, newStubServices(), nil)
	seedOffer(repo, domain.OfferStatusPending)

	if err := service.Delete(context.Background(), "offer-0001", "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := repo.offers["offer-0001"]; ok {
		t.Error("expected offer to be removed")
	}
}

func TestDeleteUnauthorized(t *testing.T) {
	repo := newMockOfferRepo()
	service := NewService(repo, newStubServices(), nil)
	seedOffer(repo, domain.OfferStatusPending)

	err := service.Delete(context.Background(), "offer-0001", "bob")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got: %v", err)
	}
}

func TestDeleteNonPending(t *testing.T) {
	repo := newMockOfferRepo()
	service := NewService(repo, newStubServices(), nil)
	seedOffer(repo, domain.OfferStatusAccepted)

	err := service.Delete(context.Background(), "offer-0001", "alice")
	if !errors.Is(err, ErrNotDeletable) {
		t.Errorf("expected ErrNotDeletable, got: %v", err)
	}
}

// =============================================================================
// Listing Tests
// =============================================================================

func TestListClampsPagination(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, 20, 0},
		{"within range", 50, 10, 50, 10},
		{"over max", 500, 0, 100, 0},
		{"negative", -5, -3, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockOfferRepo()
			service := NewService(repo, newStubServices(), nil)

			_, err := service.List(context.Background(), storage.ListFilter{
				UserID: "alice",
				Limit:  tt.limit,
				Offset: tt.offset,
			})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if repo.lastFilter.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, repo.lastFilter.Limit)
			}
			if repo.lastFilter.Offset != tt.wantOffset {
				t.Errorf("expected offset %d, got %d", tt.wantOffset, repo.lastFilter.Offset)
			}
		})
	}
}

func TestStatsExcludesCancelled(t *testing.T) {
	repo := newMockOfferRepo()
	svcs := newStubServices()
	svcs.verdicts = validVerdicts()
	service := NewService(repo, svcs, nil)

	for _, status := range []domain.OfferStatus{
		domain.OfferStatusPending,
		domain.OfferStatusAccepted,
		domain.OfferStatusCancelled,
	} {
		offer, err := repo.Create(context.Background(), &domain.TradeOffer{
			ProposerID:       "alice",
			ReceiverID:       "bob",
			OfferedItemIDs:   []int64{1},
			RequestedItemIDs: []int64{2},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		repo.offers[offer.ID].Status = status
	}

	stats, err := service.Stats(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalOffers != 3 {
		t.Errorf("expected total 3, got %d", stats.TotalOffers)
	}
	if stats.PendingOffers != 1 || stats.AcceptedOffers != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
