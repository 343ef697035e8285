package remote

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/metrics"
)

// Config holds remote dependency endpoints and resilience tuning.
type Config struct {
	CatalogURL      string        `yaml:"catalog_url"`
	NotificationURL string        `yaml:"notification_url"`
	ChatURL         string        `yaml:"chat_url"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	Breaker         BreakerConfig `yaml:"breaker"`
	Retry           RetryConfig   `yaml:"retry"`
}

// Services is the dependency surface consumed by the trade core.
type Services interface {
	// ValidateItems fetches a verdict for every requested item ID. It fails
	// with ErrDependencyUnavailable when the catalog cannot answer.
	ValidateItems(ctx context.Context, itemIDs []int64) ([]domain.ItemVerdict, error)

	// Notify delivers a notification best-effort. Failures are logged and
	// counted, never propagated.
	Notify(ctx context.Context, n domain.NotificationRequest) bool

	// ProvisionChatRoom opens a chat room best-effort.
	ProvisionChatRoom(ctx context.Context, r domain.ChatRoomRequest) bool
}

// caller composes the retry policy around a dependency's circuit breaker.
// The breaker sits inside the retry loop: each attempt consults it, and a
// rejection from an open circuit is surfaced immediately rather than retried.
type caller struct {
	name    string
	breaker *Breaker
	retry   RetryConfig
}

func newCaller(name string, cfg Config) *caller {
	return &caller{
		name:    name,
		breaker: NewBreaker(name, cfg.Breaker),
		retry:   cfg.Retry,
	}
}

func (c *caller) do(ctx context.Context, op func(context.Context) error) error {
	return CallWithRetry(ctx, c.name, c.retry, func(ctx context.Context) error {
		return c.breaker.Do(ctx, func(ctx context.Context) error {
			start := time.Now()
			err := op(ctx)
			metrics.DependencyRequestDuration.WithLabelValues(c.name).
				Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.DependencyRequests.WithLabelValues(c.name, "error").Inc()
			} else {
				metrics.DependencyRequests.WithLabelValues(c.name, "success").Inc()
			}
			return err
		})
	})
}

// Orchestrator fronts the catalog, notification, and chat services with
// per-dependency circuit breakers and a shared retry policy.
type Orchestrator struct {
	catalog      *CatalogClient
	notification *NotificationClient
	chat         *ChatClient

	catalogCall *caller
	notifyCall  *caller
	chatCall    *caller
}

// NewOrchestrator creates an orchestrator from config.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig
	}

	return &Orchestrator{
		catalog:      NewCatalogClient(cfg.CatalogURL, cfg.CallTimeout),
		notification: NewNotificationClient(cfg.NotificationURL, cfg.CallTimeout),
		chat:         NewChatClient(cfg.ChatURL, cfg.CallTimeout),
		catalogCall:  newCaller("catalog", cfg),
		notifyCall:   newCaller("notification", cfg),
		chatCall:     newCaller("chat", cfg),
	}
}

// ValidateItems asks the catalog for verdicts on a batch of items. This call
// gates offer creation, so any failure to get an answer surfaces as
// ErrDependencyUnavailable for the caller to map onto its own result.
func (o *Orchestrator) ValidateItems(ctx context.Context, itemIDs []int64) ([]domain.ItemVerdict, error) {
	var verdicts []domain.ItemVerdict
	err := o.catalogCall.do(ctx, func(ctx context.Context) error {
		v, err := o.catalog.ValidateItems(ctx, itemIDs)
		if err != nil {
			return err
		}
		verdicts = v
		return nil
	})
	if err != nil {
		slog.Warn("Catalog validation failed", "items", len(itemIDs), "error", err)
		return nil, ErrDependencyUnavailable
	}

	// The catalog omits unknown items. Offer validation needs a verdict per
	// requested ID, so absent ones are filled in as nonexistent.
	byID := make(map[int64]domain.ItemVerdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.ItemID] = v
	}

	out := make([]domain.ItemVerdict, 0, len(itemIDs))
	for _, id := range itemIDs {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		} else {
			out = append(out, domain.ItemVerdict{ItemID: id})
		}
	}
	return out, nil
}

// Notify delivers a status notification. The call is detached from the
// request context so an aborted request cannot interrupt it mid-flight.
func (o *Orchestrator) Notify(ctx context.Context, n domain.NotificationRequest) bool {
	ctx = context.WithoutCancel(ctx)
	err := o.notifyCall.do(ctx, func(ctx context.Context) error {
		return o.notification.Send(ctx, n)
	})
	if err != nil {
		slog.Warn("Notification delivery failed",
			"user", n.UserID, "offer", n.RelatedOfferID, "type", n.Type, "error", err)
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		return false
	}
	return true
}

// ProvisionChatRoom opens a chat room for an accepted trade.
func (o *Orchestrator) ProvisionChatRoom(ctx context.Context, r domain.ChatRoomRequest) bool {
	ctx = context.WithoutCancel(ctx)
	err := o.chatCall.do(ctx, func(ctx context.Context) error {
		return o.chat.CreateRoom(ctx, r)
	})
	if err != nil {
		slog.Warn("Chat room provisioning failed",
			"offer", r.TradeOfferID, "error", err)
		metrics.SideEffectFailures.WithLabelValues("chat").Inc()
		return false
	}
	return true
}

// Health reports the breaker state per dependency.
func (o *Orchestrator) Health() map[string]string {
	return map[string]string{
		"catalog":      o.catalogCall.breaker.State().String(),
		"notification": o.notifyCall.breaker.State().String(),
		"chat":         o.chatCall.breaker.State().String(),
	}
}

// Close releases idle connections.
func (o *Orchestrator) Close() {
	o.catalog.http.Close()
	o.notification.http.Close()
	o.chat.http.Close()
}
