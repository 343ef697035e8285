package remote

import (
	"context"
	"time"

	"github.com/vietddude/swapmatch/internal/core/domain"
)

// NotificationClient talks to the notification service.
type NotificationClient struct {
	http *Client
}

// NewNotificationClient creates a notification client.
func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{http: NewClient("notification", baseURL, timeout)}
}

// Send delivers a notification.
func (c *NotificationClient) Send(ctx context.Context, n domain.NotificationRequest) error {
	return c.http.PostJSON(ctx, "/api/v1/notifications", n, nil)
}
