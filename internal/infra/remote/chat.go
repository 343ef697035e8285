package remote

import (
	"context"
	"time"

	"github.com/vietddude/swapmatch/internal/core/domain"
)

// ChatClient talks to the chat service.
type ChatClient struct {
	http *Client
}

// NewChatClient creates a chat client.
func NewChatClient(baseURL string, timeout time.Duration) *ChatClient {
	return &ChatClient{http: NewClient("chat", baseURL, timeout)}
}

// CreateRoom provisions a chat room for a trade.
func (c *ChatClient) CreateRoom(ctx context.Context, r domain.ChatRoomRequest) error {
	return c.http.PostJSON(ctx, "/api/v1/chat-rooms", r, nil)
}
