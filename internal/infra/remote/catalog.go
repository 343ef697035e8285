package remote

import (
	"context"
	"time"

	"github.com/vietddude/swapmatch/internal/core/domain"
)

// CatalogClient talks to the catalog service's item validation endpoint.
type CatalogClient struct {
	http *Client
}

// NewCatalogClient creates a catalog client.
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{http: NewClient("catalog", baseURL, timeout)}
}

// ValidateItems fetches verdicts for a batch of item IDs. The catalog omits
// items it has never seen; callers must not assume a verdict per requested ID.
func (c *CatalogClient) ValidateItems(ctx context.Context, itemIDs []int64) ([]domain.ItemVerdict, error) {
	req := map[string]any{"item_ids": itemIDs}

	var resp struct {
		Validations []domain.ItemVerdict `json:"validations"`
	}
	if err := c.http.PostJSON(ctx, "/api/v1/items/validate", req, &resp); err != nil {
		return nil, err
	}
	return resp.Validations, nil
}
