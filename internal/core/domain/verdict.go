package domain

// ItemVerdict is the catalog service's judgement on a single item.
// An item the catalog has never seen comes back with Exists false and
// the remaining fields at their zero values.
type ItemVerdict struct {
	ItemID   int64  `json:"item_id"`
	Exists   bool   `json:"exists"`
	IsActive bool   `json:"is_active"`
	OwnerID  string `json:"owner_id"`
}
