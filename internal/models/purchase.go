// internal/models/purchase.go
package models

import "time"

// PurchaseOrder is a read-only record from the order source: one parent
// purchase with line items, linked to an event directly or via a class.
type PurchaseOrder struct {
	ID          string         `json:"id"`
	EventID     string         `json:"eventId,omitempty"`
	ClassID     string         `json:"classId,omitempty"`
	ParentEmail string         `json:"parentEmail"`
	Category    string         `json:"category"`
	Status      string         `json:"status"`
	Lines       []PurchaseLine `json:"lines,omitempty"`
	Total       float64        `json:"total"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PurchaseLine is one item of a purchase.
type PurchaseLine struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Purchase payment statuses.
const (
	PurchaseStatusPaid      = "paid"
	PurchaseStatusPending   = "pending"
	PurchaseStatusCancelled = "cancelled"
)
