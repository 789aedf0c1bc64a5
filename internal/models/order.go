// internal/models/order.go
package models

import "time"

// AggregateOrder is a supplier-order placeholder created when an
// order-producing task completes. SourceTaskID identifies the completing
// task so a retried completion can find an order it already created.
type AggregateOrder struct {
	ID             string         `json:"id"`
	EventID        string         `json:"eventId"`
	SourceTaskID   string         `json:"sourceTaskId"`
	SourceOrderIDs []string       `json:"sourceOrderIds,omitempty"`
	Amount         float64        `json:"amount"`
	OrderDate      time.Time      `json:"orderDate"`
	Contents       map[string]int `json:"contents,omitempty"` // item -> quantity
	ArrivedAt      *time.Time     `json:"arrivedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
