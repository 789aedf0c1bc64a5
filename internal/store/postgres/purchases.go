// internal/store/postgres/purchases.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const purchaseColumns = `id, event_id, class_id, parent_email, category, status,
	       lines, total, created_at`

func (s *Store) ListPurchasesByCategory(ctx context.Context, category string) ([]models.PurchaseOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM purchase_orders
		WHERE category = $1
		ORDER BY created_at, id`, category)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("purchase_order", err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

// ListPaidPurchasesByEvent covers both link shapes: purchases pointing at
// the event directly and purchases pointing at one of its classes.
func (s *Store) ListPaidPurchasesByEvent(ctx context.Context, eventID string) ([]models.PurchaseOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.event_id, p.class_id, p.parent_email, p.category, p.status,
		       p.lines, p.total, p.created_at
		FROM purchase_orders p
		LEFT JOIN school_classes c ON c.id = p.class_id
		WHERE p.status = 'paid' AND (p.event_id = $1 OR c.event_id = $1)
		ORDER BY p.created_at, p.id`, eventID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("purchase_order", err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func collectPurchases(rows *sql.Rows) ([]models.PurchaseOrder, error) {
	var purchases []models.PurchaseOrder
	for rows.Next() {
		var p models.PurchaseOrder
		var eventID, classID sql.NullString
		var lines []byte
		if err := rows.Scan(
			&p.ID, &eventID, &classID, &p.ParentEmail, &p.Category, &p.Status,
			&lines, &p.Total, &p.CreatedAt,
		); err != nil {
			return nil, errors.NewStoreQueryFailedError("purchase_order", err)
		}
		p.EventID = eventID.String
		p.ClassID = classID.String
		if len(lines) > 0 {
			if err := json.Unmarshal(lines, &p.Lines); err != nil {
				return nil, errors.NewStoreQueryFailedError("purchase_order", err)
			}
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("purchase_order", err)
	}
	return purchases, nil
}
