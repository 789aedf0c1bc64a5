// internal/store/postgres/orders.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/models"
)

const orderColumns = `id, event_id, source_task_id, source_order_ids, amount,
	       order_date, contents, arrived_at, created_at`

func (s *Store) CreateOrder(ctx context.Context, order *models.AggregateOrder) error {
	contents, err := json.Marshal(order.Contents)
	if err != nil {
		return errors.NewStoreWriteFailedError("aggregate_order", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aggregate_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		order.ID, order.EventID, order.SourceTaskID, pq.Array(order.SourceOrderIDs),
		order.Amount, order.OrderDate, contents, order.ArrivedAt, order.CreatedAt,
	)
	if err != nil {
		return errors.NewStoreWriteFailedError("aggregate_order", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.AggregateOrder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM aggregate_orders
		WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewStoreQueryFailedError("aggregate_order", sql.ErrNoRows)
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("aggregate_order", err)
	}
	return o, nil
}

func (s *Store) FindOrderByTask(ctx context.Context, taskID string) (*models.AggregateOrder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM aggregate_orders
		WHERE source_task_id = $1`, taskID)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("aggregate_order", err)
	}
	return o, nil
}

func (s *Store) SetOrderArrival(ctx context.Context, orderID string, arrivedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE aggregate_orders
		SET arrived_at = $2
		WHERE id = $1`, orderID, arrivedAt)
	if err != nil {
		return errors.NewStoreWriteFailedError("aggregate_order", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewStoreWriteFailedError("aggregate_order", sql.ErrNoRows)
	}
	return nil
}

func scanOrder(row rowScanner) (*models.AggregateOrder, error) {
	var o models.AggregateOrder
	var contents []byte
	var arrivedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.EventID, &o.SourceTaskID, pq.Array(&o.SourceOrderIDs),
		&o.Amount, &o.OrderDate, &contents, &arrivedAt, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(contents) > 0 {
		if err := json.Unmarshal(contents, &o.Contents); err != nil {
			return nil, err
		}
	}
	if arrivedAt.Valid {
		a := arrivedAt.Time
		o.ArrivedAt = &a
	}
	return &o, nil
}
