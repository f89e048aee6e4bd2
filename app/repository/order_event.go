package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

type OrderEventRepository struct {
	db DBTX
}

func NewOrderEventRepository(db DBTX) *OrderEventRepository {
	return &OrderEventRepository{db: db}
}

func (r *OrderEventRepository) Create(ctx context.Context, event *entity.OrderEvent) error {
	query := `
		INSERT INTO order_events (
			order_id, event_type, old_status, new_status, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.OrderID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
