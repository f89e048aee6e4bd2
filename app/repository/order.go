package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

const orderColumns = `
		id, order_id, user_id, email, membership_type, amount, payment_method, status,
		invite_code, reserved_code, transaction_id, notify_json, email_sent,
		refund_status, refund_at, refund_reason, refund_no, refund_fee,
		created_at, paid_at, completed_at, updated_at`

type OrderFilter struct {
	UserID string
	Limit  int32
	Offset int32
}

// TrialOrderFilter selects trial orders counted against purchase limits:
// completed or paid orders, plus pending orders created after PendingAfter.
type TrialOrderFilter struct {
	Email        string
	Since        *time.Time
	PendingAfter time.Time
}

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	notifyJSON, err := serializeFields(order.NotifyData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			order_id, user_id, email, membership_type, amount, payment_method, status,
			invite_code, reserved_code, transaction_id, notify_json, email_sent,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.OrderID,
		nullableStringValue(order.UserID),
		order.Email,
		order.MembershipType,
		order.Amount,
		order.PaymentMethod,
		order.Status,
		nullableStringValue(order.InviteCode),
		nullableStringValue(order.ReservedCode),
		nullableStringValue(order.TransactionID),
		nullableStringValue(notifyJSON),
		nullableBoolValue(order.EmailSent),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ?`

	order := &entity.Order{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := make([]interface{}, 0, 3)

	if strings.TrimSpace(filter.UserID) != "" {
		query += " WHERE user_id = ?"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.queryOrders(ctx, query, args...)
}

func (r *OrderRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryOrders(ctx, query, entity.OrderStatusPending, before, limit)
}

func (r *OrderRepository) UpdatePaymentMethod(ctx context.Context, orderID, method string, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_method = ?, updated_at = ? WHERE order_id = ?`,
		method, now, orderID,
	)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}

// CompleteIfOpen moves a pending or expired (cancelled) order to completed. It
// reports false when the order was already completed or refunded.
func (r *OrderRepository) CompleteIfOpen(ctx context.Context, order *entity.Order) (bool, error) {
	notifyJSON, err := serializeFields(order.NotifyData)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE orders SET
			status = ?,
			invite_code = ?,
			reserved_code = NULL,
			transaction_id = ?,
			notify_json = ?,
			paid_at = ?,
			completed_at = ?,
			updated_at = ?
		WHERE order_id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusCompleted,
		nullableStringValue(order.InviteCode),
		nullableStringValue(order.TransactionID),
		nullableStringValue(notifyJSON),
		nullableTimeValue(order.PaidAt),
		nullableTimeValue(order.CompletedAt),
		order.UpdatedAt,
		order.OrderID,
		entity.OrderStatusPending,
		entity.OrderStatusCancelled,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *OrderRepository) SetEmailSent(ctx context.Context, orderID string, sent bool, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET email_sent = ?, updated_at = ? WHERE order_id = ?`,
		sent, now, orderID,
	)
	return err
}

func (r *OrderRepository) UpdateRefund(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			status = ?,
			refund_status = ?,
			refund_at = ?,
			refund_reason = ?,
			refund_no = ?,
			refund_fee = ?,
			updated_at = ?
		WHERE order_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Status,
		nullableStringValue(order.RefundStatus),
		nullableTimeValue(order.RefundAt),
		nullableStringValue(order.RefundReason),
		nullableStringValue(order.RefundNo),
		nullableStringValue(order.RefundFee),
		order.UpdatedAt,
		order.OrderID,
	)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) CancelIfPending(ctx context.Context, orderID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, reserved_code = NULL, updated_at = ? WHERE order_id = ? AND status = ?`,
		entity.OrderStatusCancelled, now, orderID, entity.OrderStatusPending,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *OrderRepository) CountTrialOrders(ctx context.Context, filter TrialOrderFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE membership_type = ?
		  AND (status IN (?, ?) OR (status = ? AND created_at > ?))
	`
	args := []interface{}{
		entity.MembershipTrial,
		entity.OrderStatusCompleted,
		entity.OrderStatusPaid,
		entity.OrderStatusPending,
		filter.PendingAfter,
	}
	if filter.Email != "" {
		query += " AND email = ?"
		args = append(args, filter.Email)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.Since)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		item := &entity.Order{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(scan rowScanner, order *entity.Order) error {
	var userID sql.NullString
	var inviteCode sql.NullString
	var reservedCode sql.NullString
	var transactionID sql.NullString
	var notifyJSON sql.NullString
	var emailSent sql.NullBool
	var refundStatus sql.NullString
	var refundAt sql.NullTime
	var refundReason sql.NullString
	var refundNo sql.NullString
	var refundFee sql.NullString
	var paidAt sql.NullTime
	var completedAt sql.NullTime

	err := scan.Scan(
		&order.ID,
		&order.OrderID,
		&userID,
		&order.Email,
		&order.MembershipType,
		&order.Amount,
		&order.PaymentMethod,
		&order.Status,
		&inviteCode,
		&reservedCode,
		&transactionID,
		&notifyJSON,
		&emailSent,
		&refundStatus,
		&refundAt,
		&refundReason,
		&refundNo,
		&refundFee,
		&order.CreatedAt,
		&paidAt,
		&completedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.UserID = stringPtrFromNull(userID)
	order.InviteCode = stringPtrFromNull(inviteCode)
	order.ReservedCode = stringPtrFromNull(reservedCode)
	order.TransactionID = stringPtrFromNull(transactionID)
	order.EmailSent = boolPtrFromNull(emailSent)
	order.RefundStatus = stringPtrFromNull(refundStatus)
	order.RefundAt = timePtrFromNull(refundAt)
	order.RefundReason = stringPtrFromNull(refundReason)
	order.RefundNo = stringPtrFromNull(refundNo)
	order.RefundFee = stringPtrFromNull(refundFee)
	order.PaidAt = timePtrFromNull(paidAt)
	order.CompletedAt = timePtrFromNull(completedAt)

	notifyData, err := parseFields(notifyJSON)
	if err != nil {
		return err
	}
	order.NotifyData = notifyData

	return nil
}
