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
	ErrInviteCodeNotFound      = errors.New("invite code not found")
	ErrInviteCodeAlreadyExists = errors.New("invite code already exists")
)

const inviteCodeColumns = `
		code, membership_type, status, created_by, note, order_id, reserved_order_id,
		used_by, used_at, expires_at, created_at`

type InviteCodeFilter struct {
	MembershipType string
	Status         string
	Limit          int32
	Offset         int32
}

type InviteCodeRepository struct {
	db DBTX
}

func NewInviteCodeRepository(db DBTX) *InviteCodeRepository {
	return &InviteCodeRepository{db: db}
}

func (r *InviteCodeRepository) Create(ctx context.Context, code *entity.InviteCode) error {
	query := `
		INSERT INTO invite_codes (
			code, membership_type, status, created_by, note, order_id, reserved_order_id,
			used_by, used_at, expires_at, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		code.Code,
		code.MembershipType,
		code.Status,
		code.CreatedBy,
		nullableStringValue(code.Note),
		nullableStringValue(code.OrderID),
		nullableStringValue(code.ReservedOrderID),
		nullableStringValue(code.UsedBy),
		nullableTimeValue(code.UsedAt),
		nullableTimeValue(code.ExpiresAt),
		code.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrInviteCodeAlreadyExists
		}
		return err
	}
	return nil
}

func (r *InviteCodeRepository) FindByCode(ctx context.Context, code string) (*entity.InviteCode, error) {
	query := `SELECT ` + inviteCodeColumns + ` FROM invite_codes WHERE code = ?`

	item := &entity.InviteCode{}
	if err := scanInviteCode(r.db.QueryRowContext(ctx, query, code), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *InviteCodeRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM invite_codes WHERE code = ?)`, code).Scan(&exists)
	return exists, err
}

func (r *InviteCodeRepository) List(ctx context.Context, filter InviteCodeFilter) ([]*entity.InviteCode, error) {
	query := `SELECT ` + inviteCodeColumns + ` FROM invite_codes`
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.MembershipType != "" {
		conditions = append(conditions, "membership_type = ?")
		args = append(args, filter.MembershipType)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.InviteCode, 0)
	for rows.Next() {
		item := &entity.InviteCode{}
		if err := scanInviteCode(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteUnlessUsed removes a code in any status except used, as long as no
// pending order holds it. Expired and disabled codes are removed too.
func (r *InviteCodeRepository) DeleteUnlessUsed(ctx context.Context, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invite_codes WHERE code = ? AND status <> ? AND reserved_order_id IS NULL`,
		code, entity.InviteCodeStatusUsed,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// CountStock counts sellable codes per tier: unused, unexpired, not minted for
// an order and not reserved by a pending one.
func (r *InviteCodeRepository) CountStock(ctx context.Context, now time.Time) (map[string]int, error) {
	query := `
		SELECT membership_type, COUNT(*)
		FROM invite_codes
		WHERE status = ?
		  AND order_id IS NULL
		  AND reserved_order_id IS NULL
		  AND (expires_at IS NULL OR expires_at > ?)
		GROUP BY membership_type
	`

	rows, err := r.db.QueryContext(ctx, query, entity.InviteCodeStatusUnused, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var membershipType string
		var count int
		if err := rows.Scan(&membershipType, &count); err != nil {
			return nil, err
		}
		counts[membershipType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Reserve atomically claims one stock code for orderID. It returns an empty
// string when the tier is sold out.
func (r *InviteCodeRepository) Reserve(ctx context.Context, membershipType, orderID string, now time.Time) (string, error) {
	query := `
		UPDATE invite_codes
		SET reserved_order_id = ?
		WHERE membership_type = ?
		  AND status = ?
		  AND order_id IS NULL
		  AND reserved_order_id IS NULL
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at ASC
		LIMIT 1
	`

	result, err := r.db.ExecContext(ctx, query, orderID, membershipType, entity.InviteCodeStatusUnused, now)
	if err != nil {
		return "", err
	}
	ok, err := affectedOne(result)
	if err != nil || !ok {
		return "", err
	}

	var code string
	if err := r.db.QueryRowContext(ctx, `SELECT code FROM invite_codes WHERE reserved_order_id = ? LIMIT 1`, orderID).Scan(&code); err != nil {
		return "", err
	}
	return code, nil
}

func (r *InviteCodeRepository) ReleaseReservation(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE invite_codes SET reserved_order_id = NULL WHERE reserved_order_id = ?`, orderID)
	return err
}

// ConsumeReservation removes the stock code sold through orderID.
func (r *InviteCodeRepository) ConsumeReservation(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invite_codes WHERE reserved_order_id = ?`, orderID)
	return err
}

// MarkUsed flips an unused, unreserved code to used. It reports false when
// the code was not redeemable.
func (r *InviteCodeRepository) MarkUsed(ctx context.Context, code, usedBy string, now time.Time) (bool, error) {
	query := `
		UPDATE invite_codes
		SET status = ?, used_by = ?, used_at = ?
		WHERE code = ?
		  AND status = ?
		  AND reserved_order_id IS NULL
		  AND (expires_at IS NULL OR expires_at > ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		entity.InviteCodeStatusUsed, usedBy, now, code, entity.InviteCodeStatusUnused, now,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *InviteCodeRepository) UpdateStatus(ctx context.Context, code, status string, note *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invite_codes SET status = ?, note = ? WHERE code = ?`,
		status, nullableStringValue(note), code,
	)
	return err
}

func (r *InviteCodeRepository) Delete(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM invite_codes WHERE code = ?`, code)
	return err
}

func (r *InviteCodeRepository) ExpireOverdue(ctx context.Context, now time.Time, limit int32) (int64, error) {
	query := `
		UPDATE invite_codes
		SET status = ?
		WHERE status = ?
		  AND reserved_order_id IS NULL
		  AND expires_at IS NOT NULL
		  AND expires_at <= ?
		LIMIT ?
	`
	result, err := r.db.ExecContext(ctx, query, entity.InviteCodeStatusExpired, entity.InviteCodeStatusUnused, now, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanInviteCode(scan rowScanner, item *entity.InviteCode) error {
	var note sql.NullString
	var orderID sql.NullString
	var reservedOrderID sql.NullString
	var usedBy sql.NullString
	var usedAt sql.NullTime
	var expiresAt sql.NullTime

	err := scan.Scan(
		&item.Code,
		&item.MembershipType,
		&item.Status,
		&item.CreatedBy,
		&note,
		&orderID,
		&reservedOrderID,
		&usedBy,
		&usedAt,
		&expiresAt,
		&item.CreatedAt,
	)
	if err != nil {
		return err
	}

	item.Note = stringPtrFromNull(note)
	item.OrderID = stringPtrFromNull(orderID)
	item.ReservedOrderID = stringPtrFromNull(reservedOrderID)
	item.UsedBy = stringPtrFromNull(usedBy)
	item.UsedAt = timePtrFromNull(usedAt)
	item.ExpiresAt = timePtrFromNull(expiresAt)
	return nil
}
