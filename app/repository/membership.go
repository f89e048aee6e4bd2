package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

type MembershipRepository struct {
	db DBTX
}

func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) FindByUsername(ctx context.Context, username string) (*entity.UserMembership, error) {
	query := `
		SELECT username, membership_type, start_date, expiry_date, is_active,
			activated_by, activated_at, updated_at
		FROM user_memberships
		WHERE username = ?
	`

	var membershipType sql.NullString
	var expiryDate sql.NullTime
	item := &entity.UserMembership{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&item.Username,
		&membershipType,
		&item.StartDate,
		&expiryDate,
		&item.IsActive,
		&item.ActivatedBy,
		&item.ActivatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.MembershipType = stringPtrFromNull(membershipType)
	item.ExpiryDate = timePtrFromNull(expiryDate)
	return item, nil
}

// Save inserts or replaces the membership of a user.
func (r *MembershipRepository) Save(ctx context.Context, membership *entity.UserMembership) error {
	query := `
		INSERT INTO user_memberships (
			username, membership_type, start_date, expiry_date, is_active,
			activated_by, activated_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			membership_type = VALUES(membership_type),
			start_date = VALUES(start_date),
			expiry_date = VALUES(expiry_date),
			is_active = VALUES(is_active),
			activated_by = VALUES(activated_by),
			activated_at = VALUES(activated_at),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		membership.Username,
		nullableStringValue(membership.MembershipType),
		membership.StartDate,
		nullableTimeValue(membership.ExpiryDate),
		membership.IsActive,
		membership.ActivatedBy,
		membership.ActivatedAt,
		membership.UpdatedAt,
	)
	return err
}
