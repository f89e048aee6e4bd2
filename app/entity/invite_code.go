package entity

import "time"

const (
	InviteCodeStatusUnused   = "unused"
	InviteCodeStatusUsed     = "used"
	InviteCodeStatusExpired  = "expired"
	InviteCodeStatusDisabled = "disabled"
)

const InviteCodeCreatedBySystem = "system"

type InviteCode struct {
	Code           string
	MembershipType string
	Status         string

	CreatedBy string
	Note      *string

	// OrderID is set for codes minted when an order is fulfilled.
	OrderID *string
	// ReservedOrderID holds a stock code for a pending order.
	ReservedOrderID *string

	UsedBy *string
	UsedAt *time.Time

	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Redeemable reports whether the code can still be used at now.
func (c *InviteCode) Redeemable(now time.Time) bool {
	if c.Status != InviteCodeStatusUnused {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}
