package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MembershipTrial     = "trial"
	MembershipMonthly   = "monthly"
	MembershipQuarterly = "quarterly"
	MembershipYearly    = "yearly"
	MembershipLifetime  = "lifetime"
)

// MembershipTypes lists every tier in display order.
var MembershipTypes = []string{
	MembershipTrial,
	MembershipMonthly,
	MembershipQuarterly,
	MembershipYearly,
	MembershipLifetime,
}

func IsMembershipType(value string) bool {
	for _, item := range MembershipTypes {
		if item == value {
			return true
		}
	}
	return false
}

type MembershipTier struct {
	Type          string
	Name          string
	Duration      int
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Discount      *int
	Enabled       *bool
	Description   string
	Features      []string
}

// IsEnabled treats an unset flag as enabled.
func (t MembershipTier) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// ActualPrice is the discount price when it is positive and below the list price.
func (t MembershipTier) ActualPrice() decimal.Decimal {
	if t.DiscountPrice != nil && t.DiscountPrice.IsPositive() && t.DiscountPrice.LessThan(t.Price) {
		return *t.DiscountPrice
	}
	return t.Price
}

func (t MembershipTier) IsLifetime() bool {
	return t.Duration == 0
}

type MembershipConfig map[string]MembershipTier

func DefaultMembershipConfig() MembershipConfig {
	return MembershipConfig{
		MembershipTrial: {
			Type:        MembershipTrial,
			Name:        "体验会员",
			Duration:    1,
			Price:       decimal.RequireFromString("0.1"),
			Description: "1天体验会员权限",
		},
		MembershipMonthly: {
			Type:        MembershipMonthly,
			Name:        "月度会员",
			Duration:    30,
			Price:       decimal.NewFromInt(25),
			Description: "1个月会员权限",
		},
		MembershipQuarterly: {
			Type:        MembershipQuarterly,
			Name:        "季度会员",
			Duration:    90,
			Price:       decimal.NewFromInt(60),
			Description: "3个月会员权限",
		},
		MembershipYearly: {
			Type:        MembershipYearly,
			Name:        "年度会员",
			Duration:    365,
			Price:       decimal.NewFromInt(199),
			Description: "12个月会员权限",
		},
		MembershipLifetime: {
			Type:        MembershipLifetime,
			Name:        "永久会员",
			Duration:    0,
			Price:       decimal.NewFromInt(399),
			Description: "永久会员权限",
		},
	}
}

// Merge overlays stored tiers on top of the defaults.
func (c MembershipConfig) Merge(stored MembershipConfig) MembershipConfig {
	merged := make(MembershipConfig, len(c))
	for key, tier := range c {
		merged[key] = tier
	}
	for key, tier := range stored {
		if !IsMembershipType(key) {
			continue
		}
		tier.Type = key
		merged[key] = tier
	}
	return merged
}

type UserMembership struct {
	Username       string
	MembershipType *string
	StartDate      time.Time
	// ExpiryDate is nil for lifetime memberships.
	ExpiryDate  *time.Time
	IsActive    bool
	ActivatedBy string
	ActivatedAt time.Time
	UpdatedAt   time.Time
}

func (m *UserMembership) Active(now time.Time) bool {
	if m == nil || !m.IsActive || m.MembershipType == nil {
		return false
	}
	return m.ExpiryDate == nil || m.ExpiryDate.After(now)
}

// RemainingDays returns -1 for lifetime memberships and 0 when inactive.
func (m *UserMembership) RemainingDays(now time.Time) int {
	if !m.Active(now) {
		return 0
	}
	if m.ExpiryDate == nil {
		return -1
	}
	return int(math.Ceil(m.ExpiryDate.Sub(now).Hours() / 24))
}
