package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestActualPriceUsesValidDiscount(t *testing.T) {
	discount := decimal.RequireFromString("19.9")
	tier := MembershipTier{Price: decimal.NewFromInt(25), DiscountPrice: &discount}
	if !tier.ActualPrice().Equal(discount) {
		t.Fatalf("expected discount price, got %s", tier.ActualPrice())
	}
}

func TestActualPriceIgnoresInvalidDiscount(t *testing.T) {
	cases := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-1),
		decimal.NewFromInt(25),
		decimal.NewFromInt(30),
	}
	for _, discount := range cases {
		d := discount
		tier := MembershipTier{Price: decimal.NewFromInt(25), DiscountPrice: &d}
		if !tier.ActualPrice().Equal(decimal.NewFromInt(25)) {
			t.Fatalf("expected list price for discount %s, got %s", d, tier.ActualPrice())
		}
	}
}

func TestMergeKeepsDefaultsForMissingTiers(t *testing.T) {
	disabled := false
	merged := DefaultMembershipConfig().Merge(MembershipConfig{
		MembershipMonthly: {Name: "Monthly", Duration: 31, Price: decimal.NewFromInt(20), Enabled: &disabled},
		"weekly":          {Name: "Weekly"},
	})
	if len(merged) != 5 {
		t.Fatalf("expected 5 tiers, got %d", len(merged))
	}
	if merged[MembershipMonthly].Duration != 31 || merged[MembershipMonthly].IsEnabled() {
		t.Fatalf("unexpected monthly tier: %+v", merged[MembershipMonthly])
	}
	if merged[MembershipMonthly].Type != MembershipMonthly {
		t.Fatalf("expected type to be set, got %q", merged[MembershipMonthly].Type)
	}
	if merged[MembershipYearly].Duration != 365 {
		t.Fatalf("expected default yearly tier, got %+v", merged[MembershipYearly])
	}
}

func TestRemainingDays(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tier := MembershipMonthly

	lifetime := &UserMembership{MembershipType: &tier, IsActive: true}
	if lifetime.RemainingDays(now) != -1 {
		t.Fatalf("expected -1 for lifetime, got %d", lifetime.RemainingDays(now))
	}

	expiry := now.Add(36 * time.Hour)
	timed := &UserMembership{MembershipType: &tier, IsActive: true, ExpiryDate: &expiry}
	if timed.RemainingDays(now) != 2 {
		t.Fatalf("expected 2 days, got %d", timed.RemainingDays(now))
	}

	past := now.Add(-time.Hour)
	expired := &UserMembership{MembershipType: &tier, IsActive: true, ExpiryDate: &past}
	if expired.Active(now) || expired.RemainingDays(now) != 0 {
		t.Fatal("expected expired membership to be inactive")
	}
}
