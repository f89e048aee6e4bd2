package mapper

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
)

func TestPaymentSettingsToResponseMasksSecrets(t *testing.T) {
	out := PaymentSettingsToResponse(&entity.PaymentSettings{
		Enabled: true,
		Method:  entity.PaymentMethodXorPayWechat,
		XorPay:  &entity.XorPayCredentials{AppID: "app-1", AppSecret: entity.NewSecret("top-secret")},
	})

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "top-secret") {
		t.Fatalf("expected secret masked, got %s", raw)
	}
	if len(out.EnabledMethods) != 1 || out.EnabledMethods[0] != entity.XorPayMethodWechat {
		t.Fatalf("expected method derived channel, got %v", out.EnabledMethods)
	}
}

func TestEmailSettingsToResponseMasksSecrets(t *testing.T) {
	out := EmailSettingsToResponse(&entity.EmailSettings{
		Provider:     entity.EmailProviderSMTP,
		SMTP:         &entity.SMTPSettings{Host: "smtp.example.com", Pass: entity.NewSecret("pw")},
		ResendAPIKey: entity.NewSecret("re_123"),
	})

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(raw), "re_123") || strings.Contains(string(raw), `"pw"`) {
		t.Fatalf("expected secrets masked, got %s", raw)
	}
}

func TestPaymentStatusHidesMethodsWhenDisabled(t *testing.T) {
	out := PaymentStatusToResponse(&entity.PaymentSettings{Method: entity.PaymentMethodXorPayAlipay})
	if out.Enabled || len(out.EnabledMethods) != 0 {
		t.Fatalf("expected disabled status, got %+v", out)
	}
}

func TestUserMembershipToResponse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	monthly := entity.MembershipMonthly
	expiry := now.Add(36 * time.Hour)

	out := UserMembershipToResponse(&entity.UserMembership{
		Username:       "alice",
		MembershipType: &monthly,
		StartDate:      now.Add(-time.Hour),
		ExpiryDate:     &expiry,
		IsActive:       true,
	}, entity.DefaultMembershipConfig(), now)

	if !out.IsActive || out.RemainingDays != 2 || out.Lifetime {
		t.Fatalf("unexpected membership view: %+v", out)
	}
	if out.Name != "月度会员" {
		t.Fatalf("expected tier name, got %q", out.Name)
	}
	if UserMembershipToResponse(nil, nil, now) != nil {
		t.Fatal("expected nil for missing membership")
	}
}

func TestStockToResponseUsesActualPrice(t *testing.T) {
	tier := entity.DefaultMembershipConfig()[entity.MembershipYearly]
	discount := decimal.NewFromInt(150)
	tier.DiscountPrice = &discount

	out := StockToResponse([]service.TierStock{{Tier: tier, Stock: 3, Available: true}})
	if out.Stock[0].Price != 199 || out.Stock[0].ActualPrice != 150 {
		t.Fatalf("unexpected prices: %+v", out.Stock[0])
	}
}

func TestOrderToResponse(t *testing.T) {
	code := "ABCDEFGHJKLM"
	out := OrderToResponse(&entity.Order{
		OrderID:    "ORD1",
		Amount:     decimal.RequireFromString("0.10"),
		Status:     entity.OrderStatusCompleted,
		InviteCode: &code,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if out.Amount != 0.1 || out.InviteCode != code || out.CreatedAt != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected order response: %+v", out)
	}
}
