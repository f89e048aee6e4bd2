package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

func newSettingsControllerForTest(deps *controllerDeps) *SettingsController {
	settingsService := deps.settingsService()
	return NewSettingsController(settingsService, service.NewEmailService(settingsService, "LunaTV", nil))
}

func TestGetPaymentConfigMasksSecret(t *testing.T) {
	deps := newControllerDeps()
	deps.settings.payment.XorPay.AppSecret = entity.NewSecret("xp-live-key")
	ctrl := newSettingsControllerForTest(deps)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/payment/config", nil)
	rec := httptest.NewRecorder()

	_ = ctrl.GetPaymentConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "xp-live-key") {
		t.Fatalf("expected secret masked, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"appSecret":"******"`) {
		t.Fatalf("expected masked placeholder, got %s", rec.Body.String())
	}
}

func TestSavePaymentConfigKeepsStoredSecret(t *testing.T) {
	deps := newControllerDeps()
	deps.settings.payment.XorPay.AppSecret = entity.NewSecret("xp-live-key")
	ctrl := newSettingsControllerForTest(deps)
	e := echo.New()
	body := `{"enabled":true,"method":"xorpay_alipay","xorpay":{"appId":"app-2","appSecret":"******"}}`
	req := httptest.NewRequest(http.MethodPost, "/admin/payment/config", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SavePaymentConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if deps.settings.payment.XorPay.AppSecret.Reveal() != "xp-live-key" {
		t.Fatalf("expected stored secret kept, got %q", deps.settings.payment.XorPay.AppSecret.Reveal())
	}
	if deps.settings.payment.XorPay.AppID != "app-2" || deps.settings.payment.Method != entity.PaymentMethodXorPayAlipay {
		t.Fatalf("unexpected stored settings: %+v", deps.settings.payment)
	}
	if strings.Contains(rec.Body.String(), "xp-live-key") {
		t.Fatal("expected secret masked in the response")
	}
}

func TestSavePaymentConfigRejectsUnknownMethod(t *testing.T) {
	ctrl := newSettingsControllerForTest(newControllerDeps())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/payment/config", bytes.NewBufferString(`{"enabled":false,"method":"paypal"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SavePaymentConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetEmailConfigMasksSecrets(t *testing.T) {
	deps := newControllerDeps()
	deps.settings.email = &entity.EmailSettings{
		Enabled:   true,
		Provider:  entity.EmailProviderSMTP,
		SMTP:      &entity.SMTPSettings{Host: "smtp.example.com", Port: 465, User: "mailer", Pass: entity.NewSecret("smtp-pass")},
		FromEmail: "noreply@example.com",
	}
	ctrl := newSettingsControllerForTest(deps)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/email/config", nil)
	rec := httptest.NewRecorder()

	_ = ctrl.GetEmailConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "smtp-pass") {
		t.Fatalf("expected password masked, got %s", rec.Body.String())
	}
}

func TestSendTestEmailValidation(t *testing.T) {
	ctrl := newSettingsControllerForTest(newControllerDeps())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/email/test", bytes.NewBufferString(`{"config":{"enabled":true,"provider":"smtp"}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SendTestEmail(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPurchaseLimitsRoundTrip(t *testing.T) {
	deps := newControllerDeps()
	ctrl := newSettingsControllerForTest(deps)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/admin/purchase-limits", bytes.NewBufferString(`{"trialMaxPerEmail":2,"trialMaxPerDay":50}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = ctrl.SavePurchaseLimits(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/purchase-limits", nil)
	rec = httptest.NewRecorder()
	_ = ctrl.GetPurchaseLimits(e.NewContext(req, rec))

	var payload types.PurchaseLimitsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Limits == nil || payload.Limits.TrialMaxPerEmail != 2 || payload.Limits.TrialMaxPerDay != 50 {
		t.Fatalf("unexpected limits payload: %+v", payload.Limits)
	}
}

func TestSavePurchaseLimitsRejectsNegative(t *testing.T) {
	ctrl := newSettingsControllerForTest(newControllerDeps())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/purchase-limits", bytes.NewBufferString(`{"trialMaxPerEmail":-1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SavePurchaseLimits(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetMembershipConfigDefaults(t *testing.T) {
	ctrl := newSettingsControllerForTest(newControllerDeps())
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/membership/config", nil)
	rec := httptest.NewRecorder()

	_ = ctrl.GetMembershipConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload types.MembershipConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Config) != len(entity.MembershipTypes) {
		t.Fatalf("expected every tier, got %d", len(payload.Config))
	}
	if monthly := payload.Config[entity.MembershipMonthly]; monthly == nil || monthly.Price != 25 {
		t.Fatalf("unexpected monthly tier: %+v", monthly)
	}
}

func TestSaveMembershipConfigRequiresEveryTier(t *testing.T) {
	ctrl := newSettingsControllerForTest(newControllerDeps())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/membership/config", bytes.NewBufferString(`{"monthly":{"name":"Monthly","duration":30,"price":20}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SaveMembershipConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSaveMembershipConfigSanitizesNames(t *testing.T) {
	deps := newControllerDeps()
	ctrl := newSettingsControllerForTest(deps)
	e := echo.New()
	body := `{
		"trial":{"name":"Trial","duration":1,"price":0.1},
		"monthly":{"name":"<b>Monthly</b>","duration":30,"price":20,"discountPrice":15},
		"quarterly":{"name":"Quarterly","duration":90,"price":60},
		"yearly":{"name":"Yearly","duration":365,"price":199},
		"lifetime":{"name":"Lifetime","duration":0,"price":399}
	}`
	req := httptest.NewRequest(http.MethodPost, "/admin/membership/config", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	_ = ctrl.SaveMembershipConfig(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	monthly := deps.settings.tiers[entity.MembershipMonthly]
	if monthly.Name != "Monthly" || monthly.ActualPrice().String() != "15" {
		t.Fatalf("unexpected stored tier: %+v", monthly)
	}
}
