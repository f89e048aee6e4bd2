package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func newTestXorPay(endpoints ...string) *XorPayProvider {
	p := NewXorPayProvider(XorPayConfig{Endpoints: endpoints, HTTPTimeout: time.Second})
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	p.nonce = func() string { return "0123456789abcdef0123456789abcdef" }
	return p
}

func TestCreateChargeSignsFormRequest(t *testing.T) {
	var received url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/do.html" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type: %s", ct)
		}
		_ = r.ParseForm()
		received = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"success!","url_qrcode":"https://qr.example/1","url":"https://pay.example/1","openid":20001}`))
	}))
	defer srv.Close()

	p := newTestXorPay(srv.URL)
	out, err := p.CreateCharge(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, &ChargeInput{
		OrderID:   "ORD1",
		Amount:    decimal.RequireFromString("25"),
		Title:     "月度会员购买",
		Channel:   "alipay",
		NotifyURL: "https://site/api/payment/callback/xorpay",
		ReturnURL: "https://site/purchase?order_id=ORD1&status=success",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.QRCodeURL != "https://qr.example/1" || out.URL != "https://pay.example/1" || out.OpenOrderID != "20001" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if received.Get("total_fee") != "25.00" {
		t.Fatalf("expected two-decimal amount, got %q", received.Get("total_fee"))
	}
	if received.Get("version") != "1.1" || received.Get("type") != "alipay" || received.Get("time") != "1700000000" {
		t.Fatalf("unexpected params: %v", received)
	}

	fields := map[string]string{}
	for key := range received {
		fields[key] = received.Get(key)
	}
	if !VerifySignature(fields, "secret") {
		t.Fatal("expected outbound request to carry a valid signature")
	}
}

func TestCreateChargeSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":10002,"errmsg":"appid is invalid"}`))
	}))
	defer srv.Close()

	p := newTestXorPay(srv.URL)
	_, err := p.CreateCharge(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, &ChargeInput{OrderID: "ORD1", Amount: decimal.NewFromInt(1)})

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.Code != 10002 || gatewayErr.Message != "appid is invalid" {
		t.Fatalf("unexpected gateway error: %+v", gatewayErr)
	}
}

func TestCreateChargeRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	p := newTestXorPay(srv.URL)
	_, err := p.CreateCharge(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, &ChargeInput{OrderID: "ORD1", Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestPostFormFallsBackToMirrorOnConnectionFailure(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	var hits int32
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"errcode":0,"data":{"status":"OD","open_order_id":"99"}}`))
	}))
	defer live.Close()

	p := newTestXorPay(deadURL, live.URL)
	out, err := p.QueryOrder(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, "ORD1")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if out.Status != GatewayStatusPaid || out.OpenOrderID != "99" {
		t.Fatalf("unexpected query output: %+v", out)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one hit on mirror, got %d", hits)
	}
}

func TestPostFormStopsAtFirstReachableEndpoint(t *testing.T) {
	var secondHits int32
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&secondHits, 1)
	}))
	defer second.Close()

	p := newTestXorPay(first.URL, second.URL)
	_, err := p.QueryOrder(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, "ORD1")
	if err == nil {
		t.Fatal("expected error for HTTP failure")
	}
	if errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected HTTP status error, not unavailable: %v", err)
	}
	if atomic.LoadInt32(&secondHits) != 0 {
		t.Fatal("expected mirror not to be contacted after a reachable endpoint answered")
	}
}

func TestPostFormAggregatesTimeouts(t *testing.T) {
	block := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(block)

	p := newTestXorPay(slow.URL, slow.URL)
	p.timeout = 50 * time.Millisecond

	_, err := p.QueryOrder(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, "ORD1")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if len(unavailable.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(unavailable.Attempts))
	}
	if !unavailable.Timeout() {
		t.Fatalf("expected timeout classification, got %v", unavailable)
	}
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatal("expected error to match ErrGatewayUnavailable")
	}
}

func TestPostFormConnectionFailureIsNotTimeout(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	p := newTestXorPay(deadURL)
	_, err := p.QueryOrder(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, "ORD1")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavailable.Timeout() {
		t.Fatal("expected connection failure, not timeout")
	}
}

func TestRefundTruncatesReason(t *testing.T) {
	var reason string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		reason = r.PostForm.Get("reason")
		_, _ = w.Write([]byte(`{"errcode":0,"refund_status":"CD","out_refund_no":"R1","refund_fee":25.5,"refund_time":"2026-01-01 10:00:00"}`))
	}))
	defer srv.Close()

	long := ""
	for i := 0; i < 100; i++ {
		long += "退"
	}

	p := newTestXorPay(srv.URL)
	out, err := p.Refund(context.Background(), Credentials{AppID: "app", AppSecret: "secret"}, &RefundInput{OrderID: "ORD1", Reason: long})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if utf8.RuneCountInString(reason) != 80 {
		t.Fatalf("expected reason truncated to 80 runes, got %d", utf8.RuneCountInString(reason))
	}
	if out.RefundStatus != GatewayStatusRefunded || out.RefundNo != "R1" || out.RefundFee != "25.5" {
		t.Fatalf("unexpected refund output: %+v", out)
	}
}

func TestBuildCheckoutTruncatesTitleAndOmitsSecret(t *testing.T) {
	p := newTestXorPay("https://gw.example")
	title := ""
	for i := 0; i < 60; i++ {
		title += "会"
	}

	checkout, err := p.BuildCheckout(Credentials{AppID: "app", AppSecret: "secret"}, &ChargeInput{OrderID: "ORD1", Amount: decimal.RequireFromString("0.1"), Title: title})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if utf8.RuneCountInString(checkout.Params["title"]) != 42 {
		t.Fatalf("expected title truncated to 42 runes, got %d", utf8.RuneCountInString(checkout.Params["title"]))
	}
	if checkout.Params["total_fee"] != "0.10" {
		t.Fatalf("expected 0.10, got %s", checkout.Params["total_fee"])
	}
	for key, value := range checkout.Params {
		if value == "secret" {
			t.Fatalf("secret leaked in param %s", key)
		}
	}
	if checkout.GatewayURL != "https://gw.example/payment/do.html" {
		t.Fatalf("unexpected gateway url: %s", checkout.GatewayURL)
	}
	if checkout.Hash != Sign(checkout.Params, "secret") {
		t.Fatal("expected checkout hash over params")
	}
}

func TestVerifyAndParseCallback(t *testing.T) {
	p := newTestXorPay()
	fields := map[string]string{
		"trade_order_id": "ORD1",
		"open_order_id":  "20001",
		"transaction_id": "TX1",
		"total_fee":      "25.00",
		"status":         "OD",
	}
	fields["hash"] = Sign(fields, "secret")

	event, err := p.VerifyAndParseCallback(Credentials{AppSecret: "secret"}, fields)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.OrderID != "ORD1" || event.TransactionID != "TX1" || event.Status != GatewayStatusPaid {
		t.Fatalf("unexpected event: %+v", event)
	}

	if _, err := p.VerifyAndParseCallback(Credentials{AppSecret: "other"}, fields); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMissingCredentials(t *testing.T) {
	p := newTestXorPay("https://gw.example")
	if _, err := p.QueryOrder(context.Background(), Credentials{AppID: "app"}, "ORD1"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestRegistryResolvesMethods(t *testing.T) {
	registry := NewRegistry(newTestXorPay())
	if _, err := registry.Get("xorpay_alipay"); err != nil {
		t.Fatalf("expected xorpay_alipay to resolve, got %v", err)
	}
	if _, err := registry.Get("wechat_official"); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}
}
