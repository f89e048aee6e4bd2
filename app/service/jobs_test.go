package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

func TestRunReconcileBatchFulfillsPaidOrders(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORD1", entity.MembershipMonthly, "MONTHLY00001", fixedNow.Add(-10*time.Minute))
	f.gateway.queryOut = &provider.QueryOutput{Status: provider.GatewayStatusPaid, OpenOrderID: "20001"}

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("run reconcile batch failed: %v", err)
	}

	order := f.orders.get("ORD1")
	if order.Status != entity.OrderStatusCompleted {
		t.Fatalf("expected completed order after reconcile, got %s", order.Status)
	}
	if order.TransactionID == nil || *order.TransactionID != "20001" {
		t.Fatalf("expected open order id as transaction id, got %v", order.TransactionID)
	}
	if f.events.count("order_reconciled") != 1 {
		t.Fatal("expected order_reconciled event")
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected invite code email, got %d", len(f.mailer.sent))
	}
}

func TestRunReconcileBatchSkipsFreshAndUnpaidOrders(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORDFRESH", entity.MembershipMonthly, "", fixedNow.Add(-30*time.Second))
	f.pendingOrder("ORDWAIT", entity.MembershipMonthly, "", fixedNow.Add(-10*time.Minute))
	f.gateway.queryErr = &provider.GatewayError{Code: 1, Message: "not paid"}

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("expected gateway rejections to be skipped, got %v", err)
	}
	if f.orders.get("ORDFRESH").Status != entity.OrderStatusPending || f.orders.get("ORDWAIT").Status != entity.OrderStatusPending {
		t.Fatal("expected orders to stay pending")
	}
}

func TestRunReconcileBatchReportsUnavailableGateway(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORD1", entity.MembershipMonthly, "", fixedNow.Add(-10*time.Minute))
	f.gateway.queryErr = provider.ErrGatewayUnavailable

	if err := f.svc.RunReconcileBatch(context.Background()); !errors.Is(err, provider.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestRunExpirePendingBatchReleasesStock(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORDOLD", entity.MembershipMonthly, "MONTHLY00001", fixedNow.Add(-time.Hour))
	f.pendingOrder("ORDNEW", entity.MembershipMonthly, "MONTHLY00002", fixedNow.Add(-time.Minute))

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("run expire pending batch failed: %v", err)
	}

	if f.orders.get("ORDOLD").Status != entity.OrderStatusCancelled {
		t.Fatal("expected stale order cancelled")
	}
	if f.orders.get("ORDNEW").Status != entity.OrderStatusPending {
		t.Fatal("expected fresh order to stay pending")
	}
	if code := f.codes.get("MONTHLY00001"); code.ReservedOrderID != nil {
		t.Fatal("expected stale reservation released")
	}
	if code := f.codes.get("MONTHLY00002"); code.ReservedOrderID == nil {
		t.Fatal("expected fresh reservation kept")
	}
	if f.events.count("order_expired") != 1 {
		t.Fatal("expected order_expired event")
	}
}

func TestRunExpirePendingBatchFulfillsOrdersPaidAtGateway(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORDOLD", entity.MembershipMonthly, "MONTHLY00001", fixedNow.Add(-time.Hour))
	f.gateway.queryOut = &provider.QueryOutput{Status: provider.GatewayStatusPaid, OpenOrderID: "20001"}

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("run expire pending batch failed: %v", err)
	}

	order := f.orders.get("ORDOLD")
	if order.Status != entity.OrderStatusCompleted || order.InviteCode == nil {
		t.Fatalf("expected paid order fulfilled, got %+v", order)
	}
	if f.events.count("order_expired") != 0 {
		t.Fatal("expected no order_expired event for a paid order")
	}
	if f.events.count("order_reconciled") != 1 {
		t.Fatal("expected order_reconciled event")
	}
}

func TestRunExpirePendingBatchCancelsOrdersTheGatewayRejects(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORDOLD", entity.MembershipMonthly, "MONTHLY00001", fixedNow.Add(-time.Hour))
	f.gateway.queryErr = &provider.GatewayError{Code: 1, Message: "order not found"}

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("run expire pending batch failed: %v", err)
	}
	if f.orders.get("ORDOLD").Status != entity.OrderStatusCancelled {
		t.Fatal("expected unpaid order cancelled")
	}
}

func TestRunExpirePendingBatchKeepsOrdersWhenGatewayUnavailable(t *testing.T) {
	f := newOrderServiceFixture()
	f.pendingOrder("ORDOLD", entity.MembershipMonthly, "MONTHLY00001", fixedNow.Add(-time.Hour))
	f.gateway.queryErr = provider.ErrGatewayUnavailable

	if err := f.svc.RunExpirePendingBatch(context.Background()); !errors.Is(err, provider.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if f.orders.get("ORDOLD").Status != entity.OrderStatusPending {
		t.Fatal("expected order to stay pending while the gateway is unreachable")
	}
	if code := f.codes.get("MONTHLY00001"); code.ReservedOrderID == nil {
		t.Fatal("expected reservation kept")
	}
}

func TestRunExpireBatchExpiresOverdueCodes(t *testing.T) {
	codes := newServiceCodeRepo()
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)
	codes.add(&entity.InviteCode{Code: "OVERDUE00001", MembershipType: entity.MembershipMonthly, Status: entity.InviteCodeStatusUnused, ExpiresAt: &past})
	codes.add(&entity.InviteCode{Code: "FRESH0000001", MembershipType: entity.MembershipMonthly, Status: entity.InviteCodeStatusUnused, ExpiresAt: &future})

	svc := NewInviteCodeService(codes, newServiceMembershipRepo(), newServiceSettings(), newKeyedLocker(), config.MembershipsConfig{JobBatchSize: 10})
	svc.now = func() time.Time { return fixedNow }

	if err := svc.RunExpireBatch(context.Background()); err != nil {
		t.Fatalf("run expire batch failed: %v", err)
	}
	if codes.get("OVERDUE00001").Status != entity.InviteCodeStatusExpired {
		t.Fatal("expected overdue code expired")
	}
	if codes.get("FRESH0000001").Status != entity.InviteCodeStatusUnused {
		t.Fatal("expected fresh code unused")
	}
}
