package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
)

const (
	xorPayGateway    = "xorpay"
	maxAuditErrorLen = 1024
)

type xorPayCallbackRequest interface {
	GetFields() map[string]string
	GetPayload() string
}

// HandleXorPayCallback verifies a gateway notification and applies it to the
// order it names. Replays of an already applied notification succeed without
// side effects.
func (s *OrderService) HandleXorPayCallback(ctx context.Context, req xorPayCallbackRequest) (*entity.Order, error) {
	fields := req.GetFields()

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		s.persistRejectedCallback(ctx, nil, req, fmt.Sprintf("load payment settings: %v", err))
		return nil, err
	}
	gateway, err := s.gateway(entity.PaymentMethodXorPayWechat)
	if err != nil {
		s.persistRejectedCallback(ctx, nil, req, err.Error())
		return nil, err
	}

	var creds provider.Credentials
	if settings.XorPay != nil {
		creds = provider.Credentials{AppID: settings.XorPay.AppID, AppSecret: settings.XorPay.AppSecret.Reveal()}
	}
	event, err := gateway.VerifyAndParseCallback(creds, fields)
	if err != nil {
		s.persistRejectedCallback(ctx, nil, req, fmt.Sprintf("callback validation failed: %v", err))
		return nil, ErrCallbackRejected
	}

	order, outcome, err := s.applyGatewayEvent(ctx, event, fields)
	if err != nil {
		s.persistRejectedCallback(ctx, &event.OrderID, req, err.Error())
		return nil, err
	}

	s.persistCallback(ctx, &order.OrderID, req, outcome, nil)
	return order, nil
}

// applyGatewayEvent serializes on the order and applies the gateway status.
// The returned outcome is the audit status of the notification.
func (s *OrderService) applyGatewayEvent(ctx context.Context, event *provider.CallbackEvent, fields map[string]string) (*entity.Order, string, error) {
	if _, err := s.findOrder(ctx, event.OrderID); err != nil {
		return nil, "", err
	}

	unlock, err := s.lock(ctx, "order:"+event.OrderID)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	order, err := s.findOrder(ctx, event.OrderID)
	if err != nil {
		return nil, "", err
	}

	switch event.Status {
	case provider.GatewayStatusPaid:
		if order.Status == entity.OrderStatusCompleted {
			return order, entity.GatewayCallbackIgnored, nil
		}
		if order.Status == entity.OrderStatusCancelled {
			s.recordEvent(ctx, order.OrderID, "late_payment", nil, order.Status, map[string]string{"transactionId": event.TransactionID})
		} else if order.Status != entity.OrderStatusPending {
			return order, entity.GatewayCallbackIgnored, nil
		}
		if err := s.fulfill(ctx, order, event, fields); err != nil {
			return order, "", err
		}
		return order, entity.GatewayCallbackProcessed, nil

	case provider.GatewayStatusRefunded, provider.GatewayStatusRefunding, provider.GatewayStatusRefundFailed:
		if order.Status != entity.OrderStatusCompleted {
			return order, entity.GatewayCallbackIgnored, nil
		}
		if err := s.applyRefund(ctx, order, event.Status, nil, ""); err != nil {
			return order, "", err
		}
		return order, entity.GatewayCallbackProcessed, nil

	default:
		return order, entity.GatewayCallbackIgnored, nil
	}
}

// fulfill mints the purchased invite code and completes a pending or expired
// order. When another writer completed the order first, the minted code is
// removed.
func (s *OrderService) fulfill(ctx context.Context, order *entity.Order, event *provider.CallbackEvent, fields map[string]string) error {
	now := s.now().UTC()

	note := fmt.Sprintf("订单 %s 自动生成", order.OrderID)
	orderID := order.OrderID
	code, err := s.codegen.Mint(ctx, entity.InviteCode{
		MembershipType: order.MembershipType,
		Status:         entity.InviteCodeStatusUnused,
		CreatedBy:      entity.InviteCodeCreatedBySystem,
		Note:           &note,
		OrderID:        &orderID,
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}

	oldStatus := order.Status
	completed := *order
	completed.Status = entity.OrderStatusCompleted
	completed.InviteCode = &code.Code
	completed.ReservedCode = nil
	if transactionID := firstNonEmpty(event.TransactionID, event.OpenOrderID); transactionID != "" {
		completed.TransactionID = &transactionID
	}
	if len(fields) > 0 {
		completed.NotifyData = fields
	}
	completed.PaidAt = &now
	completed.CompletedAt = &now
	completed.UpdatedAt = now

	ok, err := s.orders.CompleteIfOpen(ctx, &completed)
	if err != nil {
		_ = s.codes.Delete(ctx, code.Code)
		return err
	}
	if !ok {
		_ = s.codes.Delete(ctx, code.Code)
		return nil
	}
	*order = completed

	if err := s.codes.ConsumeReservation(ctx, order.OrderID); err != nil {
		s.recordEvent(ctx, order.OrderID, "reservation_consume_failed", nil, order.Status, map[string]string{"error": err.Error()})
	}
	s.recordEvent(ctx, order.OrderID, "order_completed", &oldStatus, order.Status, map[string]string{"inviteCode": code.Code})

	s.deliverInviteCode(ctx, order, now)
	return nil
}

// deliverInviteCode mails the code to the buyer. Failures are recorded on the
// order and never undo the fulfillment.
func (s *OrderService) deliverInviteCode(ctx context.Context, order *entity.Order, now time.Time) {
	if order.Email == "" || order.InviteCode == nil || s.mailer == nil {
		return
	}

	membershipName := order.MembershipType
	if tiers, err := s.settings.MembershipConfig(ctx); err == nil {
		if tier, ok := tiers[order.MembershipType]; ok && tier.Name != "" {
			membershipName = tier.Name
		}
	}

	sendErr := s.mailer.SendInviteCode(ctx, order.Email, *order.InviteCode, membershipName)
	sent := sendErr == nil
	order.EmailSent = &sent
	_ = s.orders.SetEmailSent(ctx, order.OrderID, sent, now)

	if sendErr != nil {
		s.recordEvent(ctx, order.OrderID, "email_failed", nil, order.Status, map[string]string{"error": truncate(sendErr.Error(), maxAuditErrorLen)})
	}
}

func (s *OrderService) persistRejectedCallback(ctx context.Context, orderID *string, req xorPayCallbackRequest, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "callback rejected"
	}
	trimmed := truncate(reason, maxAuditErrorLen)
	s.persistCallback(ctx, orderID, req, entity.GatewayCallbackRejected, &trimmed)
}

func (s *OrderService) persistCallback(ctx context.Context, orderID *string, req xorPayCallbackRequest, status string, errMsg *string) {
	if orderID != nil && strings.TrimSpace(*orderID) == "" {
		orderID = nil
	}
	_ = s.callbacks.Create(ctx, &entity.GatewayCallback{
		OrderID:     orderID,
		Gateway:     xorPayGateway,
		Signature:   strings.TrimSpace(req.GetFields()["hash"]),
		PayloadJSON: req.GetPayload(),
		Status:      status,
		Error:       errMsg,
		CreatedAt:   s.now().UTC(),
	})
}

func encodePayload(payload map[string]string) string {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// truncate keeps at most max runes so stored text stays valid UTF-8.
func truncate(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max])
}
