package service

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
)

// RunReconcileBatch asks the gateway about stale pending orders and fulfills
// the ones it reports as paid, the same way a callback would.
func (s *OrderService) RunReconcileBatch(ctx context.Context) error {
	now := s.now().UTC()
	before := now.Add(-s.cfg.ReconcileStaleAfter)
	items, err := s.orders.ListPendingCreatedBefore(ctx, before, s.batchSize())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return err
	}
	creds, err := xorPayCredentials(settings)
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil || !order.IsXorPay() {
			continue
		}
		if _, err := s.reconcilePaid(ctx, creds, order); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch cancels pending orders past the pending timeout and
// returns their reserved stock code to sale. Orders the gateway reports as
// paid are fulfilled instead, and orders it cannot be asked about are kept.
func (s *OrderService) RunExpirePendingBatch(ctx context.Context) error {
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.PendingTimeout)
	items, err := s.orders.ListPendingCreatedBefore(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return err
	}
	creds, credsErr := xorPayCredentials(settings)

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		if order.IsXorPay() && credsErr == nil {
			paid, err := s.reconcilePaid(ctx, creds, order)
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if paid {
				continue
			}
		}

		ok, err := s.orders.CancelIfPending(ctx, order.OrderID, now)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !ok {
			continue
		}

		if err := s.codes.ReleaseReservation(ctx, order.OrderID); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}

		oldStatus := order.Status
		s.recordEvent(ctx, order.OrderID, "order_expired", &oldStatus, entity.OrderStatusCancelled, nil)
	}

	return firstErr
}

// reconcilePaid queries the gateway for one order and fulfills it when paid.
// A gateway-side rejection reads as not paid.
func (s *OrderService) reconcilePaid(ctx context.Context, creds provider.Credentials, order *entity.Order) (bool, error) {
	gateway, err := s.gateway(order.PaymentMethod)
	if err != nil {
		return false, err
	}

	out, err := gateway.QueryOrder(ctx, creds, order.OrderID)
	if err != nil {
		var gatewayErr *provider.GatewayError
		if errors.As(err, &gatewayErr) {
			return false, nil
		}
		return false, err
	}
	if out.Status != provider.GatewayStatusPaid {
		return false, nil
	}

	event := &provider.CallbackEvent{
		OrderID:     order.OrderID,
		OpenOrderID: strings.TrimSpace(out.OpenOrderID),
		Status:      provider.GatewayStatusPaid,
	}
	_, outcome, err := s.applyGatewayEvent(ctx, event, nil)
	if err != nil {
		return false, err
	}
	if outcome == entity.GatewayCallbackProcessed {
		s.recordEvent(ctx, order.OrderID, "order_reconciled", nil, entity.OrderStatusCompleted, nil)
	}
	return true, nil
}

// RunExpireBatch marks unused invite codes past their expiry as expired.
func (s *InviteCodeService) RunExpireBatch(ctx context.Context) error {
	_, err := s.codes.ExpireOverdue(ctx, s.now().UTC(), s.batchSize())
	return err
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
