package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/repository"
)

// checkTrialLimits enforces the per-email and per-day trial caps. Pending
// orders younger than the pending timeout count as reservations. Callers
// hold the trial tier lock.
func (s *OrderService) checkTrialLimits(ctx context.Context, email string, now time.Time) error {
	limits, err := s.settings.PurchaseLimits(ctx)
	if err != nil {
		return err
	}
	pendingAfter := now.Add(-s.cfg.PendingTimeout)

	perEmail, err := s.orders.CountTrialOrders(ctx, repository.TrialOrderFilter{
		Email:        email,
		PendingAfter: pendingAfter,
	})
	if err != nil {
		return err
	}
	if perEmail >= limits.TrialMaxPerEmail {
		return fmt.Errorf("%w: each email can buy at most %d trial memberships", ErrPurchaseLimitReached, limits.TrialMaxPerEmail)
	}

	midnight := startOfDay(now, s.app.Location)
	today, err := s.orders.CountTrialOrders(ctx, repository.TrialOrderFilter{
		Since:        &midnight,
		PendingAfter: pendingAfter,
	})
	if err != nil {
		return err
	}
	if today >= limits.TrialMaxPerDay {
		return fmt.Errorf("%w: trial memberships are sold out for today", ErrPurchaseLimitReached)
	}
	return nil
}

func startOfDay(now time.Time, location *time.Location) time.Time {
	local := now.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location).UTC()
}
