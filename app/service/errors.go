package service

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidMembershipType = errors.New("invalid membership type")
	ErrForbidden             = errors.New("forbidden")
	ErrBusy                  = errors.New("resource is busy, please retry")

	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrPaymentDisabled      = errors.New("payment is not enabled")
	ErrPaymentNotConfigured = errors.New("payment gateway is not configured")
	ErrProviderUnsupported  = errors.New("payment method is not supported")
	ErrCallbackRejected     = errors.New("callback rejected")

	ErrMembershipUnavailable = errors.New("membership type is not available")
	ErrSoldOut               = errors.New("invite codes for this membership type are sold out")
	ErrPurchaseLimitReached  = errors.New("purchase limit reached")

	ErrInviteCodeNotFound    = errors.New("invite code not found")
	ErrInviteCodeUnavailable = errors.New("invite code is not redeemable")
	ErrInviteCodeInUse       = errors.New("invite code is used or reserved")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionExists   = errors.New("subscription already exists")

	ErrEmailNotConfigured = errors.New("email delivery is not configured")
)
