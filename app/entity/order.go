package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

const (
	RefundStatusRefunding = "refunding"
	RefundStatusRefunded  = "refunded"
	RefundStatusFailed    = "refund_failed"
)

const (
	PaymentMethodWechatOfficial = "wechat_official"
	PaymentMethodAlipayOfficial = "alipay_official"
	PaymentMethodXorPayWechat   = "xorpay_wechat"
	PaymentMethodXorPayAlipay   = "xorpay_alipay"
)

type Order struct {
	ID uint64

	OrderID string
	UserID  *string
	Email   string

	MembershipType string
	Amount         decimal.Decimal
	PaymentMethod  string
	Status         string

	InviteCode    *string
	ReservedCode  *string
	TransactionID *string
	NotifyData    map[string]string
	EmailSent     *bool

	RefundStatus *string
	RefundAt     *time.Time
	RefundReason *string
	RefundNo     *string
	RefundFee    *string

	CreatedAt   time.Time
	PaidAt      *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

func (o *Order) IsXorPay() bool {
	return o.PaymentMethod == PaymentMethodXorPayWechat || o.PaymentMethod == PaymentMethodXorPayAlipay
}
