package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	GatewayStatusPaid         = "OD"
	GatewayStatusWaiting      = "WP"
	GatewayStatusRefunded     = "CD"
	GatewayStatusRefunding    = "RD"
	GatewayStatusRefundFailed = "UD"
)

type Credentials struct {
	AppID     string
	AppSecret string
}

type ChargeInput struct {
	OrderID   string
	Amount    decimal.Decimal
	Title     string
	Channel   string
	NotifyURL string
	ReturnURL string
}

type Checkout struct {
	GatewayURL string
	Params     map[string]string
	Hash       string
}

type ChargeOutput struct {
	QRCodeURL   string
	URL         string
	OpenOrderID string
}

type QueryOutput struct {
	Status      string
	OpenOrderID string
	Message     string
}

type RefundInput struct {
	OrderID string
	Reason  string
}

type RefundOutput struct {
	RefundStatus string
	RefundNo     string
	RefundFee    string
	RefundTime   string
}

type CallbackEvent struct {
	OrderID       string
	OpenOrderID   string
	TransactionID string
	TotalFee      string
	Status        string
}

type Provider interface {
	Name() string
	Methods() []string
	Channel(method string) string
	BuildCheckout(creds Credentials, input *ChargeInput) (*Checkout, error)
	CreateCharge(ctx context.Context, creds Credentials, input *ChargeInput) (*ChargeOutput, error)
	QueryOrder(ctx context.Context, creds Credentials, orderID string) (*QueryOutput, error)
	Refund(ctx context.Context, creds Credentials, input *RefundInput) (*RefundOutput, error)
	VerifyAndParseCallback(creds Credentials, fields map[string]string) (*CallbackEvent, error)
}
