package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreateOrderRequest struct {
	MembershipType string `json:"membershipType"`
	Email          string `json:"email"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.MembershipType = strings.ToLower(strings.TrimSpace(body.MembershipType))
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.GetEmail() == "" {
		return errors.New("email is required")
	}
	if r.GetMembershipType() == "" {
		return errors.New("membershipType is required")
	}
	return nil
}

func (r *CreateOrderRequest) GetMembershipType() string {
	return r.MembershipType
}

func (r *CreateOrderRequest) GetEmail() string {
	return r.Email
}

type GetOrderRequest struct {
	OrderId string
}

func NewGetOrderRequestFromContext(ctx echo.Context) (*GetOrderRequest, error) {
	return &GetOrderRequest{OrderId: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetOrderRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("order id is required")
	}
	return nil
}

func (r *GetOrderRequest) GetOrderId() string {
	return r.OrderId
}

type ListOrdersRequest struct {
	pagination
}

func NewListOrdersRequestFromContext(ctx echo.Context) (*ListOrdersRequest, error) {
	page, err := paginationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return &ListOrdersRequest{pagination: page}, nil
}

func (r *ListOrdersRequest) Validate() error {
	return r.validate()
}

type Order struct {
	OrderId        string  `json:"orderId"`
	UserId         string  `json:"userId,omitempty"`
	Email          string  `json:"email"`
	MembershipType string  `json:"membershipType"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"paymentMethod"`
	Status         string  `json:"status"`
	InviteCode     string  `json:"inviteCode,omitempty"`
	TransactionId  string  `json:"transactionId,omitempty"`
	EmailSent      *bool   `json:"emailSent,omitempty"`
	RefundStatus   string  `json:"refundStatus,omitempty"`
	RefundAt       string  `json:"refundAt,omitempty"`
	RefundReason   string  `json:"refundReason,omitempty"`
	RefundNo       string  `json:"refundNo,omitempty"`
	RefundFee      string  `json:"refundFee,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	PaidAt         string  `json:"paidAt,omitempty"`
	CompletedAt    string  `json:"completedAt,omitempty"`
}

// Checkout carries the signed gateway parameters a client posts to start
// payment. The merchant secret is never part of it.
type Checkout struct {
	GatewayUrl string            `json:"gatewayUrl"`
	Params     map[string]string `json:"params"`
	Hash       string            `json:"hash"`
}

type CreateOrderResponse struct {
	Order   *Order    `json:"order"`
	Payment *Checkout `json:"payment"`
}

type OrderEnvelopeResponse struct {
	Order *Order `json:"order"`
}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}
