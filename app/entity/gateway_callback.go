package entity

import "time"

const (
	GatewayCallbackProcessed = "processed"
	GatewayCallbackRejected  = "rejected"
	GatewayCallbackIgnored   = "ignored"
)

type GatewayCallback struct {
	ID uint64

	OrderID *string

	Gateway     string
	Signature   string
	PayloadJSON string
	Status      string
	Error       *string

	CreatedAt time.Time
}
