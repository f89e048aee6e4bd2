package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreateQRCodeRequest struct {
	OrderId     string `json:"orderId"`
	PaymentType string `json:"paymentType"`
}

func NewCreateQRCodeRequestFromContext(ctx echo.Context) (*CreateQRCodeRequest, error) {
	var body CreateQRCodeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderId = strings.TrimSpace(body.OrderId)
	body.PaymentType = strings.ToLower(strings.TrimSpace(body.PaymentType))

	return &body, nil
}

func (r *CreateQRCodeRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("orderId is required")
	}
	if r.GetPaymentType() != "" && r.GetPaymentType() != "wechat" && r.GetPaymentType() != "alipay" {
		return errors.New("paymentType must be wechat or alipay")
	}
	return nil
}

func (r *CreateQRCodeRequest) GetOrderId() string {
	return r.OrderId
}

func (r *CreateQRCodeRequest) GetPaymentType() string {
	return r.PaymentType
}

type QueryOrderRequest struct {
	OrderId string `json:"orderId"`
}

func NewQueryOrderRequestFromContext(ctx echo.Context) (*QueryOrderRequest, error) {
	var body QueryOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)
	return &body, nil
}

func (r *QueryOrderRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("orderId is required")
	}
	return nil
}

func (r *QueryOrderRequest) GetOrderId() string {
	return r.OrderId
}

type RefundRequest struct {
	OrderId string `json:"orderId"`
	Reason  string `json:"reason"`
}

func NewRefundRequestFromContext(ctx echo.Context) (*RefundRequest, error) {
	var body RefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)
	body.Reason = sanitizeText(body.Reason)
	return &body, nil
}

func (r *RefundRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("orderId is required")
	}
	return nil
}

func (r *RefundRequest) GetOrderId() string {
	return r.OrderId
}

func (r *RefundRequest) GetReason() string {
	return r.Reason
}

// XorPayCallbackRequest is a gateway notification. The gateway posts form
// fields; a JSON object body is accepted as well.
type XorPayCallbackRequest struct {
	Fields map[string]string
}

func NewXorPayCallbackRequestFromContext(ctx echo.Context) (*XorPayCallbackRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	fields, err := parseCallbackFields(ctx.Request().Header.Get(echo.HeaderContentType), rawBody)
	if err != nil {
		return nil, err
	}

	return &XorPayCallbackRequest{Fields: fields}, nil
}

func parseCallbackFields(contentType string, rawBody []byte) (map[string]string, error) {
	body := strings.TrimSpace(string(rawBody))
	if strings.HasPrefix(strings.ToLower(contentType), echo.MIMEApplicationJSON) || strings.HasPrefix(body, "{") {
		return parseJSONFields(rawBody)
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(values))
	for key, items := range values {
		if len(items) > 0 {
			fields[key] = items[0]
		}
	}
	return fields, nil
}

func parseJSONFields(rawBody []byte) (map[string]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(rawBody))
	decoder.UseNumber()

	var body map[string]interface{}
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(body))
	for key, value := range body {
		switch typed := value.(type) {
		case nil:
		case string:
			fields[key] = typed
		case json.Number:
			fields[key] = typed.String()
		case bool:
			fields[key] = fmt.Sprint(typed)
		default:
			return nil, fmt.Errorf("field %s must be a scalar", key)
		}
	}
	return fields, nil
}

func (r *XorPayCallbackRequest) Validate() error {
	if len(r.Fields) == 0 {
		return errors.New("callback body is empty")
	}
	if strings.TrimSpace(r.Fields["trade_order_id"]) == "" {
		return errors.New("trade_order_id is required")
	}
	if strings.TrimSpace(r.Fields["hash"]) == "" {
		return errors.New("hash is required")
	}
	return nil
}

func (r *XorPayCallbackRequest) GetFields() map[string]string {
	return r.Fields
}

// GetPayload renders the fields as a sorted query string for the audit log.
func (r *XorPayCallbackRequest) GetPayload() string {
	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, key := range keys {
		values.Set(key, r.Fields[key])
	}
	return values.Encode()
}

type PaymentStatusResponse struct {
	Enabled        bool     `json:"enabled"`
	EnabledMethods []string `json:"enabledMethods"`
}

type QRCodeResponse struct {
	OrderId     string  `json:"orderId"`
	Amount      float64 `json:"amount"`
	PaymentType string  `json:"paymentType"`
	QRCode      string  `json:"qrcode"`
	Url         string  `json:"url,omitempty"`
}

type QueryOrderResponse struct {
	OrderId     string `json:"orderId"`
	Status      string `json:"status"`
	LocalStatus string `json:"localStatus"`
	OpenOrderId string `json:"openOrderId,omitempty"`
	Message     string `json:"message,omitempty"`
}

type RefundResponse struct {
	OrderId      string `json:"orderId"`
	RefundStatus string `json:"refundStatus"`
	RefundNo     string `json:"refundNo,omitempty"`
	RefundFee    string `json:"refundFee,omitempty"`
	RefundTime   string `json:"refundTime,omitempty"`
}

type CallbackInfoResponse struct {
	Message string   `json:"message"`
	Method  string   `json:"method"`
	Fields  []string `json:"fields"`
}

type DNSCheck struct {
	Host      string   `json:"host"`
	Success   bool     `json:"success"`
	Addresses []string `json:"addresses,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type HTTPSCheck struct {
	Url        string `json:"url"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

type DiagnoseResponse struct {
	CheckedAt string       `json:"checkedAt"`
	DNS       []DNSCheck   `json:"dns"`
	HTTPS     []HTTPSCheck `json:"https"`
}
