package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	xorPayName        = "xorpay"
	xorPayVersion     = "1.1"
	xorPayCreatePath  = "/payment/do.html"
	xorPayQueryPath   = "/payment/query.html"
	xorPayRefundPath  = "/payment/refund.html"
	maxTitleRunes     = 42
	maxReasonRunes    = 80
	defaultXorTimeout = 30 * time.Second
)

var DefaultXorPayEndpoints = []string{"https://api.xunhupay.com", "https://api.dpweixin.com"}

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMalformedResponse  = errors.New("payment gateway returned a malformed response")
	ErrInvalidSignature   = errors.New("invalid callback signature")
	ErrMalformedCallback  = errors.New("malformed callback payload")
	ErrMissingCredentials = errors.New("payment gateway credentials are incomplete")
)

// GatewayError is a non-zero errcode returned by the gateway.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: code=%d message=%s", e.Code, e.Message)
}

type AttemptError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

// UnavailableError aggregates the failed attempt against every mirror.
type UnavailableError struct {
	Attempts []AttemptError
}

// Timeout reports whether every mirror timed out.
func (e *UnavailableError) Timeout() bool {
	if len(e.Attempts) == 0 {
		return false
	}
	for _, attempt := range e.Attempts {
		if !attempt.Timeout {
			return false
		}
	}
	return true
}

func (e *UnavailableError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		kind := "connection failed"
		if attempt.Timeout {
			kind = "timeout"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%v)", attempt.Endpoint, kind, attempt.Err))
	}
	if e.Timeout() {
		return "payment gateway timed out: " + strings.Join(parts, "; ")
	}
	return "payment gateway unreachable: " + strings.Join(parts, "; ")
}

func (e *UnavailableError) Unwrap() error {
	return ErrGatewayUnavailable
}

type XorPayConfig struct {
	Endpoints   []string
	HTTPTimeout time.Duration
}

type XorPayProvider struct {
	endpoints []string
	timeout   time.Duration
	client    *http.Client
	dns       hostResolver
	now       func() time.Time
	nonce     func() string
}

func NewXorPayProvider(cfg XorPayConfig) *XorPayProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultXorTimeout
	}
	endpoints := make([]string, 0, len(cfg.Endpoints))
	for _, endpoint := range cfg.Endpoints {
		endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
		if endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}
	if len(endpoints) == 0 {
		endpoints = append(endpoints, DefaultXorPayEndpoints...)
	}

	return &XorPayProvider{
		endpoints: endpoints,
		timeout:   timeout,
		client:    &http.Client{},
		now:       time.Now,
		nonce:     newNonce,
	}
}

func (p *XorPayProvider) Name() string {
	return xorPayName
}

func (p *XorPayProvider) Methods() []string {
	return []string{"xorpay_wechat", "xorpay_alipay"}
}

func (p *XorPayProvider) Channel(method string) string {
	if method == "xorpay_alipay" {
		return "alipay"
	}
	return "wechat"
}

// Endpoints returns the mirrors in the order they are tried.
func (p *XorPayProvider) Endpoints() []string {
	return append([]string(nil), p.endpoints...)
}

func (p *XorPayProvider) BuildCheckout(creds Credentials, input *ChargeInput) (*Checkout, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	params := p.chargeParams(creds, input)
	delete(params, "type")
	hash := Sign(params, creds.AppSecret)

	return &Checkout{
		GatewayURL: p.endpoints[0] + xorPayCreatePath,
		Params:     params,
		Hash:       hash,
	}, nil
}

func (p *XorPayProvider) CreateCharge(ctx context.Context, creds Credentials, input *ChargeInput) (*ChargeOutput, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	params := p.chargeParams(creds, input)

	resp, err := p.call(ctx, xorPayCreatePath, params, creds.AppSecret)
	if err != nil {
		return nil, err
	}
	if err := checkErrcode(resp); err != nil {
		return nil, err
	}

	return &ChargeOutput{
		QRCodeURL:   stringish(resp["url_qrcode"]),
		URL:         stringish(resp["url"]),
		OpenOrderID: stringish(resp["openid"]),
	}, nil
}

func (p *XorPayProvider) QueryOrder(ctx context.Context, creds Credentials, orderID string) (*QueryOutput, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	params := map[string]string{
		"appid":           creds.AppID,
		"out_trade_order": orderID,
		"time":            strconv.FormatInt(p.now().Unix(), 10),
		"nonce_str":       p.nonce(),
	}

	resp, err := p.call(ctx, xorPayQueryPath, params, creds.AppSecret)
	if err != nil {
		return nil, err
	}
	if err := checkErrcode(resp); err != nil {
		return nil, err
	}

	out := &QueryOutput{Status: GatewayStatusWaiting}
	if data, ok := resp["data"].(map[string]interface{}); ok {
		if status := stringish(data["status"]); status != "" {
			out.Status = status
		}
		out.OpenOrderID = stringish(data["open_order_id"])
	}
	return out, nil
}

func (p *XorPayProvider) Refund(ctx context.Context, creds Credentials, input *RefundInput) (*RefundOutput, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}
	params := map[string]string{
		"appid":          creds.AppID,
		"trade_order_id": input.OrderID,
		"time":           strconv.FormatInt(p.now().Unix(), 10),
		"nonce_str":      p.nonce(),
	}
	if reason := truncateRunes(strings.TrimSpace(input.Reason), maxReasonRunes); reason != "" {
		params["reason"] = reason
	}

	resp, err := p.call(ctx, xorPayRefundPath, params, creds.AppSecret)
	if err != nil {
		return nil, err
	}
	if err := checkErrcode(resp); err != nil {
		return nil, err
	}

	return &RefundOutput{
		RefundStatus: stringish(resp["refund_status"]),
		RefundNo:     stringish(resp["out_refund_no"]),
		RefundFee:    stringish(resp["refund_fee"]),
		RefundTime:   stringish(resp["refund_time"]),
	}, nil
}

func (p *XorPayProvider) VerifyAndParseCallback(creds Credentials, fields map[string]string) (*CallbackEvent, error) {
	if strings.TrimSpace(creds.AppSecret) == "" {
		return nil, ErrMissingCredentials
	}
	if !VerifySignature(fields, creds.AppSecret) {
		return nil, ErrInvalidSignature
	}

	event := &CallbackEvent{
		OrderID:       strings.TrimSpace(fields["trade_order_id"]),
		OpenOrderID:   strings.TrimSpace(fields["open_order_id"]),
		TransactionID: strings.TrimSpace(fields["transaction_id"]),
		TotalFee:      strings.TrimSpace(fields["total_fee"]),
		Status:        strings.TrimSpace(fields["status"]),
	}
	if event.OrderID == "" {
		return nil, ErrMalformedCallback
	}
	return event, nil
}

func (p *XorPayProvider) chargeParams(creds Credentials, input *ChargeInput) map[string]string {
	params := map[string]string{
		"version":        xorPayVersion,
		"appid":          creds.AppID,
		"trade_order_id": input.OrderID,
		"total_fee":      input.Amount.StringFixed(2),
		"title":          truncateRunes(input.Title, maxTitleRunes),
		"time":           strconv.FormatInt(p.now().Unix(), 10),
		"notify_url":     input.NotifyURL,
		"return_url":     input.ReturnURL,
		"nonce_str":      p.nonce(),
	}
	if input.Channel != "" {
		params["type"] = input.Channel
	}
	return params
}

func (p *XorPayProvider) call(ctx context.Context, path string, params map[string]string, secret string) (map[string]interface{}, error) {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set(hashField, Sign(params, secret))

	body, err := p.postForm(ctx, path, values)
	if err != nil {
		return nil, err
	}
	return decodeResponse(body)
}

// postForm tries each mirror in order and moves on only when the request
// never reached the gateway.
func (p *XorPayProvider) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	unavailable := &UnavailableError{}
	encoded := values.Encode()

	for _, endpoint := range p.endpoints {
		body, err := p.postOnce(ctx, endpoint+path, encoded)
		if err == nil {
			return body, nil
		}

		var statusErr *statusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("xorpay request failed: path=%s status=%d body=%s", path, statusErr.status, statusErr.body)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		unavailable.Attempts = append(unavailable.Attempts, AttemptError{
			Endpoint: endpoint,
			Timeout:  isTimeout(err),
			Err:      err,
		})
	}

	return nil, unavailable
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status=%d", e.status)
}

func (p *XorPayProvider) postOnce(ctx context.Context, target string, encoded string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, target, strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func decodeResponse(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, ErrMalformedResponse
	}
	return out, nil
}

func checkErrcode(resp map[string]interface{}) error {
	raw := stringish(resp["errcode"])
	if raw == "0" {
		return nil
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		code = -1
	}
	message := stringish(resp["errmsg"])
	if message == "" {
		message = "unexpected gateway response"
	}
	return &GatewayError{Code: code, Message: message}
}

func checkCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.AppID) == "" || strings.TrimSpace(creds.AppSecret) == "" {
		return ErrMissingCredentials
	}
	return nil
}

func stringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
