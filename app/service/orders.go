package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/locker"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

const (
	defaultBatchSize = int32(100)

	callbackPath   = "/payment/callback/xorpay"
	qrCodeTitle    = "会员购买"
	orderIDSuffix  = 6
	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type createOrderRequest interface {
	GetMembershipType() string
	GetEmail() string
}

type listOrdersRequest interface {
	GetLimit() int32
	GetOffset() int32
}

type createQRCodeRequest interface {
	GetOrderId() string
	GetPaymentType() string
}

type refundOrderRequest interface {
	GetOrderId() string
	GetReason() string
}

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error)
	ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error)
	UpdatePaymentMethod(ctx context.Context, orderID, method string, now time.Time) error
	CompleteIfOpen(ctx context.Context, order *entity.Order) (bool, error)
	SetEmailSent(ctx context.Context, orderID string, sent bool, now time.Time) error
	UpdateRefund(ctx context.Context, order *entity.Order) error
	CancelIfPending(ctx context.Context, orderID string, now time.Time) (bool, error)
	CountTrialOrders(ctx context.Context, filter repository.TrialOrderFilter) (int, error)
}

type stockReserver interface {
	Reserve(ctx context.Context, membershipType, orderID string, now time.Time) (string, error)
	ReleaseReservation(ctx context.Context, orderID string) error
	ConsumeReservation(ctx context.Context, orderID string) error
}

// orderCodeStore is what fulfillment and refunds need from the invite-code store.
type orderCodeStore interface {
	inviteCodeWriter
	stockReserver
	FindByCode(ctx context.Context, code string) (*entity.InviteCode, error)
	UpdateStatus(ctx context.Context, code, status string, note *string) error
	Delete(ctx context.Context, code string) error
}

type orderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
}

type gatewayCallbackRepository interface {
	Create(ctx context.Context, callback *entity.GatewayCallback) error
}

type orderSettingsSource interface {
	PaymentSettings(ctx context.Context) (*entity.PaymentSettings, error)
	MembershipConfig(ctx context.Context) (entity.MembershipConfig, error)
	PurchaseLimits(ctx context.Context) (*entity.PurchaseLimits, error)
}

type lockProvider interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type inviteCodeMailer interface {
	SendInviteCode(ctx context.Context, to, code, membershipName string) error
}

type gatewayDiagnoser interface {
	Diagnose(ctx context.Context, timeout time.Duration) *provider.Diagnosis
}

// Actor is the authenticated caller of an operation. A nil Actor is anonymous.
type Actor struct {
	Username string
	Admin    bool
}

// mayRead reports whether the actor can see the order. Orders placed without
// a session are readable by anyone holding their id.
func (a *Actor) mayRead(order *entity.Order) bool {
	if a == nil || a.Admin || order.UserID == nil {
		return true
	}
	return *order.UserID == a.Username
}

type CreatedOrder struct {
	Order    *entity.Order
	Checkout *provider.Checkout
}

type QRCode struct {
	OrderID     string
	Amount      decimal.Decimal
	PaymentType string
	QRCodeURL   string
	URL         string
}

type OrderQuery struct {
	OrderID     string
	Status      string
	LocalStatus string
	OpenOrderID string
	Message     string
}

type RefundResult struct {
	OrderID      string
	RefundStatus string
	RefundNo     string
	RefundFee    string
	RefundTime   string
}

type OrderServiceDeps struct {
	Orders    orderRepository
	Codes     orderCodeStore
	Events    orderEventRepository
	Callbacks gatewayCallbackRepository
	Settings  orderSettingsSource
	Locks     lockProvider
	Providers *provider.Registry
	Mailer    inviteCodeMailer
	Diagnoser gatewayDiagnoser
	App       config.AppConfig
	Config    config.MembershipsConfig
}

type OrderService struct {
	orders    orderRepository
	codes     orderCodeStore
	events    orderEventRepository
	callbacks gatewayCallbackRepository
	settings  orderSettingsSource
	locks     lockProvider
	providers *provider.Registry
	codegen   *CodeGenerator
	mailer    inviteCodeMailer
	diagnoser gatewayDiagnoser
	app       config.AppConfig
	cfg       config.MembershipsConfig
	now       func() time.Time
	random    io.Reader
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	app := deps.App
	if app.Location == nil {
		app.Location = time.Local
	}

	return &OrderService{
		orders:    deps.Orders,
		codes:     deps.Codes,
		events:    deps.Events,
		callbacks: deps.Callbacks,
		settings:  deps.Settings,
		locks:     deps.Locks,
		providers: deps.Providers,
		codegen:   NewCodeGenerator(deps.Codes),
		mailer:    deps.Mailer,
		diagnoser: deps.Diagnoser,
		app:       app,
		cfg:       deps.Config,
		now:       time.Now,
		random:    rand.Reader,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, req createOrderRequest, actor *Actor) (*CreatedOrder, error) {
	email := normalizeEmail(req.GetEmail())
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	membershipType := strings.TrimSpace(req.GetMembershipType())
	if !entity.IsMembershipType(membershipType) {
		return nil, ErrInvalidMembershipType
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrPaymentDisabled
	}

	tiers, err := s.settings.MembershipConfig(ctx)
	if err != nil {
		return nil, err
	}
	tier := tiers[membershipType]
	if !tier.IsEnabled() {
		return nil, ErrMembershipUnavailable
	}

	gateway, err := s.gateway(settings.Method)
	if err != nil {
		return nil, err
	}
	creds, err := xorPayCredentials(settings)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	orderID, err := newOrderID(s.random, now)
	if err != nil {
		return nil, err
	}
	order := &entity.Order{
		OrderID:        orderID,
		Email:          email,
		MembershipType: membershipType,
		Amount:         tier.ActualPrice(),
		PaymentMethod:  settings.Method,
		Status:         entity.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if actor != nil && actor.Username != "" {
		username := actor.Username
		order.UserID = &username
	}

	checkout, err := gateway.BuildCheckout(creds, s.chargeInput(settings, order, tier.Name+"购买", ""))
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, "tier:"+membershipType)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if membershipType == entity.MembershipTrial {
		if err := s.checkTrialLimits(ctx, email, now); err != nil {
			return nil, err
		}
	}

	code, err := s.codes.Reserve(ctx, membershipType, order.OrderID, now)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrSoldOut
	}
	order.ReservedCode = &code

	if err := s.orders.Create(ctx, order); err != nil {
		_ = s.codes.ReleaseReservation(ctx, order.OrderID)
		return nil, err
	}

	s.recordEvent(ctx, order.OrderID, "order_created", nil, order.Status, nil)
	return &CreatedOrder{Order: order, Checkout: checkout}, nil
}

// GetOrder returns an order to anonymous callers, to its owner, or to an admin.
// Orders placed anonymously are readable by any session.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor *Actor) (*entity.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.mayRead(order) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, req listOrdersRequest, actor *Actor) ([]*entity.Order, error) {
	if actor == nil {
		return []*entity.Order{}, nil
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	if limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	offset := req.GetOffset()
	if offset < 0 {
		offset = 0
	}

	filter := repository.OrderFilter{Limit: limit, Offset: offset}
	if !actor.Admin {
		filter.UserID = actor.Username
	}
	return s.orders.List(ctx, filter)
}

func (s *OrderService) CreateQRCode(ctx context.Context, req createQRCodeRequest) (*QRCode, error) {
	paymentType := strings.ToLower(strings.TrimSpace(req.GetPaymentType()))
	var method string
	switch paymentType {
	case entity.XorPayMethodWechat:
		method = entity.PaymentMethodXorPayWechat
	case entity.XorPayMethodAlipay:
		method = entity.PaymentMethodXorPayAlipay
	default:
		return nil, fmt.Errorf("%w: unknown payment type %q", ErrInvalidRequest, req.GetPaymentType())
	}

	order, err := s.findOrder(ctx, req.GetOrderId())
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidStatus, order.Status)
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrPaymentDisabled
	}
	gateway, err := s.gateway(method)
	if err != nil {
		return nil, err
	}
	creds, err := xorPayCredentials(settings)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod != method {
		if err := s.orders.UpdatePaymentMethod(ctx, order.OrderID, method, s.now().UTC()); err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, err
		}
		order.PaymentMethod = method
	}

	out, err := gateway.CreateCharge(ctx, creds, s.chargeInput(settings, order, qrCodeTitle, gateway.Channel(method)))
	if err != nil {
		return nil, err
	}

	return &QRCode{
		OrderID:     order.OrderID,
		Amount:      order.Amount,
		PaymentType: paymentType,
		QRCodeURL:   out.QRCodeURL,
		URL:         out.URL,
	}, nil
}

// QueryOrder asks the gateway for the payment state of an order. Completed
// orders answer locally and a gateway-side rejection reads as still waiting.
func (s *OrderService) QueryOrder(ctx context.Context, orderID string) (*OrderQuery, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.OrderStatusCompleted {
		return &OrderQuery{OrderID: order.OrderID, Status: provider.GatewayStatusPaid, LocalStatus: order.Status}, nil
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	gateway, err := s.gateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}
	creds, err := xorPayCredentials(settings)
	if err != nil {
		return nil, err
	}

	out, err := gateway.QueryOrder(ctx, creds, order.OrderID)
	if err != nil {
		var gatewayErr *provider.GatewayError
		if errors.As(err, &gatewayErr) {
			return &OrderQuery{
				OrderID:     order.OrderID,
				Status:      provider.GatewayStatusWaiting,
				LocalStatus: order.Status,
				Message:     gatewayErr.Message,
			}, nil
		}
		return nil, err
	}

	return &OrderQuery{
		OrderID:     order.OrderID,
		Status:      out.Status,
		LocalStatus: order.Status,
		OpenOrderID: out.OpenOrderID,
	}, nil
}

func (s *OrderService) Refund(ctx context.Context, req refundOrderRequest) (*RefundResult, error) {
	orderID := strings.TrimSpace(req.GetOrderId())
	if orderID == "" {
		return nil, ErrInvalidRequest
	}

	settings, err := s.settings.PaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	creds, err := xorPayCredentials(settings)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, "order:"+orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: only completed orders can be refunded", ErrInvalidStatus)
	}
	if order.RefundStatus != nil && *order.RefundStatus == entity.RefundStatusRefunded {
		return nil, fmt.Errorf("%w: order is already refunded", ErrInvalidStatus)
	}

	gateway, err := s.gateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.GetReason())
	out, err := gateway.Refund(ctx, creds, &provider.RefundInput{OrderID: order.OrderID, Reason: reason})
	if err != nil {
		return nil, err
	}

	if err := s.applyRefund(ctx, order, out.RefundStatus, out, reason); err != nil {
		return nil, err
	}

	return &RefundResult{
		OrderID:      order.OrderID,
		RefundStatus: out.RefundStatus,
		RefundNo:     out.RefundNo,
		RefundFee:    out.RefundFee,
		RefundTime:   out.RefundTime,
	}, nil
}

// Diagnose probes DNS and HTTPS reachability of the gateway mirrors.
func (s *OrderService) Diagnose(ctx context.Context) (*provider.Diagnosis, error) {
	if s.diagnoser == nil {
		return nil, ErrProviderUnsupported
	}
	return s.diagnoser.Diagnose(ctx, s.cfg.DiagnoseTimeout), nil
}

// applyRefund records a gateway refund state on a completed order. A
// finished refund also disables the invite code the order delivered.
func (s *OrderService) applyRefund(ctx context.Context, order *entity.Order, gatewayStatus string, out *provider.RefundOutput, reason string) error {
	now := s.now().UTC()
	oldStatus := order.Status

	refundStatus := refundStatusFor(gatewayStatus)
	order.RefundStatus = &refundStatus
	order.RefundAt = &now
	if reason != "" {
		order.RefundReason = &reason
	}
	if out != nil {
		if out.RefundNo != "" {
			order.RefundNo = &out.RefundNo
		}
		if out.RefundFee != "" {
			order.RefundFee = &out.RefundFee
		}
	}
	if refundStatus == entity.RefundStatusRefunded {
		order.Status = entity.OrderStatusRefunded
	}
	order.UpdatedAt = now

	if err := s.orders.UpdateRefund(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if refundStatus == entity.RefundStatusRefunded && order.InviteCode != nil {
		if err := s.disableInviteCode(ctx, *order.InviteCode); err != nil {
			s.recordEvent(ctx, order.OrderID, "invite_code_disable_failed", nil, order.Status, map[string]string{"error": err.Error()})
		}
	}

	s.recordEvent(ctx, order.OrderID, "refund_"+refundStatus, &oldStatus, order.Status, map[string]string{"gatewayStatus": gatewayStatus})
	return nil
}

func (s *OrderService) disableInviteCode(ctx context.Context, code string) error {
	item, err := s.codes.FindByCode(ctx, code)
	if err != nil || item == nil {
		return err
	}
	note := "[订单退款已禁用]"
	if item.Note != nil && strings.TrimSpace(*item.Note) != "" {
		note = *item.Note + " " + note
	}
	return s.codes.UpdateStatus(ctx, code, entity.InviteCodeStatusDisabled, &note)
}

func refundStatusFor(gatewayStatus string) string {
	switch gatewayStatus {
	case provider.GatewayStatusRefunded:
		return entity.RefundStatusRefunded
	case provider.GatewayStatusRefundFailed:
		return entity.RefundStatusFailed
	default:
		return entity.RefundStatusRefunding
	}
}

func (s *OrderService) findOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrInvalidRequest
	}
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) gateway(method string) (provider.Provider, error) {
	gateway, err := s.providers.Get(method)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnsupported, method)
		}
		return nil, err
	}
	return gateway, nil
}

func (s *OrderService) chargeInput(settings *entity.PaymentSettings, order *entity.Order, title, channel string) *provider.ChargeInput {
	notifyURL := s.app.CallbackBaseURL + callbackPath
	if settings.XorPay != nil && strings.TrimSpace(settings.XorPay.NotifyURL) != "" {
		notifyURL = strings.TrimSpace(settings.XorPay.NotifyURL)
	}

	return &provider.ChargeInput{
		OrderID:   order.OrderID,
		Amount:    order.Amount,
		Title:     title,
		Channel:   channel,
		NotifyURL: notifyURL,
		ReturnURL: fmt.Sprintf("%s/purchase?order_id=%s&status=success", s.app.SiteURL, order.OrderID),
	}
}

func (s *OrderService) lock(ctx context.Context, key string) (func(), error) {
	return acquireLock(ctx, s.locks, key)
}

func acquireLock(ctx context.Context, locks lockProvider, key string) (func(), error) {
	unlock, err := locks.Lock(ctx, key)
	if err != nil {
		if errors.Is(err, locker.ErrLockBusy) {
			return nil, ErrBusy
		}
		return nil, err
	}
	return unlock, nil
}

func (s *OrderService) recordEvent(ctx context.Context, orderID, eventType string, oldStatus *string, newStatus string, payload map[string]string) {
	var payloadJSON *string
	if len(payload) > 0 {
		encoded := encodePayload(payload)
		payloadJSON = &encoded
	}
	_ = s.events.Create(ctx, &entity.OrderEvent{
		OrderID:     orderID,
		EventType:   eventType,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		PayloadJSON: payloadJSON,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *OrderService) batchSize() int32 {
	if s.cfg.JobBatchSize <= 0 {
		return defaultBatchSize
	}
	return s.cfg.JobBatchSize
}

func xorPayCredentials(settings *entity.PaymentSettings) (provider.Credentials, error) {
	if settings == nil || settings.XorPay == nil {
		return provider.Credentials{}, ErrPaymentNotConfigured
	}
	creds := provider.Credentials{
		AppID:     strings.TrimSpace(settings.XorPay.AppID),
		AppSecret: settings.XorPay.AppSecret.Reveal(),
	}
	if creds.AppID == "" || !settings.XorPay.AppSecret.IsSet() {
		return provider.Credentials{}, ErrPaymentNotConfigured
	}
	return creds, nil
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// newOrderID renders "ORD", the unix millis and six base36 characters.
// Bytes at or above the last multiple of 36 are discarded so every character
// is equally likely.
func newOrderID(random io.Reader, now time.Time) (string, error) {
	limit := 256 - 256%len(base36Alphabet)
	suffix := make([]byte, 0, orderIDSuffix)
	buf := make([]byte, orderIDSuffix)
	for len(suffix) < orderIDSuffix {
		chunk := buf[:orderIDSuffix-len(suffix)]
		if _, err := io.ReadFull(random, chunk); err != nil {
			return "", err
		}
		for _, b := range chunk {
			if int(b) >= limit {
				continue
			}
			suffix = append(suffix, base36Alphabet[int(b)%len(base36Alphabet)])
		}
	}
	return "ORD" + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix), nil
}
