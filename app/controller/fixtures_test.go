package controller

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

type controllerOrderRepo struct {
	createFn            func(ctx context.Context, order *entity.Order) error
	findByOrderIDFn     func(ctx context.Context, orderID string) (*entity.Order, error)
	listFn              func(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error)
	completeIfOpenFn func(ctx context.Context, order *entity.Order) (bool, error)
}

func (r *controllerOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if r.createFn != nil {
		return r.createFn(ctx, order)
	}
	return nil
}

func (r *controllerOrderRepo) FindByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	if r.findByOrderIDFn != nil {
		return r.findByOrderIDFn(ctx, orderID)
	}
	return nil, nil
}

func (r *controllerOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Order{}, nil
}

func (r *controllerOrderRepo) ListPendingCreatedBefore(context.Context, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

func (r *controllerOrderRepo) UpdatePaymentMethod(context.Context, string, string, time.Time) error {
	return nil
}

func (r *controllerOrderRepo) CompleteIfOpen(ctx context.Context, order *entity.Order) (bool, error) {
	if r.completeIfOpenFn != nil {
		return r.completeIfOpenFn(ctx, order)
	}
	return true, nil
}

func (r *controllerOrderRepo) SetEmailSent(context.Context, string, bool, time.Time) error {
	return nil
}

func (r *controllerOrderRepo) UpdateRefund(context.Context, *entity.Order) error {
	return nil
}

func (r *controllerOrderRepo) CancelIfPending(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (r *controllerOrderRepo) CountTrialOrders(context.Context, repository.TrialOrderFilter) (int, error) {
	return 0, nil
}

type controllerCodeRepo struct {
	reserveFn    func(ctx context.Context, membershipType, orderID string, now time.Time) (string, error)
	findByCodeFn func(ctx context.Context, code string) (*entity.InviteCode, error)
	createFn     func(ctx context.Context, code *entity.InviteCode) error
	listFn       func(ctx context.Context, filter repository.InviteCodeFilter) ([]*entity.InviteCode, error)
	countStockFn func(ctx context.Context, now time.Time) (map[string]int, error)
	deleteFn     func(ctx context.Context, code string) (bool, error)
}

func (r *controllerCodeRepo) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func (r *controllerCodeRepo) Create(ctx context.Context, code *entity.InviteCode) error {
	if r.createFn != nil {
		return r.createFn(ctx, code)
	}
	return nil
}

func (r *controllerCodeRepo) Reserve(ctx context.Context, membershipType, orderID string, now time.Time) (string, error) {
	if r.reserveFn != nil {
		return r.reserveFn(ctx, membershipType, orderID, now)
	}
	return "MONTHLY00001", nil
}

func (r *controllerCodeRepo) ReleaseReservation(context.Context, string) error {
	return nil
}

func (r *controllerCodeRepo) ConsumeReservation(context.Context, string) error {
	return nil
}

func (r *controllerCodeRepo) FindByCode(ctx context.Context, code string) (*entity.InviteCode, error) {
	if r.findByCodeFn != nil {
		return r.findByCodeFn(ctx, code)
	}
	return nil, nil
}

func (r *controllerCodeRepo) UpdateStatus(context.Context, string, string, *string) error {
	return nil
}

func (r *controllerCodeRepo) Delete(context.Context, string) error {
	return nil
}

func (r *controllerCodeRepo) List(ctx context.Context, filter repository.InviteCodeFilter) ([]*entity.InviteCode, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.InviteCode{}, nil
}

func (r *controllerCodeRepo) DeleteUnlessUsed(ctx context.Context, code string) (bool, error) {
	if r.deleteFn != nil {
		return r.deleteFn(ctx, code)
	}
	return true, nil
}

func (r *controllerCodeRepo) CountStock(ctx context.Context, now time.Time) (map[string]int, error) {
	if r.countStockFn != nil {
		return r.countStockFn(ctx, now)
	}
	return map[string]int{}, nil
}

func (r *controllerCodeRepo) MarkUsed(context.Context, string, string, time.Time) (bool, error) {
	return true, nil
}

func (r *controllerCodeRepo) ExpireOverdue(context.Context, time.Time, int32) (int64, error) {
	return 0, nil
}

type controllerEventRepo struct{}

func (r *controllerEventRepo) Create(context.Context, *entity.OrderEvent) error {
	return nil
}

type controllerCallbackRepo struct{}

func (r *controllerCallbackRepo) Create(context.Context, *entity.GatewayCallback) error {
	return nil
}

type controllerMembershipRepo struct {
	findFn func(ctx context.Context, username string) (*entity.UserMembership, error)
}

func (r *controllerMembershipRepo) FindByUsername(ctx context.Context, username string) (*entity.UserMembership, error) {
	if r.findFn != nil {
		return r.findFn(ctx, username)
	}
	return nil, nil
}

func (r *controllerMembershipRepo) Save(context.Context, *entity.UserMembership) error {
	return nil
}

type controllerSettingsStore struct {
	payment *entity.PaymentSettings
	tiers   entity.MembershipConfig
	email   *entity.EmailSettings
	limits  *entity.PurchaseLimits
}

func newControllerSettingsStore() *controllerSettingsStore {
	return &controllerSettingsStore{
		payment: &entity.PaymentSettings{
			Enabled: true,
			Method:  entity.PaymentMethodXorPayWechat,
			XorPay:  &entity.XorPayCredentials{AppID: "app-1", AppSecret: entity.NewSecret("secret")},
		},
	}
}

func (s *controllerSettingsStore) GetPaymentSettings(context.Context) (*entity.PaymentSettings, error) {
	return s.payment, nil
}

func (s *controllerSettingsStore) SavePaymentSettings(_ context.Context, settings *entity.PaymentSettings) error {
	s.payment = settings
	return nil
}

func (s *controllerSettingsStore) GetMembershipConfig(context.Context) (entity.MembershipConfig, error) {
	return s.tiers, nil
}

func (s *controllerSettingsStore) SaveMembershipConfig(_ context.Context, cfg entity.MembershipConfig) error {
	s.tiers = cfg
	return nil
}

func (s *controllerSettingsStore) GetEmailSettings(context.Context) (*entity.EmailSettings, error) {
	return s.email, nil
}

func (s *controllerSettingsStore) SaveEmailSettings(_ context.Context, settings *entity.EmailSettings) error {
	s.email = settings
	return nil
}

func (s *controllerSettingsStore) GetPurchaseLimits(context.Context) (*entity.PurchaseLimits, error) {
	return s.limits, nil
}

func (s *controllerSettingsStore) SavePurchaseLimits(_ context.Context, limits *entity.PurchaseLimits) error {
	s.limits = limits
	return nil
}

type controllerLocker struct {
	err error
}

func (l *controllerLocker) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

type controllerMailer struct{}

func (m *controllerMailer) SendInviteCode(context.Context, string, string, string) error {
	return nil
}

type controllerProvider struct {
	queryOut *provider.QueryOutput
	queryErr error
}

func (p *controllerProvider) Name() string {
	return "xorpay"
}

func (p *controllerProvider) Methods() []string {
	return []string{entity.PaymentMethodXorPayWechat, entity.PaymentMethodXorPayAlipay}
}

func (p *controllerProvider) Channel(method string) string {
	if method == entity.PaymentMethodXorPayAlipay {
		return "alipay"
	}
	return "native"
}

func (p *controllerProvider) BuildCheckout(_ provider.Credentials, input *provider.ChargeInput) (*provider.Checkout, error) {
	return &provider.Checkout{
		GatewayURL: "https://gw.example/payment/do.html",
		Params:     map[string]string{"trade_order_id": input.OrderID, "total_fee": input.Amount.StringFixed(2)},
		Hash:       "hash",
	}, nil
}

func (p *controllerProvider) CreateCharge(context.Context, provider.Credentials, *provider.ChargeInput) (*provider.ChargeOutput, error) {
	return &provider.ChargeOutput{QRCodeURL: "weixin://wxpay/bizpayurl?pr=abc", URL: "https://gw.example/pay/abc"}, nil
}

func (p *controllerProvider) QueryOrder(context.Context, provider.Credentials, string) (*provider.QueryOutput, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.queryOut != nil {
		return p.queryOut, nil
	}
	return &provider.QueryOutput{Status: provider.GatewayStatusWaiting}, nil
}

func (p *controllerProvider) Refund(context.Context, provider.Credentials, *provider.RefundInput) (*provider.RefundOutput, error) {
	return &provider.RefundOutput{RefundStatus: provider.GatewayStatusRefunded, RefundNo: "RF1", RefundFee: "25.00"}, nil
}

func (p *controllerProvider) VerifyAndParseCallback(creds provider.Credentials, fields map[string]string) (*provider.CallbackEvent, error) {
	if !provider.VerifySignature(fields, creds.AppSecret) {
		return nil, provider.ErrInvalidSignature
	}
	return &provider.CallbackEvent{
		OrderID:       fields["trade_order_id"],
		OpenOrderID:   fields["open_order_id"],
		TransactionID: fields["transaction_id"],
		TotalFee:      fields["total_fee"],
		Status:        fields["status"],
	}, nil
}

type controllerDeps struct {
	orders   *controllerOrderRepo
	codes    *controllerCodeRepo
	settings *controllerSettingsStore
	locks    *controllerLocker
	gateway  *controllerProvider
}

func newControllerDeps() *controllerDeps {
	return &controllerDeps{
		orders:   &controllerOrderRepo{},
		codes:    &controllerCodeRepo{},
		settings: newControllerSettingsStore(),
		locks:    &controllerLocker{},
		gateway:  &controllerProvider{},
	}
}

func (d *controllerDeps) settingsService() *service.SettingsService {
	return service.NewSettingsService(d.settings, config.EmailConfig{})
}

func (d *controllerDeps) orderService() *service.OrderService {
	return service.NewOrderService(service.OrderServiceDeps{
		Orders:    d.orders,
		Codes:     d.codes,
		Events:    &controllerEventRepo{},
		Callbacks: &controllerCallbackRepo{},
		Settings:  d.settingsService(),
		Locks:     d.locks,
		Providers: provider.NewRegistry(d.gateway),
		Mailer:    &controllerMailer{},
		App: config.AppConfig{
			SiteName:        "LunaTV",
			SiteURL:         "https://tv.example",
			CallbackBaseURL: "https://api.example",
			Location:        time.UTC,
		},
		Config: config.MembershipsConfig{PendingTimeout: 30 * time.Minute, ReconcileStaleAfter: 2 * time.Minute, JobBatchSize: 100},
	})
}

func (d *controllerDeps) inviteCodeService(memberships *controllerMembershipRepo) *service.InviteCodeService {
	if memberships == nil {
		memberships = &controllerMembershipRepo{}
	}
	return service.NewInviteCodeService(d.codes, memberships, d.settingsService(), d.locks, config.MembershipsConfig{JobBatchSize: 100})
}

func pendingOrder(orderID, email string, userID *string) *entity.Order {
	now := time.Now().UTC()
	return &entity.Order{
		ID:             7,
		OrderID:        orderID,
		UserID:         userID,
		Email:          email,
		MembershipType: entity.MembershipMonthly,
		Amount:         entity.DefaultMembershipConfig()[entity.MembershipMonthly].ActualPrice(),
		PaymentMethod:  entity.PaymentMethodXorPayWechat,
		Status:         entity.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func stringPtr(value string) *string {
	return &value
}
