package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type serviceOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
	nextID uint64

	createErr  error
	lastFilter repository.OrderFilter
}

func newServiceOrderRepo() *serviceOrderRepo {
	return &serviceOrderRepo{orders: map[string]*entity.Order{}, nextID: 1}
}

func (r *serviceOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.orders[order.OrderID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	order.ID = r.nextID
	r.nextID++
	copyItem := *order
	r.orders[order.OrderID] = &copyItem
	return nil
}

func (r *serviceOrderRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if filter.UserID != "" && (item.UserID == nil || *item.UserID != filter.UserID) {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return limitOrders(items, filter.Limit), nil
}

func (r *serviceOrderRepo) ListPendingCreatedBefore(_ context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if item.Status == entity.OrderStatusPending && !item.CreatedAt.After(before) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return limitOrders(items, limit), nil
}

func (r *serviceOrderRepo) UpdatePaymentMethod(_ context.Context, orderID, method string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.PaymentMethod = method
	item.UpdatedAt = now
	return nil
}

func (r *serviceOrderRepo) CompleteIfOpen(_ context.Context, order *entity.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[order.OrderID]
	if !ok || (item.Status != entity.OrderStatusPending && item.Status != entity.OrderStatusCancelled) {
		return false, nil
	}
	copyItem := *order
	copyItem.Status = entity.OrderStatusCompleted
	copyItem.ReservedCode = nil
	r.orders[order.OrderID] = &copyItem
	return true, nil
}

func (r *serviceOrderRepo) SetEmailSent(_ context.Context, orderID string, sent bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.orders[orderID]; ok {
		item.EmailSent = &sent
		item.UpdatedAt = now
	}
	return nil
}

func (r *serviceOrderRepo) UpdateRefund(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[order.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.Status = order.Status
	item.RefundStatus = order.RefundStatus
	item.RefundAt = order.RefundAt
	item.RefundReason = order.RefundReason
	item.RefundNo = order.RefundNo
	item.RefundFee = order.RefundFee
	item.UpdatedAt = order.UpdatedAt
	return nil
}

func (r *serviceOrderRepo) CancelIfPending(_ context.Context, orderID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[orderID]
	if !ok || item.Status != entity.OrderStatusPending {
		return false, nil
	}
	item.Status = entity.OrderStatusCancelled
	item.ReservedCode = nil
	item.UpdatedAt = now
	return true, nil
}

func (r *serviceOrderRepo) CountTrialOrders(_ context.Context, filter repository.TrialOrderFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.orders {
		if item.MembershipType != entity.MembershipTrial {
			continue
		}
		counted := item.Status == entity.OrderStatusCompleted || item.Status == entity.OrderStatusPaid ||
			(item.Status == entity.OrderStatusPending && item.CreatedAt.After(filter.PendingAfter))
		if !counted {
			continue
		}
		if filter.Email != "" && item.Email != filter.Email {
			continue
		}
		if filter.Since != nil && item.CreatedAt.Before(*filter.Since) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *serviceOrderRepo) get(orderID string) *entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.orders[orderID]
	if item == nil {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func limitOrders(items []*entity.Order, limit int32) []*entity.Order {
	if limit <= 0 || int(limit) >= len(items) {
		return items
	}
	return items[:limit]
}

type serviceCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*entity.InviteCode
}

func newServiceCodeRepo() *serviceCodeRepo {
	return &serviceCodeRepo{codes: map[string]*entity.InviteCode{}}
}

func (r *serviceCodeRepo) add(item *entity.InviteCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *item
	r.codes[item.Code] = &copyItem
}

func (r *serviceCodeRepo) get(code string) *entity.InviteCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.codes[code]
	if item == nil {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (r *serviceCodeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

func (r *serviceCodeRepo) Exists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.codes[code]
	return ok, nil
}

func (r *serviceCodeRepo) Create(_ context.Context, item *entity.InviteCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[item.Code]; ok {
		return repository.ErrInviteCodeAlreadyExists
	}
	copyItem := *item
	r.codes[item.Code] = &copyItem
	return nil
}

func (r *serviceCodeRepo) FindByCode(_ context.Context, code string) (*entity.InviteCode, error) {
	return r.get(code), nil
}

func (r *serviceCodeRepo) List(_ context.Context, filter repository.InviteCodeFilter) ([]*entity.InviteCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.InviteCode, 0)
	for _, item := range r.codes {
		if filter.MembershipType != "" && item.MembershipType != filter.MembershipType {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	if filter.Limit > 0 && int(filter.Limit) < len(items) {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *serviceCodeRepo) DeleteUnlessUsed(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.codes[code]
	if !ok || item.Status == entity.InviteCodeStatusUsed || item.ReservedOrderID != nil {
		return false, nil
	}
	delete(r.codes, code)
	return true, nil
}

func (r *serviceCodeRepo) CountStock(_ context.Context, now time.Time) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, item := range r.codes {
		if sellable(item, now) {
			counts[item.MembershipType]++
		}
	}
	return counts, nil
}

func (r *serviceCodeRepo) Reserve(_ context.Context, membershipType, orderID string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := make([]*entity.InviteCode, 0)
	for _, item := range r.codes {
		if item.MembershipType == membershipType && sellable(item, now) {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Code < candidates[j].Code })
	reservedBy := orderID
	candidates[0].ReservedOrderID = &reservedBy
	return candidates[0].Code, nil
}

func (r *serviceCodeRepo) ReleaseReservation(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.codes {
		if item.ReservedOrderID != nil && *item.ReservedOrderID == orderID {
			item.ReservedOrderID = nil
		}
	}
	return nil
}

func (r *serviceCodeRepo) ConsumeReservation(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, item := range r.codes {
		if item.ReservedOrderID != nil && *item.ReservedOrderID == orderID {
			delete(r.codes, code)
		}
	}
	return nil
}

func (r *serviceCodeRepo) MarkUsed(_ context.Context, code, usedBy string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.codes[code]
	if !ok || item.ReservedOrderID != nil || !item.Redeemable(now) {
		return false, nil
	}
	item.Status = entity.InviteCodeStatusUsed
	item.UsedBy = &usedBy
	item.UsedAt = &now
	return true, nil
}

func (r *serviceCodeRepo) UpdateStatus(_ context.Context, code, status string, note *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.codes[code]; ok {
		item.Status = status
		item.Note = note
	}
	return nil
}

func (r *serviceCodeRepo) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, code)
	return nil
}

func (r *serviceCodeRepo) ExpireOverdue(_ context.Context, now time.Time, limit int32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, item := range r.codes {
		if limit > 0 && affected >= int64(limit) {
			break
		}
		if item.Status == entity.InviteCodeStatusUnused && item.ReservedOrderID == nil &&
			item.ExpiresAt != nil && !item.ExpiresAt.After(now) {
			item.Status = entity.InviteCodeStatusExpired
			affected++
		}
	}
	return affected, nil
}

func sellable(item *entity.InviteCode, now time.Time) bool {
	return item.OrderID == nil && item.ReservedOrderID == nil && item.Redeemable(now)
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.OrderEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

type serviceCallbackRepo struct {
	mu        sync.Mutex
	callbacks []*entity.GatewayCallback
}

func (r *serviceCallbackRepo) Create(_ context.Context, callback *entity.GatewayCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *callback
	r.callbacks = append(r.callbacks, &copyItem)
	return nil
}

type serviceSettings struct {
	payment *entity.PaymentSettings
	tiers   entity.MembershipConfig
	limits  *entity.PurchaseLimits
}

func newServiceSettings() *serviceSettings {
	return &serviceSettings{
		payment: &entity.PaymentSettings{
			Enabled: true,
			Method:  entity.PaymentMethodXorPayWechat,
			XorPay: &entity.XorPayCredentials{
				AppID:     "app-1",
				AppSecret: entity.NewSecret("secret"),
			},
		},
		tiers:  entity.DefaultMembershipConfig(),
		limits: entity.DefaultPurchaseLimits(),
	}
}

func (s *serviceSettings) PaymentSettings(context.Context) (*entity.PaymentSettings, error) {
	copyItem := *s.payment
	return &copyItem, nil
}

func (s *serviceSettings) MembershipConfig(context.Context) (entity.MembershipConfig, error) {
	return s.tiers, nil
}

func (s *serviceSettings) PurchaseLimits(context.Context) (*entity.PurchaseLimits, error) {
	return s.limits, nil
}

// keyedLocker serializes callers per key the way the redis locker does.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	keys  []string
	err   error
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: map[string]*sync.Mutex{}}
}

func (l *keyedLocker) Lock(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type serviceMailer struct {
	mu     sync.Mutex
	sent   []string
	sendFn func(to, code, membershipName string) error
}

func (m *serviceMailer) SendInviteCode(_ context.Context, to, code, membershipName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFn != nil {
		if err := m.sendFn(to, code, membershipName); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, to+":"+code+":"+membershipName)
	return nil
}

type serviceProvider struct {
	checkoutErr error
	chargeInput *provider.ChargeInput
	chargeOut   *provider.ChargeOutput
	chargeErr   error
	queryOut    *provider.QueryOutput
	queryErr    error
	refundOut   *provider.RefundOutput
	refundErr   error
	callbackEvt *provider.CallbackEvent
	callbackErr error
}

func (p *serviceProvider) Name() string {
	return "xorpay"
}

func (p *serviceProvider) Methods() []string {
	return []string{entity.PaymentMethodXorPayWechat, entity.PaymentMethodXorPayAlipay}
}

func (p *serviceProvider) Channel(method string) string {
	if method == entity.PaymentMethodXorPayAlipay {
		return "alipay"
	}
	return "native"
}

func (p *serviceProvider) BuildCheckout(_ provider.Credentials, input *provider.ChargeInput) (*provider.Checkout, error) {
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	return &provider.Checkout{
		GatewayURL: "https://gw.example/payment/do.html",
		Params:     map[string]string{"trade_order_id": input.OrderID, "total_fee": input.Amount.StringFixed(2)},
		Hash:       "hash",
	}, nil
}

func (p *serviceProvider) CreateCharge(_ context.Context, _ provider.Credentials, input *provider.ChargeInput) (*provider.ChargeOutput, error) {
	p.chargeInput = input
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	if p.chargeOut != nil {
		return p.chargeOut, nil
	}
	return &provider.ChargeOutput{QRCodeURL: "weixin://wxpay/bizpayurl?pr=abc", URL: "https://gw.example/pay/abc"}, nil
}

func (p *serviceProvider) QueryOrder(context.Context, provider.Credentials, string) (*provider.QueryOutput, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.queryOut != nil {
		return p.queryOut, nil
	}
	return &provider.QueryOutput{Status: provider.GatewayStatusWaiting}, nil
}

func (p *serviceProvider) Refund(context.Context, provider.Credentials, *provider.RefundInput) (*provider.RefundOutput, error) {
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	if p.refundOut != nil {
		return p.refundOut, nil
	}
	return &provider.RefundOutput{RefundStatus: provider.GatewayStatusRefunded, RefundNo: "RF1", RefundFee: "25.00"}, nil
}

func (p *serviceProvider) VerifyAndParseCallback(creds provider.Credentials, fields map[string]string) (*provider.CallbackEvent, error) {
	if p.callbackErr != nil {
		return nil, p.callbackErr
	}
	if p.callbackEvt != nil {
		return p.callbackEvt, nil
	}
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

type orderServiceFixture struct {
	svc       *OrderService
	orders    *serviceOrderRepo
	codes     *serviceCodeRepo
	events    *serviceEventRepo
	callbacks *serviceCallbackRepo
	settings  *serviceSettings
	locks     *keyedLocker
	mailer    *serviceMailer
	gateway   *serviceProvider
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		orders:    newServiceOrderRepo(),
		codes:     newServiceCodeRepo(),
		events:    &serviceEventRepo{},
		callbacks: &serviceCallbackRepo{},
		settings:  newServiceSettings(),
		locks:     newKeyedLocker(),
		mailer:    &serviceMailer{},
		gateway:   &serviceProvider{},
	}
	f.svc = NewOrderService(OrderServiceDeps{
		Orders:    f.orders,
		Codes:     f.codes,
		Events:    f.events,
		Callbacks: f.callbacks,
		Settings:  f.settings,
		Locks:     f.locks,
		Providers: provider.NewRegistry(f.gateway),
		Mailer:    f.mailer,
		App: config.AppConfig{
			SiteName:        "LunaTV",
			SiteURL:         "https://tv.example",
			CallbackBaseURL: "https://api.example",
			Location:        time.UTC,
		},
		Config: config.MembershipsConfig{
			PendingTimeout:      30 * time.Minute,
			ReconcileStaleAfter: 2 * time.Minute,
			JobBatchSize:        100,
		},
	})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *orderServiceFixture) stock(code, membershipType string) {
	f.codes.add(&entity.InviteCode{
		Code:           code,
		MembershipType: membershipType,
		Status:         entity.InviteCodeStatusUnused,
		CreatedBy:      "admin",
		CreatedAt:      fixedNow.Add(-24 * time.Hour),
	})
}

func (f *orderServiceFixture) pendingOrder(orderID, membershipType, reservedCode string, createdAt time.Time) *entity.Order {
	order := &entity.Order{
		OrderID:        orderID,
		Email:          "buyer@example.com",
		MembershipType: membershipType,
		Amount:         decimal.NewFromInt(25),
		PaymentMethod:  entity.PaymentMethodXorPayWechat,
		Status:         entity.OrderStatusPending,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if reservedCode != "" {
		order.ReservedCode = &reservedCode
		f.stock(reservedCode, membershipType)
		f.codes.mu.Lock()
		reservedBy := orderID
		f.codes.codes[reservedCode].ReservedOrderID = &reservedBy
		f.codes.mu.Unlock()
	}
	_ = f.orders.Create(context.Background(), order)
	return order
}

func stringPtr(value string) *string {
	return &value
}
