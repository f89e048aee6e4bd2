package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

const (
	paymentSettingsKey    = "config:payment"
	membershipSettingsKey = "config:membership"
	emailSettingsKey      = "config:email"
	purchaseLimitsKey     = "config:purchase_limits"
)

// SettingsRepository keeps the singleton configuration documents in Redis.
type SettingsRepository struct {
	rdb    redis.Cmdable
	prefix string
}

func NewSettingsRepository(rdb redis.Cmdable, prefix string) *SettingsRepository {
	return &SettingsRepository{rdb: rdb, prefix: prefix}
}

type xorPayDocument struct {
	AppID     string `json:"appId"`
	AppSecret string `json:"appSecret"`
	NotifyURL string `json:"notifyUrl,omitempty"`
}

type wechatOfficialDocument struct {
	AppID     string `json:"appId"`
	MchID     string `json:"mchId"`
	APIKey    string `json:"apiKey"`
	NotifyURL string `json:"notifyUrl,omitempty"`
}

type alipayOfficialDocument struct {
	AppID      string `json:"appId"`
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	NotifyURL  string `json:"notifyUrl,omitempty"`
}

type paymentSettingsDocument struct {
	Enabled        bool                    `json:"enabled"`
	Method         string                  `json:"method"`
	EnabledMethods []string                `json:"enabledMethods,omitempty"`
	XorPay         *xorPayDocument         `json:"xorpay,omitempty"`
	WechatOfficial *wechatOfficialDocument `json:"wechat,omitempty"`
	AlipayOfficial *alipayOfficialDocument `json:"alipay,omitempty"`
}

type membershipTierDocument struct {
	Name          string           `json:"name"`
	Duration      int              `json:"duration"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Discount      *int             `json:"discount,omitempty"`
	Enabled       *bool            `json:"enabled,omitempty"`
	Description   string           `json:"description,omitempty"`
	Features      []string         `json:"features,omitempty"`
}

type smtpDocument struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
}

type emailSettingsDocument struct {
	Enabled      bool          `json:"enabled"`
	Provider     string        `json:"provider"`
	SMTP         *smtpDocument `json:"smtp,omitempty"`
	ResendAPIKey string        `json:"resendApiKey,omitempty"`
	FromEmail    string        `json:"fromEmail"`
	FromName     string        `json:"fromName,omitempty"`
}

type purchaseLimitsDocument struct {
	TrialMaxPerEmail int `json:"trialMaxPerEmail"`
	TrialMaxPerDay   int `json:"trialMaxPerDay"`
}

func (r *SettingsRepository) GetPaymentSettings(ctx context.Context) (*entity.PaymentSettings, error) {
	doc := &paymentSettingsDocument{}
	found, err := r.load(ctx, paymentSettingsKey, doc)
	if err != nil || !found {
		return nil, err
	}
	return paymentSettingsFromDocument(doc), nil
}

func (r *SettingsRepository) SavePaymentSettings(ctx context.Context, settings *entity.PaymentSettings) error {
	return r.store(ctx, paymentSettingsKey, paymentSettingsToDocument(settings))
}

func (r *SettingsRepository) GetMembershipConfig(ctx context.Context) (entity.MembershipConfig, error) {
	doc := map[string]membershipTierDocument{}
	found, err := r.load(ctx, membershipSettingsKey, &doc)
	if err != nil || !found {
		return nil, err
	}
	return membershipConfigFromDocument(doc), nil
}

func (r *SettingsRepository) SaveMembershipConfig(ctx context.Context, config entity.MembershipConfig) error {
	return r.store(ctx, membershipSettingsKey, membershipConfigToDocument(config))
}

func (r *SettingsRepository) GetEmailSettings(ctx context.Context) (*entity.EmailSettings, error) {
	doc := &emailSettingsDocument{}
	found, err := r.load(ctx, emailSettingsKey, doc)
	if err != nil || !found {
		return nil, err
	}
	return emailSettingsFromDocument(doc), nil
}

func (r *SettingsRepository) SaveEmailSettings(ctx context.Context, settings *entity.EmailSettings) error {
	return r.store(ctx, emailSettingsKey, emailSettingsToDocument(settings))
}

func (r *SettingsRepository) GetPurchaseLimits(ctx context.Context) (*entity.PurchaseLimits, error) {
	doc := &purchaseLimitsDocument{}
	found, err := r.load(ctx, purchaseLimitsKey, doc)
	if err != nil || !found {
		return nil, err
	}
	return &entity.PurchaseLimits{
		TrialMaxPerEmail: doc.TrialMaxPerEmail,
		TrialMaxPerDay:   doc.TrialMaxPerDay,
	}, nil
}

func (r *SettingsRepository) SavePurchaseLimits(ctx context.Context, limits *entity.PurchaseLimits) error {
	return r.store(ctx, purchaseLimitsKey, &purchaseLimitsDocument{
		TrialMaxPerEmail: limits.TrialMaxPerEmail,
		TrialMaxPerDay:   limits.TrialMaxPerDay,
	})
}

func (r *SettingsRepository) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + ":" + name
}

func (r *SettingsRepository) load(ctx context.Context, name string, dest interface{}) (bool, error) {
	payload, err := r.rdb.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SettingsRepository) store(ctx context.Context, name string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(name), payload, 0).Err()
}

func paymentSettingsToDocument(settings *entity.PaymentSettings) *paymentSettingsDocument {
	doc := &paymentSettingsDocument{
		Enabled:        settings.Enabled,
		Method:         settings.Method,
		EnabledMethods: settings.EnabledMethods,
	}
	if c := settings.XorPay; c != nil {
		doc.XorPay = &xorPayDocument{AppID: c.AppID, AppSecret: c.AppSecret.Reveal(), NotifyURL: c.NotifyURL}
	}
	if c := settings.WechatOfficial; c != nil {
		doc.WechatOfficial = &wechatOfficialDocument{AppID: c.AppID, MchID: c.MchID, APIKey: c.APIKey.Reveal(), NotifyURL: c.NotifyURL}
	}
	if c := settings.AlipayOfficial; c != nil {
		doc.AlipayOfficial = &alipayOfficialDocument{AppID: c.AppID, PrivateKey: c.PrivateKey.Reveal(), PublicKey: c.PublicKey, NotifyURL: c.NotifyURL}
	}
	return doc
}

func paymentSettingsFromDocument(doc *paymentSettingsDocument) *entity.PaymentSettings {
	settings := &entity.PaymentSettings{
		Enabled:        doc.Enabled,
		Method:         doc.Method,
		EnabledMethods: doc.EnabledMethods,
	}
	if d := doc.XorPay; d != nil {
		settings.XorPay = &entity.XorPayCredentials{AppID: d.AppID, AppSecret: entity.NewSecret(d.AppSecret), NotifyURL: d.NotifyURL}
	}
	if d := doc.WechatOfficial; d != nil {
		settings.WechatOfficial = &entity.WechatOfficialCredentials{AppID: d.AppID, MchID: d.MchID, APIKey: entity.NewSecret(d.APIKey), NotifyURL: d.NotifyURL}
	}
	if d := doc.AlipayOfficial; d != nil {
		settings.AlipayOfficial = &entity.AlipayOfficialCredentials{AppID: d.AppID, PrivateKey: entity.NewSecret(d.PrivateKey), PublicKey: d.PublicKey, NotifyURL: d.NotifyURL}
	}
	return settings
}

func membershipConfigToDocument(config entity.MembershipConfig) map[string]membershipTierDocument {
	doc := make(map[string]membershipTierDocument, len(config))
	for key, tier := range config {
		doc[key] = membershipTierDocument{
			Name:          tier.Name,
			Duration:      tier.Duration,
			Price:         tier.Price,
			DiscountPrice: tier.DiscountPrice,
			Discount:      tier.Discount,
			Enabled:       tier.Enabled,
			Description:   tier.Description,
			Features:      tier.Features,
		}
	}
	return doc
}

func membershipConfigFromDocument(doc map[string]membershipTierDocument) entity.MembershipConfig {
	config := make(entity.MembershipConfig, len(doc))
	for key, d := range doc {
		config[key] = entity.MembershipTier{
			Type:          key,
			Name:          d.Name,
			Duration:      d.Duration,
			Price:         d.Price,
			DiscountPrice: d.DiscountPrice,
			Discount:      d.Discount,
			Enabled:       d.Enabled,
			Description:   d.Description,
			Features:      d.Features,
		}
	}
	return config
}

func emailSettingsToDocument(settings *entity.EmailSettings) *emailSettingsDocument {
	doc := &emailSettingsDocument{
		Enabled:      settings.Enabled,
		Provider:     settings.Provider,
		ResendAPIKey: settings.ResendAPIKey.Reveal(),
		FromEmail:    settings.FromEmail,
		FromName:     settings.FromName,
	}
	if s := settings.SMTP; s != nil {
		doc.SMTP = &smtpDocument{Host: s.Host, Port: s.Port, Secure: s.Secure, User: s.User, Pass: s.Pass.Reveal()}
	}
	return doc
}

func emailSettingsFromDocument(doc *emailSettingsDocument) *entity.EmailSettings {
	settings := &entity.EmailSettings{
		Enabled:      doc.Enabled,
		Provider:     doc.Provider,
		ResendAPIKey: entity.NewSecret(doc.ResendAPIKey),
		FromEmail:    doc.FromEmail,
		FromName:     doc.FromName,
	}
	if d := doc.SMTP; d != nil {
		settings.SMTP = &entity.SMTPSettings{Host: d.Host, Port: d.Port, Secure: d.Secure, User: d.User, Pass: entity.NewSecret(d.Pass)}
	}
	return settings
}
