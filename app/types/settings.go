package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

// Secret fields serialize as a placeholder. Echoing the placeholder back on
// save keeps the stored value.

type XorPayConfig struct {
	AppId     string        `json:"appId"`
	AppSecret entity.Secret `json:"appSecret"`
	NotifyUrl string        `json:"notifyUrl"`
}

type WechatOfficialConfig struct {
	AppId     string        `json:"appId"`
	MchId     string        `json:"mchId"`
	ApiKey    entity.Secret `json:"apiKey"`
	NotifyUrl string        `json:"notifyUrl"`
}

type AlipayOfficialConfig struct {
	AppId      string        `json:"appId"`
	PrivateKey entity.Secret `json:"privateKey"`
	PublicKey  string        `json:"publicKey"`
	NotifyUrl  string        `json:"notifyUrl"`
}

type PaymentConfig struct {
	Enabled        bool                  `json:"enabled"`
	Method         string                `json:"method"`
	EnabledMethods []string              `json:"enabledMethods,omitempty"`
	XorPay         *XorPayConfig         `json:"xorpay,omitempty"`
	WechatOfficial *WechatOfficialConfig `json:"wechatOfficial,omitempty"`
	AlipayOfficial *AlipayOfficialConfig `json:"alipayOfficial,omitempty"`
}

func NewPaymentConfigFromContext(ctx echo.Context) (*PaymentConfig, error) {
	var body PaymentConfig
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Method = strings.ToLower(strings.TrimSpace(body.Method))
	for i, method := range body.EnabledMethods {
		body.EnabledMethods[i] = strings.ToLower(strings.TrimSpace(method))
	}
	if body.XorPay != nil {
		body.XorPay.AppId = strings.TrimSpace(body.XorPay.AppId)
		body.XorPay.NotifyUrl = strings.TrimSpace(body.XorPay.NotifyUrl)
	}
	if body.WechatOfficial != nil {
		body.WechatOfficial.AppId = strings.TrimSpace(body.WechatOfficial.AppId)
		body.WechatOfficial.MchId = strings.TrimSpace(body.WechatOfficial.MchId)
		body.WechatOfficial.NotifyUrl = strings.TrimSpace(body.WechatOfficial.NotifyUrl)
	}
	if body.AlipayOfficial != nil {
		body.AlipayOfficial.AppId = strings.TrimSpace(body.AlipayOfficial.AppId)
		body.AlipayOfficial.NotifyUrl = strings.TrimSpace(body.AlipayOfficial.NotifyUrl)
	}

	return &body, nil
}

func (r *PaymentConfig) Validate() error {
	if r.Method == "" {
		return errors.New("method is required")
	}
	if r.XorPay != nil && r.XorPay.NotifyUrl != "" && !isHTTPURL(r.XorPay.NotifyUrl) {
		return errors.New("xorpay.notifyUrl must be an http(s) url")
	}
	return nil
}

func (r *PaymentConfig) ToEntity() *entity.PaymentSettings {
	settings := &entity.PaymentSettings{
		Enabled:        r.Enabled,
		Method:         r.Method,
		EnabledMethods: append([]string(nil), r.EnabledMethods...),
	}
	if r.XorPay != nil {
		settings.XorPay = &entity.XorPayCredentials{
			AppID:     r.XorPay.AppId,
			AppSecret: r.XorPay.AppSecret,
			NotifyURL: r.XorPay.NotifyUrl,
		}
	}
	if r.WechatOfficial != nil {
		settings.WechatOfficial = &entity.WechatOfficialCredentials{
			AppID:     r.WechatOfficial.AppId,
			MchID:     r.WechatOfficial.MchId,
			APIKey:    r.WechatOfficial.ApiKey,
			NotifyURL: r.WechatOfficial.NotifyUrl,
		}
	}
	if r.AlipayOfficial != nil {
		settings.AlipayOfficial = &entity.AlipayOfficialCredentials{
			AppID:      r.AlipayOfficial.AppId,
			PrivateKey: r.AlipayOfficial.PrivateKey,
			PublicKey:  r.AlipayOfficial.PublicKey,
			NotifyURL:  r.AlipayOfficial.NotifyUrl,
		}
	}
	return settings
}

type SMTPConfig struct {
	Host   string        `json:"host"`
	Port   int           `json:"port"`
	Secure bool          `json:"secure"`
	User   string        `json:"user"`
	Pass   entity.Secret `json:"pass"`
}

type EmailConfig struct {
	Enabled      bool          `json:"enabled"`
	Provider     string        `json:"provider"`
	SMTP         *SMTPConfig   `json:"smtp,omitempty"`
	ResendApiKey entity.Secret `json:"resendApiKey"`
	FromEmail    string        `json:"fromEmail"`
	FromName     string        `json:"fromName"`
}

func NewEmailConfigFromContext(ctx echo.Context) (*EmailConfig, error) {
	var body EmailConfig
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.normalize()
	return &body, nil
}

func (r *EmailConfig) normalize() {
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	r.FromEmail = strings.TrimSpace(r.FromEmail)
	r.FromName = sanitizeText(r.FromName)
	if r.SMTP != nil {
		r.SMTP.Host = strings.TrimSpace(r.SMTP.Host)
		r.SMTP.User = strings.TrimSpace(r.SMTP.User)
	}
}

func (r *EmailConfig) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.SMTP != nil && (r.SMTP.Port < 0 || r.SMTP.Port > 65535) {
		return errors.New("smtp.port is out of range")
	}
	return nil
}

func (r *EmailConfig) ToEntity() *entity.EmailSettings {
	settings := &entity.EmailSettings{
		Enabled:      r.Enabled,
		Provider:     r.Provider,
		ResendAPIKey: r.ResendApiKey,
		FromEmail:    r.FromEmail,
		FromName:     r.FromName,
	}
	if r.SMTP != nil {
		settings.SMTP = &entity.SMTPSettings{
			Host:   r.SMTP.Host,
			Port:   r.SMTP.Port,
			Secure: r.SMTP.Secure,
			User:   r.SMTP.User,
			Pass:   r.SMTP.Pass,
		}
	}
	return settings
}

type SendTestEmailRequest struct {
	Config    *EmailConfig `json:"config"`
	TestEmail string       `json:"testEmail"`
}

func NewSendTestEmailRequestFromContext(ctx echo.Context) (*SendTestEmailRequest, error) {
	var body SendTestEmailRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.TestEmail = strings.ToLower(strings.TrimSpace(body.TestEmail))
	if body.Config != nil {
		body.Config.normalize()
	}
	return &body, nil
}

func (r *SendTestEmailRequest) Validate() error {
	if r.TestEmail == "" {
		return errors.New("testEmail is required")
	}
	if r.Config == nil {
		return errors.New("config is required")
	}
	return r.Config.Validate()
}

func (r *SendTestEmailRequest) GetTo() string {
	return r.TestEmail
}

func (r *SendTestEmailRequest) GetSettings() *entity.EmailSettings {
	if r.Config == nil {
		return nil
	}
	return r.Config.ToEntity()
}

type PurchaseLimits struct {
	TrialMaxPerEmail int `json:"trialMaxPerEmail"`
	TrialMaxPerDay   int `json:"trialMaxPerDay"`
}

func NewPurchaseLimitsFromContext(ctx echo.Context) (*PurchaseLimits, error) {
	var body PurchaseLimits
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *PurchaseLimits) Validate() error {
	if r.TrialMaxPerEmail < 0 || r.TrialMaxPerDay < 0 {
		return errors.New("purchase limits must be >= 0")
	}
	return nil
}

func (r *PurchaseLimits) ToEntity() *entity.PurchaseLimits {
	return &entity.PurchaseLimits{
		TrialMaxPerEmail: r.TrialMaxPerEmail,
		TrialMaxPerDay:   r.TrialMaxPerDay,
	}
}

type PaymentConfigResponse struct {
	Config *PaymentConfig `json:"config"`
}

type EmailConfigResponse struct {
	Config *EmailConfig `json:"config"`
}

type PurchaseLimitsResponse struct {
	Limits *PurchaseLimits `json:"limits"`
}

func isHTTPURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}
