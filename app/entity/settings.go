package entity

import "strings"

const (
	XorPayMethodWechat = "wechat"
	XorPayMethodAlipay = "alipay"
)

const (
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
)

type XorPayCredentials struct {
	AppID     string
	AppSecret Secret
	NotifyURL string
}

type WechatOfficialCredentials struct {
	AppID     string
	MchID     string
	APIKey    Secret
	NotifyURL string
}

type AlipayOfficialCredentials struct {
	AppID      string
	PrivateKey Secret
	PublicKey  string
	NotifyURL  string
}

type PaymentSettings struct {
	Enabled        bool
	Method         string
	EnabledMethods []string

	XorPay         *XorPayCredentials
	WechatOfficial *WechatOfficialCredentials
	AlipayOfficial *AlipayOfficialCredentials
}

func DefaultPaymentSettings() *PaymentSettings {
	return &PaymentSettings{
		Enabled: false,
		Method:  PaymentMethodXorPayWechat,
	}
}

// PublicMethods returns the xorpay channels offered to buyers.
func (s *PaymentSettings) PublicMethods() []string {
	if len(s.EnabledMethods) > 0 {
		return append([]string(nil), s.EnabledMethods...)
	}
	switch s.Method {
	case PaymentMethodXorPayAlipay:
		return []string{XorPayMethodAlipay}
	case PaymentMethodXorPayWechat:
		return []string{XorPayMethodWechat}
	default:
		return []string{}
	}
}

// ResolveSecrets replaces echoed placeholders with the previously stored
// secrets. A placeholder with nothing stored behind it resolves to empty.
func (s *PaymentSettings) ResolveSecrets(stored *PaymentSettings) {
	if stored == nil {
		stored = &PaymentSettings{}
	}
	if s.XorPay != nil {
		var previous Secret
		if stored.XorPay != nil {
			previous = stored.XorPay.AppSecret
		}
		s.XorPay.AppSecret = s.XorPay.AppSecret.Resolve(previous)
	}
	if s.WechatOfficial != nil {
		var previous Secret
		if stored.WechatOfficial != nil {
			previous = stored.WechatOfficial.APIKey
		}
		s.WechatOfficial.APIKey = s.WechatOfficial.APIKey.Resolve(previous)
	}
	if s.AlipayOfficial != nil {
		var previous Secret
		if stored.AlipayOfficial != nil {
			previous = stored.AlipayOfficial.PrivateKey
		}
		s.AlipayOfficial.PrivateKey = s.AlipayOfficial.PrivateKey.Resolve(previous)
	}
}

type SMTPSettings struct {
	Host   string
	Port   int
	Secure bool
	User   string
	Pass   Secret
}

type EmailSettings struct {
	Enabled      bool
	Provider     string
	SMTP         *SMTPSettings
	ResendAPIKey Secret
	FromEmail    string
	FromName     string
}

func DefaultEmailSettings() *EmailSettings {
	return &EmailSettings{
		Enabled:  false,
		Provider: EmailProviderSMTP,
		SMTP:     &SMTPSettings{Port: 465, Secure: true},
		FromName: "LunaTV",
	}
}

func (s *EmailSettings) ResolveSecrets(stored *EmailSettings) {
	if stored == nil {
		stored = &EmailSettings{}
	}
	s.ResendAPIKey = s.ResendAPIKey.Resolve(stored.ResendAPIKey)
	if s.SMTP != nil {
		var previous Secret
		if stored.SMTP != nil {
			previous = stored.SMTP.Pass
		}
		s.SMTP.Pass = s.SMTP.Pass.Resolve(previous)
	}
}

// FromAddress renders "Name <email>" or the bare address.
func (s *EmailSettings) FromAddress() string {
	name := strings.TrimSpace(s.FromName)
	if name == "" {
		return s.FromEmail
	}
	return name + " <" + s.FromEmail + ">"
}

type PurchaseLimits struct {
	TrialMaxPerEmail int
	TrialMaxPerDay   int
}

func DefaultPurchaseLimits() *PurchaseLimits {
	return &PurchaseLimits{
		TrialMaxPerEmail: 1,
		TrialMaxPerDay:   100,
	}
}
