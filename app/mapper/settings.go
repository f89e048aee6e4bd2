package mapper

import (
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

// Secrets are carried as entity.Secret and serialize masked.

func PaymentSettingsToResponse(settings *entity.PaymentSettings) *types.PaymentConfig {
	if settings == nil {
		return nil
	}

	out := &types.PaymentConfig{
		Enabled:        settings.Enabled,
		Method:         settings.Method,
		EnabledMethods: settings.PublicMethods(),
	}
	if c := settings.XorPay; c != nil {
		out.XorPay = &types.XorPayConfig{AppId: c.AppID, AppSecret: c.AppSecret, NotifyUrl: c.NotifyURL}
	}
	if c := settings.WechatOfficial; c != nil {
		out.WechatOfficial = &types.WechatOfficialConfig{AppId: c.AppID, MchId: c.MchID, ApiKey: c.APIKey, NotifyUrl: c.NotifyURL}
	}
	if c := settings.AlipayOfficial; c != nil {
		out.AlipayOfficial = &types.AlipayOfficialConfig{AppId: c.AppID, PrivateKey: c.PrivateKey, PublicKey: c.PublicKey, NotifyUrl: c.NotifyURL}
	}
	return out
}

func PaymentStatusToResponse(settings *entity.PaymentSettings) *types.PaymentStatusResponse {
	if settings == nil || !settings.Enabled {
		return &types.PaymentStatusResponse{Enabled: false, EnabledMethods: []string{}}
	}
	return &types.PaymentStatusResponse{Enabled: true, EnabledMethods: settings.PublicMethods()}
}

func EmailSettingsToResponse(settings *entity.EmailSettings) *types.EmailConfig {
	if settings == nil {
		return nil
	}

	out := &types.EmailConfig{
		Enabled:      settings.Enabled,
		Provider:     settings.Provider,
		ResendApiKey: settings.ResendAPIKey,
		FromEmail:    settings.FromEmail,
		FromName:     settings.FromName,
	}
	if s := settings.SMTP; s != nil {
		out.SMTP = &types.SMTPConfig{Host: s.Host, Port: s.Port, Secure: s.Secure, User: s.User, Pass: s.Pass}
	}
	return out
}

func PurchaseLimitsToResponse(limits *entity.PurchaseLimits) *types.PurchaseLimits {
	if limits == nil {
		return nil
	}
	return &types.PurchaseLimits{
		TrialMaxPerEmail: limits.TrialMaxPerEmail,
		TrialMaxPerDay:   limits.TrialMaxPerDay,
	}
}
