package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

const defaultFromName = "LunaTV"

type settingsStore interface {
	GetPaymentSettings(ctx context.Context) (*entity.PaymentSettings, error)
	SavePaymentSettings(ctx context.Context, settings *entity.PaymentSettings) error
	GetMembershipConfig(ctx context.Context) (entity.MembershipConfig, error)
	SaveMembershipConfig(ctx context.Context, config entity.MembershipConfig) error
	GetEmailSettings(ctx context.Context) (*entity.EmailSettings, error)
	SaveEmailSettings(ctx context.Context, settings *entity.EmailSettings) error
	GetPurchaseLimits(ctx context.Context) (*entity.PurchaseLimits, error)
	SavePurchaseLimits(ctx context.Context, limits *entity.PurchaseLimits) error
}

// SettingsService owns the operator-editable configuration documents and
// their defaults.
type SettingsService struct {
	store    settingsStore
	emailEnv config.EmailConfig
}

func NewSettingsService(store settingsStore, emailEnv config.EmailConfig) *SettingsService {
	return &SettingsService{store: store, emailEnv: emailEnv}
}

func (s *SettingsService) PaymentSettings(ctx context.Context) (*entity.PaymentSettings, error) {
	settings, err := s.store.GetPaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return entity.DefaultPaymentSettings(), nil
	}
	return settings, nil
}

func (s *SettingsService) SavePaymentSettings(ctx context.Context, settings *entity.PaymentSettings) (*entity.PaymentSettings, error) {
	if settings == nil {
		return nil, ErrInvalidRequest
	}
	switch settings.Method {
	case entity.PaymentMethodXorPayWechat, entity.PaymentMethodXorPayAlipay,
		entity.PaymentMethodWechatOfficial, entity.PaymentMethodAlipayOfficial:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, settings.Method)
	}
	for _, method := range settings.EnabledMethods {
		if method != entity.XorPayMethodWechat && method != entity.XorPayMethodAlipay {
			return nil, fmt.Errorf("%w: unknown payment channel %q", ErrInvalidRequest, method)
		}
	}

	stored, err := s.store.GetPaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings.ResolveSecrets(stored)

	if settings.Enabled {
		if err := validatePaymentCredentials(settings); err != nil {
			return nil, err
		}
	}

	if err := s.store.SavePaymentSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validatePaymentCredentials(settings *entity.PaymentSettings) error {
	switch settings.Method {
	case entity.PaymentMethodWechatOfficial:
		c := settings.WechatOfficial
		if c == nil || c.AppID == "" || c.MchID == "" || !c.APIKey.IsSet() {
			return fmt.Errorf("%w: wechat official configuration is incomplete", ErrInvalidRequest)
		}
	case entity.PaymentMethodAlipayOfficial:
		c := settings.AlipayOfficial
		if c == nil || c.AppID == "" || !c.PrivateKey.IsSet() || c.PublicKey == "" {
			return fmt.Errorf("%w: alipay official configuration is incomplete", ErrInvalidRequest)
		}
	default:
		c := settings.XorPay
		if c == nil || c.AppID == "" || !c.AppSecret.IsSet() {
			return fmt.Errorf("%w: xorpay configuration is incomplete", ErrInvalidRequest)
		}
	}
	return nil
}

// MembershipConfig returns the stored tiers laid over the defaults.
func (s *SettingsService) MembershipConfig(ctx context.Context) (entity.MembershipConfig, error) {
	stored, err := s.store.GetMembershipConfig(ctx)
	if err != nil {
		return nil, err
	}
	return entity.DefaultMembershipConfig().Merge(stored), nil
}

func (s *SettingsService) SaveMembershipConfig(ctx context.Context, cfg entity.MembershipConfig) (entity.MembershipConfig, error) {
	for _, membershipType := range entity.MembershipTypes {
		tier, ok := cfg[membershipType]
		if !ok {
			return nil, fmt.Errorf("%w: missing membership type %s", ErrInvalidRequest, membershipType)
		}
		if strings.TrimSpace(tier.Name) == "" {
			return nil, fmt.Errorf("%w: %s name is required", ErrInvalidRequest, membershipType)
		}
		if tier.Price.IsNegative() || tier.Duration < 0 {
			return nil, fmt.Errorf("%w: %s price and duration must not be negative", ErrInvalidRequest, membershipType)
		}
		if tier.DiscountPrice != nil && tier.DiscountPrice.IsNegative() {
			return nil, fmt.Errorf("%w: %s discount price must not be negative", ErrInvalidRequest, membershipType)
		}
		if tier.Discount != nil && (*tier.Discount < 0 || *tier.Discount > 100) {
			return nil, fmt.Errorf("%w: %s discount must be between 0 and 100", ErrInvalidRequest, membershipType)
		}
	}
	for key := range cfg {
		if !entity.IsMembershipType(key) {
			return nil, fmt.Errorf("%w: unknown membership type %s", ErrInvalidRequest, key)
		}
	}

	if err := s.store.SaveMembershipConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return entity.DefaultMembershipConfig().Merge(cfg), nil
}

func (s *SettingsService) PurchaseLimits(ctx context.Context) (*entity.PurchaseLimits, error) {
	limits, err := s.store.GetPurchaseLimits(ctx)
	if err != nil {
		return nil, err
	}
	if limits == nil {
		return entity.DefaultPurchaseLimits(), nil
	}
	return limits, nil
}

func (s *SettingsService) SavePurchaseLimits(ctx context.Context, limits *entity.PurchaseLimits) (*entity.PurchaseLimits, error) {
	if limits == nil || limits.TrialMaxPerEmail < 0 || limits.TrialMaxPerDay < 0 {
		return nil, fmt.Errorf("%w: limits must not be negative", ErrInvalidRequest)
	}
	if err := s.store.SavePurchaseLimits(ctx, limits); err != nil {
		return nil, err
	}
	return limits, nil
}

// EmailSettings returns what an operator should see: the stored document,
// then the environment fallback, then the defaults.
func (s *SettingsService) EmailSettings(ctx context.Context) (*entity.EmailSettings, error) {
	stored, err := s.store.GetEmailSettings(ctx)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	if env := s.envEmailSettings(); env != nil {
		return env, nil
	}
	return entity.DefaultEmailSettings(), nil
}

// ActiveEmailSettings returns the settings mail is sent with, or nil when
// delivery is off.
func (s *SettingsService) ActiveEmailSettings(ctx context.Context) (*entity.EmailSettings, error) {
	stored, err := s.store.GetEmailSettings(ctx)
	if err != nil {
		return nil, err
	}
	if stored != nil && stored.Enabled {
		return stored, nil
	}
	return s.envEmailSettings(), nil
}

func (s *SettingsService) SaveEmailSettings(ctx context.Context, settings *entity.EmailSettings) (*entity.EmailSettings, error) {
	if settings == nil {
		return nil, ErrInvalidRequest
	}
	resolved, err := s.ResolveEmailSettings(ctx, settings)
	if err != nil {
		return nil, err
	}

	switch resolved.Provider {
	case entity.EmailProviderSMTP:
		resolved.ResendAPIKey = entity.Secret{}
		if resolved.SMTP == nil {
			resolved.SMTP = &entity.SMTPSettings{}
		}
		if resolved.SMTP.Port <= 0 {
			resolved.SMTP.Port = 465
		}
	case entity.EmailProviderResend:
		resolved.SMTP = nil
	default:
		return nil, fmt.Errorf("%w: unknown email provider %q", ErrInvalidRequest, resolved.Provider)
	}
	if strings.TrimSpace(resolved.FromName) == "" {
		resolved.FromName = defaultFromName
	}

	if resolved.Enabled {
		if !emailPattern.MatchString(resolved.FromEmail) {
			return nil, fmt.Errorf("%w: sender address is invalid", ErrInvalidRequest)
		}
		if resolved.Provider == entity.EmailProviderSMTP && strings.TrimSpace(resolved.SMTP.Host) == "" {
			return nil, fmt.Errorf("%w: smtp host is required", ErrInvalidRequest)
		}
		if resolved.Provider == entity.EmailProviderResend && !resolved.ResendAPIKey.IsSet() {
			return nil, fmt.Errorf("%w: resend api key is required", ErrInvalidRequest)
		}
	}

	if err := s.store.SaveEmailSettings(ctx, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// ResolveEmailSettings swaps echoed secret placeholders for the stored values.
func (s *SettingsService) ResolveEmailSettings(ctx context.Context, candidate *entity.EmailSettings) (*entity.EmailSettings, error) {
	stored, err := s.store.GetEmailSettings(ctx)
	if err != nil {
		return nil, err
	}
	resolved := *candidate
	if candidate.SMTP != nil {
		smtp := *candidate.SMTP
		resolved.SMTP = &smtp
	}
	resolved.ResolveSecrets(stored)
	return &resolved, nil
}

func (s *SettingsService) envEmailSettings() *entity.EmailSettings {
	env := s.emailEnv
	fromName := env.FromName
	if fromName == "" {
		fromName = defaultFromName
	}

	if env.ResendAPIKey != "" {
		fromEmail := env.FromEmail
		if fromEmail == "" {
			fromEmail = "noreply@example.com"
		}
		return &entity.EmailSettings{
			Enabled:      true,
			Provider:     entity.EmailProviderResend,
			ResendAPIKey: entity.NewSecret(env.ResendAPIKey),
			FromEmail:    fromEmail,
			FromName:     fromName,
		}
	}

	if env.SMTPHost != "" && env.SMTPUser != "" && env.SMTPPass != "" {
		fromEmail := env.FromEmail
		if fromEmail == "" {
			fromEmail = env.SMTPUser
		}
		port := env.SMTPPort
		if port <= 0 {
			port = 465
		}
		return &entity.EmailSettings{
			Enabled:  true,
			Provider: entity.EmailProviderSMTP,
			SMTP: &entity.SMTPSettings{
				Host:   env.SMTPHost,
				Port:   port,
				Secure: env.SMTPSecure,
				User:   env.SMTPUser,
				Pass:   entity.NewSecret(env.SMTPPass),
			},
			FromEmail: fromEmail,
			FromName:  fromName,
		}
	}

	return nil
}
