package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/mailer"
)

type emailSettingsSource interface {
	ActiveEmailSettings(ctx context.Context) (*entity.EmailSettings, error)
	ResolveEmailSettings(ctx context.Context, candidate *entity.EmailSettings) (*entity.EmailSettings, error)
}

type sendTestEmailRequest interface {
	GetTo() string
	GetSettings() *entity.EmailSettings
}

// EmailService renders and delivers transactional mail with whatever
// transport the current settings select.
type EmailService struct {
	settings  emailSettingsSource
	siteName  string
	newSender func(settings *entity.EmailSettings) (mailer.Sender, error)
	now       func() time.Time
}

func NewEmailService(settings emailSettingsSource, siteName string, client *http.Client) *EmailService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &EmailService{
		settings: settings,
		siteName: siteName,
		newSender: func(settings *entity.EmailSettings) (mailer.Sender, error) {
			return mailer.NewSender(settings, client)
		},
		now: time.Now,
	}
}

// SendInviteCode mails a purchased code to the buyer.
func (s *EmailService) SendInviteCode(ctx context.Context, to, code, membershipName string) error {
	settings, err := s.settings.ActiveEmailSettings(ctx)
	if err != nil {
		return err
	}
	if settings == nil {
		return ErrEmailNotConfigured
	}

	sender, err := s.sender(settings)
	if err != nil {
		return err
	}
	msg, err := mailer.InviteCodeMessage(to, s.siteName, code, membershipName, s.now().Year())
	if err != nil {
		return err
	}
	return sender.Send(ctx, msg)
}

// SendTest delivers a test message with a candidate configuration that has
// not necessarily been saved.
func (s *EmailService) SendTest(ctx context.Context, req sendTestEmailRequest) error {
	to := strings.ToLower(strings.TrimSpace(req.GetTo()))
	if !emailPattern.MatchString(to) {
		return ErrInvalidEmail
	}
	if req.GetSettings() == nil {
		return ErrInvalidRequest
	}

	settings, err := s.settings.ResolveEmailSettings(ctx, req.GetSettings())
	if err != nil {
		return err
	}
	sender, err := s.sender(settings)
	if err != nil {
		return err
	}

	smtpHost, smtpPort := "", 0
	if settings.Provider == entity.EmailProviderSMTP && settings.SMTP != nil {
		smtpHost, smtpPort = settings.SMTP.Host, settings.SMTP.Port
	}
	msg, err := mailer.TestMessage(to, settings.Provider, settings.FromName, settings.FromEmail, smtpHost, smtpPort)
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	return nil
}

func (s *EmailService) sender(settings *entity.EmailSettings) (mailer.Sender, error) {
	sender, err := s.newSender(settings)
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) || errors.Is(err, mailer.ErrProviderUnsupported) {
			return nil, fmt.Errorf("%w: %v", ErrEmailNotConfigured, err)
		}
		return nil, err
	}
	return sender, nil
}
