package mailer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

var (
	ErrNotConfigured       = errors.New("email delivery is not configured")
	ErrProviderUnsupported = errors.New("email provider is not supported")
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender builds the transport selected by settings.
func NewSender(settings *entity.EmailSettings, client *http.Client) (Sender, error) {
	if settings == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(settings.FromEmail) == "" {
		return nil, ErrNotConfigured
	}

	switch settings.Provider {
	case entity.EmailProviderSMTP:
		if settings.SMTP == nil || strings.TrimSpace(settings.SMTP.Host) == "" {
			return nil, ErrNotConfigured
		}
		return NewSMTPSender(SMTPConfig{
			Host:     settings.SMTP.Host,
			Port:     settings.SMTP.Port,
			Secure:   settings.SMTP.Secure,
			User:     settings.SMTP.User,
			Password: settings.SMTP.Pass.Reveal(),
			From:     settings.FromEmail,
			FromName: settings.FromName,
		}), nil
	case entity.EmailProviderResend:
		if !settings.ResendAPIKey.IsSet() {
			return nil, ErrNotConfigured
		}
		return NewResendSender(ResendConfig{
			APIKey: settings.ResendAPIKey.Reveal(),
			From:   settings.FromAddress(),
		}, client), nil
	default:
		return nil, ErrProviderUnsupported
	}
}
