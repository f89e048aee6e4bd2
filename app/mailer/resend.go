package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

type ResendConfig struct {
	APIKey   string
	From     string
	Endpoint string
}

type ResendSender struct {
	cfg    ResendConfig
	client *http.Client
}

func NewResendSender(cfg ResendConfig, client *http.Client) *ResendSender {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultResendEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ResendSender{cfg: cfg, client: client}
}

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(&resendPayload{
		From:    s.cfg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend returned status=%d body=%s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
