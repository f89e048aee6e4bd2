package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

const defaultSMTPPort = 465

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     string
	FromName string
}

type SMTPSender struct {
	cfg    SMTPConfig
	dialer *net.Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port <= 0 {
		cfg.Port = defaultSMTPPort
	}
	return &SMTPSender{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: 15 * time.Second},
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	body, err := buildMIMEMessage(s.cfg.From, s.cfg.FromName, msg, time.Now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	if s.cfg.Secure {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if !s.cfg.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("smtp starttls failed: %w", err)
			}
		}
	}
	if s.cfg.User != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMIMEMessage(from, fromName string, msg *Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	sender := (&mail.Address{Name: fromName, Address: from}).String()
	headers := []string{
		"From: " + sender,
		"To: " + msg.To,
		"Subject: " + mime.BEncoding.Encode("UTF-8", msg.Subject),
		"Date: " + now.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + writer.Boundary(),
	}

	var out bytes.Buffer
	for _, header := range headers {
		out.WriteString(header + "\r\n")
	}
	out.WriteString("\r\n")

	parts := []struct {
		contentType string
		content     string
	}{
		{contentType: "text/plain; charset=UTF-8", content: msg.Text},
		{contentType: "text/html; charset=UTF-8", content: msg.HTML},
	}
	for _, part := range parts {
		if part.content == "" {
			continue
		}
		pw, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}
