// internal/delivery/smtp.go
package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	From     string
}

// SMTPMailer sends through a plain SMTP relay, the fallback provider for
// environments without SES access.
type SMTPMailer struct {
	config SMTPConfig
	logger logger.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig, log logger.Logger) *SMTPMailer {
	m := &SMTPMailer{config: cfg, logger: log}
	m.sendMail = smtp.SendMail
	if cfg.UseTLS {
		m.sendMail = m.sendWithTLS
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ValidateAddress(msg.To); err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}
	if err := ctx.Err(); err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	raw := buildMIME(m.config.From, msg)
	if err := m.sendMail(addr, auth, m.config.From, []string{msg.To}, raw); err != nil {
		return "", errors.NewDeliverySendFailedError(msg.To, err)
	}

	messageID := fmt.Sprintf("<%s.%d@%s>", uuid.New().String(), time.Now().Unix(), m.config.Host)
	m.logger.Debug("email accepted by SMTP relay", map[string]interface{}{
		"to":        msg.To,
		"messageId": messageID,
	})
	return messageID, nil
}

// buildMIME assembles the raw RFC 5322 message both the SMTP relay and
// the SES raw path hand to the wire.
func buildMIME(from string, msg Message) []byte {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	if msg.ToName != "" {
		builder.WriteString(fmt.Sprintf("To: %s <%s>\r\n", msg.ToName, msg.To))
	} else {
		builder.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	}
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	for k, v := range msg.Headers {
		builder.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(msg.Body)

	return []byte(builder.String())
}

func (m *SMTPMailer) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, raw []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
		return fmt.Errorf("start TLS: %w", err)
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
