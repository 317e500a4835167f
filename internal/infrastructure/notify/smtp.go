// Package notify provides delivery backends for the domain notify contract.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"inventra/internal/domain/notify"
	"inventra/pkg/logger"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers notifications by email.
// Recipients that are not email addresses are skipped, not errored:
// delivery is best-effort and the caller never retries.
type SMTPNotifier struct {
	cfg  SMTPConfig
	auth smtp.Auth

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ notify.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates an SMTP-backed notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{
		cfg:      cfg,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// Send delivers a single notification.
func (n *SMTPNotifier) Send(ctx context.Context, msg notify.Message) error {
	if !strings.Contains(msg.Recipient, "@") {
		logger.Debug(ctx, "notification recipient is not an email, skipping",
			"kind", msg.Kind,
			"recipient", msg.Recipient,
		)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	body := buildMail(n.cfg.From, msg)

	if err := n.sendMail(addr, n.auth, n.cfg.From, []string{msg.Recipient}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logger.Debug(ctx, "notification sent",
		"kind", msg.Kind,
		"recipient", msg.Recipient,
	)
	return nil
}

// buildMail renders a plain-text RFC 5322 message.
func buildMail(from string, msg notify.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Notification: %s\r\n", msg.Kind)

	if len(msg.Data) > 0 {
		b.WriteString("\r\n")
		keys := make([]string, 0, len(msg.Data))
		for k := range msg.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\r\n", k, msg.Data[k])
		}
	}

	return []byte(b.String())
}
