// Package notify sends best-effort operational alerts that are
// independent of call handling: the agent rendezvous when
// it finds zero available agents, and the registry when a reload
// fails. Delivery failures here never affect a call in progress — the
// caller always treats Notify errors as log-and-continue.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/rakunlabs/ivrflow/internal/config"
)

// Notifier sends an alert with the given subject/body to the
// configured operator addresses. Implements agent.Notifier.
type Notifier struct {
	cfg config.Notify
}

// New creates a Notifier from the process's Notify config. A nil SMTP
// section or empty To list is valid: Notify becomes a no-op.
func New(cfg config.Notify) *Notifier {
	return &Notifier{cfg: cfg}
}

// Notify sends subject/body to every configured recipient over SMTP.
// Returns nil immediately if no SMTP server or recipients are
// configured, so callers can hold an always-non-nil *Notifier.
func (n *Notifier) Notify(ctx context.Context, subject, body string) error {
	if n.cfg.SMTP == nil || len(n.cfg.To) == 0 {
		return nil
	}

	sc := n.cfg.SMTP

	m := mail.NewMsg()
	if err := m.From(sc.From); err != nil {
		return fmt.Errorf("notify: set from: %w", err)
	}
	if err := m.To(n.cfg.To...); err != nil {
		return fmt.Errorf("notify: set to: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.ContentType("text/plain"), body)

	opts := []mail.Option{
		mail.WithPort(sc.Port),
		mail.WithTimeout(10 * time.Second),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         sc.Host,
			InsecureSkipVerify: sc.InsecureSkipVerify, //nolint:gosec // explicit opt-in, self-signed staging SMTP relays
		}),
	}

	if sc.Username != "" || sc.Password != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(sc.Username), mail.WithPassword(sc.Password))
	}

	c, err := mail.NewClient(sc.Host, opts...)
	if err != nil {
		return fmt.Errorf("notify: create smtp client: %w", err)
	}

	if err := c.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}

	return nil
}
