package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/nazarhussain/portfolio-contact/internal/config"
)

// SMTPSender relays through an SMTP server. Port 465 uses implicit TLS;
// anything else upgrades with STARTTLS when the server offers it.
type SMTPSender struct {
	addr   string
	host   string
	auth   smtp.Auth
	secure bool

	// deliver is swapped in tests.
	deliver func(e *email.Email) error
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		addr:   cfg.Addr(),
		host:   cfg.Host,
		auth:   smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host),
		secure: cfg.Secure(),
	}
	s.deliver = s.dial
	return s
}

// Send hands m to the relay. The SMTP exchange itself cannot be interrupted,
// so when ctx ends first Send returns and the exchange finishes in the
// background.
func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	e := toEmail(m)

	errc := make(chan error, 1)
	go func() {
		errc <- s.deliver(e)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s: %w", s.addr, ctx.Err())
	}
}

func (s *SMTPSender) dial(e *email.Email) error {
	if s.secure {
		return e.SendWithTLS(s.addr, s.auth, &tls.Config{ServerName: s.host})
	}
	return e.Send(s.addr, s.auth)
}

func toEmail(m *Message) *email.Email {
	e := email.NewEmail()
	e.From = m.From
	e.To = []string{m.To}
	if m.ReplyTo != "" {
		e.ReplyTo = []string{m.ReplyTo}
	}
	e.Subject = m.Subject
	e.Text = []byte(m.Text)
	e.HTML = []byte(m.HTML)
	return e
}
