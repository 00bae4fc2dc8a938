// internal/notifier/mailer.go
package notifier

import (
	"context"
	"fmt"
	"time"

	"biblios/internal/settings"

	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// Mailer is the outbound mail transport. Sends are best-effort
// network calls with their own timeout; they never run inside a data
// transaction.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

const sendTimeout = 15 * time.Second

// smtpMailer delivers through SMTP with STARTTLS. Outbound volume is
// rate limited so a large sweep cannot trip the provider.
type smtpMailer struct {
	cfg     settings.EmailConfig
	limiter *rate.Limiter
}

// NewSMTPMailer builds a Mailer from the email settings.
func NewSMTPMailer(cfg settings.EmailConfig) Mailer {
	return &smtpMailer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.User == "" {
		return fmt.Errorf("email is not configured")
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.SenderName, m.cfg.User); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to build smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
