// Package mail sends the service's transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/duynhne/user-auth/config"
	"github.com/duynhne/user-auth/internal/core/domain"
	"github.com/duynhne/user-auth/internal/logger"
)

// ResetPasswordSubject is the subject line of the password reset email.
const ResetPasswordSubject = "Change password"

var resetPasswordTmpl = template.Must(template.New("reset").Parse(
	`<a href="{{.Link}}">reset password</a>`,
))

// ResetPasswordLink returns the frontend URL that accepts token.
func ResetPasswordLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/change-password/" + token
}

// ResetPasswordEmail renders the HTML body of the password reset email.
func ResetPasswordEmail(baseURL, token string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Link string }{Link: ResetPasswordLink(baseURL, token)}
	if err := resetPasswordTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one HTML message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.cfg.Host, err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// LogMailer writes messages to the log instead of sending them.
// It stands in for SMTP in local development.
type LogMailer struct{}

// NewLogMailer creates a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send logs the message at debug level.
func (LogMailer) Send(ctx context.Context, to, subject, html string) error {
	logger.FromContext(ctx).Debug().
		Str("to", to).
		Str("subject", subject).
		Str("html", html).
		Time("queued_at", time.Now()).
		Msg("Mail preview")
	return nil
}

// New returns an SMTPMailer when an SMTP host is configured and a LogMailer otherwise.
func New(cfg config.SMTPConfig) domain.Mailer {
	if cfg.Host == "" {
		return NewLogMailer()
	}
	return NewSMTPMailer(cfg)
}
