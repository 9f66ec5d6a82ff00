// Package notify alerts moderators about reviews that need attention.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	mail "github.com/go-mail/mail/v2"

	"github.com/tbourn/go-review-backend/internal/config"
	"github.com/tbourn/go-review-backend/internal/domain"
)

// Notifier is told about every auto-flagged review.
type Notifier interface {
	ReviewFlagged(ctx context.Context, kind domain.SubjectKind, reviewID string, reasons []string) error
}

// Noop discards notifications.
type Noop struct{}

func (Noop) ReviewFlagged(context.Context, domain.SubjectKind, string, []string) error { return nil }

// sender is satisfied by *mail.Dialer.
type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTP e-mails the configured moderator addresses.
type SMTP struct {
	From   string
	To     []string
	sender sender
}

// New returns an SMTP notifier when cfg.Host is set and Noop otherwise.
func New(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" {
		return Noop{}
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &SMTP{From: cfg.From, To: cfg.To, sender: d}
}

// ReviewFlagged sends one plain-text message listing the flag reasons. The
// author is never included.
func (s *SMTP) ReviewFlagged(ctx context.Context, kind domain.SubjectKind, reviewID string, reasons []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", fmt.Sprintf("[moderation] %s review %s was auto-flagged", kind, reviewID))
	m.SetBody("text/plain", body(kind, reviewID, reasons))

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	return nil
}

func body(kind domain.SubjectKind, reviewID string, reasons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s review was held for moderation.\n\n", kind)
	fmt.Fprintf(&b, "Review: %s\n", reviewID)
	b.WriteString("Reasons:\n")
	for _, r := range reasons {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}
