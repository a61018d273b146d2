package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/secureface/secureface/internal/config"
)

// SMTPNotifier delivers codes over plain SMTP.
type SMTPNotifier struct {
	host     string
	port     string
	from     string
	username string
	password string

	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, email, name, code string, validFor time.Duration) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, email, renderSubject(), renderBody(name, code, validFor),
	)
	addr := fmt.Sprintf("%s:%s", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := n.send(addr, auth, n.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}
