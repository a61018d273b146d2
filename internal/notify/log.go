package notify

import (
	"context"
	"log"
	"time"
)

// LogNotifier prints codes to the process log instead of delivering them.
// Used in development when no SMTP server is configured.
type LogNotifier struct {
	// Logf defaults to log.Printf.
	Logf func(format string, v ...any)
}

func (n *LogNotifier) SendOTP(ctx context.Context, email, name, code string, validFor time.Duration) error {
	logf := n.Logf
	if logf == nil {
		logf = log.Printf
	}
	logf("DEV NOTIFIER: OTP for %s is %s (valid %ds)", email, code, int(validFor.Seconds()))
	return nil
}
