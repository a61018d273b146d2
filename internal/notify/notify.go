// Package notify delivers one-time passcodes to users. Delivery is best
// effort from the flow's point of view: the caller decides what to do when
// it fails.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Notifier sends a one-time passcode to a recipient.
type Notifier interface {
	SendOTP(ctx context.Context, email, name, code string, validFor time.Duration) error
}

func renderSubject() string {
	return "Your SecureFace verification code"
}

func renderBody(name, code string, validFor time.Duration) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	return fmt.Sprintf(
		"%s,\r\n\r\nYour verification code is: %s\r\n\r\nIt expires in %d seconds. If you did not request this code, ignore this message.\r\n",
		greeting, code, int(validFor.Seconds()),
	)
}
