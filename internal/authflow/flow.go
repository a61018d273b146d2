// Package authflow implements the enrollment and login state machines. The
// controllers orchestrate the identity store, biometric verifier, OTP store
// and notifier; they hold no goroutines of their own and are safe for the
// one-caller-at-a-time access pattern of a browser session.
package authflow

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/secureface/secureface/internal/biometric"
	"github.com/secureface/secureface/internal/config"
	"github.com/secureface/secureface/internal/notify"
	"github.com/secureface/secureface/internal/store"
)

// Identities is the identity store contract both flows depend on. Satisfied
// by store.IdentityStore and postgres.UserRepository.
type Identities interface {
	FindByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	Register(ctx context.Context, rec *store.UserRecord) error
}

// OTPs is the pending code contract. Satisfied by store.OTPStore and
// redisotp.Store.
type OTPs interface {
	Issue(ctx context.Context, email string) (*store.PendingOTP, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

// Deps bundles the collaborators shared by both flows.
type Deps struct {
	Identities Identities
	OTPs       OTPs
	Verifier   biometric.Verifier
	Notifier   notify.Notifier
	Policy     config.PolicyConfig

	// Logf defaults to log.Printf. The debug OTP fallback and loud
	// configuration errors go through it.
	Logf func(format string, v ...any)
	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logf == nil {
		d.Logf = log.Printf
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// maskEmail hides most of the local part so the OTP step can confirm the
// destination without echoing the full address.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	keep := 3
	if len(local) < keep {
		keep = 1
	}
	return local[:keep] + "***" + email[at:]
}

const genericMismatchMessage = "Could not verify a live face. Ensure good lighting and that you are not holding up a photo."

func mismatchMessage(explanation string) string {
	if explanation == "" {
		return genericMismatchMessage
	}
	return explanation
}
