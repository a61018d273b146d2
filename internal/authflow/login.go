package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/secureface/secureface/internal/biometric"
	"github.com/secureface/secureface/internal/store"
)

// LoginStep is the login flow phase.
type LoginStep string

const (
	StepIdentifying   LoginStep = "identifying"
	StepScanning      LoginStep = "scanning"
	StepAwaitingOTP   LoginStep = "awaitingOtp"
	StepAuthenticated LoginStep = "authenticated"
	StepLoginRejected LoginStep = "rejected"
)

// Login drives identifying -> scanning -> awaitingOtp -> authenticated.
// pendingUser is set from scanning onward and cleared the moment the OTP
// succeeds, so authenticated-without-currentUser is unrepresentable.
type Login struct {
	deps Deps

	mu          sync.Mutex
	step        LoginStep
	pendingUser *store.UserRecord
	currentUser *store.UserRecord
	expiresAt   time.Time
	errShowing  bool
	inFlight    bool
	message     string
}

func NewLogin(deps Deps) *Login {
	return &Login{
		deps: deps.withDefaults(),
		step: StepIdentifying,
	}
}

func (l *Login) Step() LoginStep {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.step
}

func (l *Login) Message() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.message
}

// CurrentUser is non-nil only once the flow is authenticated.
func (l *Login) CurrentUser() *store.UserRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentUser
}

// Identify looks up the claimed identity and advances to scanning.
func (l *Login) Identify(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.step != StepIdentifying {
		return ErrInvalidState
	}

	rec, err := l.deps.Identities.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up identity: %w", err)
	}
	if rec == nil {
		return ErrNotFound
	}

	l.pendingUser = rec
	l.step = StepScanning
	l.message = ""
	return nil
}

// SubmitScan verifies one capture sample against the stored reference. On a
// pass it issues an OTP and notifies the user; delivery failure downgrades
// the message but still advances to awaitingOtp. A sample arriving while a
// verification is outstanding is ignored.
func (l *Login) SubmitScan(ctx context.Context, sample []byte) error {
	l.mu.Lock()
	if l.step != StepScanning {
		l.mu.Unlock()
		return ErrInvalidState
	}
	if l.inFlight {
		l.mu.Unlock()
		return ErrBusy
	}
	l.inFlight = true
	reference := l.pendingUser.FaceReference
	l.mu.Unlock()

	res, err := l.deps.Verifier.Verify(ctx, sample, reference)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false

	if err != nil {
		l.step = StepLoginRejected
		l.message = "Authentication service is unavailable. Contact the administrator."
		if errors.Is(err, biometric.ErrNotConfigured) {
			l.deps.Logf("CONFIGURATION ERROR: biometric backend unavailable: %v", err)
			return ErrConfiguration
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if res.RateLimited {
		l.errShowing = true
		l.message = "High load on the verification service. Scanning will retry shortly."
		return ErrRateLimited
	}

	pol := l.deps.Policy.Biometric
	if !res.Success || res.MatchScore < pol.MatchThreshold || res.LivenessScore < pol.LivenessThreshold {
		l.errShowing = true
		l.message = mismatchMessage(res.Explanation)
		return fmt.Errorf("%w: %s", ErrBiometricMismatch, l.message)
	}

	return l.dispatchCodeLocked(ctx)
}

// dispatchCodeLocked issues a fresh code and invokes the notifier. Callers
// hold l.mu.
func (l *Login) dispatchCodeLocked(ctx context.Context) error {
	email := l.pendingUser.Email
	pending, err := l.deps.OTPs.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to issue code: %w", err)
	}
	l.expiresAt = pending.ExpiresAt
	l.errShowing = false
	l.step = StepAwaitingOTP

	validFor := l.deps.Policy.OTP.TTL()
	if err := l.deps.Notifier.SendOTP(ctx, email, l.pendingUser.Name, pending.Code, validFor); err != nil {
		// Mandatory fallback channel: the code must stay obtainable.
		l.deps.Logf("OTP delivery to %s failed: %v", email, err)
		l.deps.Logf("DEBUG OTP for %s: %s", email, pending.Code)
		l.message = "Face verified, but the code could not be delivered. Check with your administrator."
		return ErrDeliveryFailure
	}

	l.message = "Verification code sent to " + maskEmail(email) + "."
	return nil
}

// SubmitOTP consumes the pending code and authenticates the session.
func (l *Login) SubmitOTP(ctx context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.step != StepAwaitingOTP {
		return ErrInvalidState
	}

	ok, err := l.deps.OTPs.Verify(ctx, l.pendingUser.Email, code)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		l.errShowing = true
		l.message = "The code is invalid or has expired."
		return ErrOTPInvalid
	}

	l.currentUser = l.pendingUser
	l.pendingUser = nil
	l.step = StepAuthenticated
	l.errShowing = false
	l.message = "Welcome, " + l.currentUser.Name + "."
	return nil
}

// Resend re-issues the code. It is gated: allowed only when the current
// code is inside the resend window or an error is showing, so a user cannot
// hammer the notifier right after a fresh code went out.
func (l *Login) Resend(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.step != StepAwaitingOTP {
		return ErrInvalidState
	}
	if l.remainingLocked() > l.deps.Policy.OTP.ResendWindow() && !l.errShowing {
		return ErrResendNotAllowed
	}
	return l.dispatchCodeLocked(ctx)
}

// Remaining is the time left on the current code, floored at zero.
func (l *Login) Remaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remainingLocked()
}

func (l *Login) remainingLocked() time.Duration {
	d := l.expiresAt.Sub(l.deps.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Snapshot is the presentation view of the flow.
type Snapshot struct {
	Step             LoginStep `json:"step"`
	Authenticated    bool      `json:"authenticated"`
	MaskedEmail      string    `json:"maskedEmail,omitempty"`
	UserName         string    `json:"userName,omitempty"`
	RemainingSeconds int       `json:"remainingSeconds,omitempty"`
	ResendAllowed    bool      `json:"resendAllowed,omitempty"`
	Message          string    `json:"message,omitempty"`
}

func (l *Login) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Step:          l.step,
		Authenticated: l.step == StepAuthenticated,
		Message:       l.message,
	}
	if l.pendingUser != nil {
		snap.MaskedEmail = maskEmail(l.pendingUser.Email)
	}
	if l.step == StepAwaitingOTP {
		snap.RemainingSeconds = int(l.remainingLocked().Seconds())
		snap.ResendAllowed = l.remainingLocked() <= l.deps.Policy.OTP.ResendWindow() || l.errShowing
	}
	if l.currentUser != nil {
		snap.UserName = l.currentUser.Name
		snap.MaskedEmail = maskEmail(l.currentUser.Email)
	}
	return snap
}
