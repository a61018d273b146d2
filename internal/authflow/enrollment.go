package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/secureface/secureface/internal/biometric"
	"github.com/secureface/secureface/internal/store"
)

// EnrollmentStep is the enrollment flow phase.
type EnrollmentStep string

const (
	StepCollectingProfile EnrollmentStep = "collectingProfile"
	StepCapturingFace     EnrollmentStep = "capturingFace"
	StepEnrolled          EnrollmentStep = "enrolled"
	StepEnrollmentRejected EnrollmentStep = "rejected"
)

// Profile is the data collected before face capture.
type Profile struct {
	Name  string
	Email string
	Phone string
	PIN   string
}

// Enrollment drives collectingProfile -> capturingFace -> enrolled|rejected.
type Enrollment struct {
	deps Deps

	mu       sync.Mutex
	step     EnrollmentStep
	profile  Profile
	record   *store.UserRecord
	inFlight bool
	message  string
}

func NewEnrollment(deps Deps) *Enrollment {
	return &Enrollment{
		deps: deps.withDefaults(),
		step: StepCollectingProfile,
	}
}

func (e *Enrollment) Step() EnrollmentStep {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Message returns the last user-facing status line.
func (e *Enrollment) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// Record returns the persisted record once the flow reached enrolled.
func (e *Enrollment) Record() *store.UserRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

// SubmitProfile checks for a duplicate identity and advances to face
// capture. On any failure the flow stays in collectingProfile.
func (e *Enrollment) SubmitProfile(ctx context.Context, p Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.step != StepCollectingProfile {
		return ErrInvalidState
	}
	if p.Name == "" || p.Email == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalidProfile)
	}

	existing, err := e.deps.Identities.FindByEmail(ctx, p.Email)
	if err != nil {
		return fmt.Errorf("failed to check identity: %w", err)
	}
	if existing != nil {
		return ErrAlreadyExists
	}

	e.profile = p
	e.step = StepCapturingFace
	e.message = ""
	return nil
}

// SubmitCapture runs the liveness check on one sample and, on success,
// persists the profile with the sample as the stored face reference. A
// second capture while one verification is outstanding is ignored.
func (e *Enrollment) SubmitCapture(ctx context.Context, sample []byte) error {
	e.mu.Lock()
	if e.step != StepCapturingFace {
		e.mu.Unlock()
		return ErrInvalidState
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	e.inFlight = true
	e.mu.Unlock()

	res, err := e.deps.Verifier.Verify(ctx, sample, nil)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false

	if err != nil {
		e.step = StepEnrollmentRejected
		e.message = "Authentication service is unavailable. Contact the administrator."
		if errors.Is(err, biometric.ErrNotConfigured) {
			e.deps.Logf("CONFIGURATION ERROR: biometric backend unavailable: %v", err)
			return ErrConfiguration
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if res.RateLimited {
		e.message = "High load on the verification service. Please try again in a moment."
		return ErrRateLimited
	}
	if !res.Success || res.LivenessScore < e.deps.Policy.Biometric.LivenessThreshold {
		e.message = mismatchMessage(res.Explanation)
		return fmt.Errorf("%w: %s", ErrBiometricMismatch, e.message)
	}

	rec := &store.UserRecord{
		ID:            uuid.NewString(),
		Name:          e.profile.Name,
		Email:         e.profile.Email,
		Phone:         e.profile.Phone,
		PIN:           e.profile.PIN,
		FaceReference: sample,
		EnrolledAt:    e.deps.Now().UTC(),
	}
	if err := e.deps.Identities.Register(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			e.step = StepEnrollmentRejected
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to persist enrollment: %w", err)
	}

	e.record = rec
	e.step = StepEnrolled
	e.message = "Identity enrolled. You can now sign in."
	return nil
}
