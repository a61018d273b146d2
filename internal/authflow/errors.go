package authflow

import "errors"

// Flow errors. Handlers map these onto user-facing responses; none of them
// crash the controller, they only decide whether the flow stays in its
// current step or moves.
var (
	ErrNotFound          = errors.New("identity not found")
	ErrAlreadyExists     = errors.New("identity already exists")
	ErrInvalidProfile    = errors.New("profile is incomplete")
	ErrRateLimited       = errors.New("verification service is under high load, please retry shortly")
	ErrConfiguration     = errors.New("authentication service is not configured")
	ErrBiometricMismatch = errors.New("biometric mismatch")
	ErrOTPInvalid        = errors.New("code is invalid or has expired")
	ErrDeliveryFailure   = errors.New("verification code could not be delivered")
	ErrResendNotAllowed  = errors.New("a code was sent recently, resend is not available yet")
	ErrBusy              = errors.New("a verification is already in progress")
	ErrInvalidState      = errors.New("operation is not valid in the current step")
)
