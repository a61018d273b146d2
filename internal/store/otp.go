package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const otpKeyPrefix = "otp:"

// CodeSource generates one-time codes from an external capability (e.g. an
// AI model). Its output is never trusted: anything that is not exactly six
// digits triggers the local fallback generator.
type CodeSource interface {
	GenerateCode(ctx context.Context, recipient string) (string, error)
}

// OTPStore keeps at most one pending one-time code per email, with expiry.
type OTPStore struct {
	kv     KV
	source CodeSource // optional
	ttl    time.Duration

	// Now is the clock used for expiry checks. Tests override it.
	Now func() time.Time
}

func NewOTPStore(kv KV, source CodeSource, ttl time.Duration) *OTPStore {
	return &OTPStore{
		kv:     kv,
		source: source,
		ttl:    ttl,
		Now:    time.Now,
	}
}

// Issue generates a fresh six-digit code for the email and replaces any
// previously pending code. The code keeps leading zeros.
func (s *OTPStore) Issue(ctx context.Context, email string) (*PendingOTP, error) {
	code := s.generateCode(ctx, email)

	pending := &PendingOTP{
		OwnerEmail: NormalizeEmail(email),
		Code:       code,
		ExpiresAt:  s.Now().Add(s.ttl),
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal pending otp: %w", err)
	}
	if err := s.kv.Put(ctx, otpKeyPrefix+pending.OwnerEmail, data); err != nil {
		return nil, fmt.Errorf("store pending otp: %w", err)
	}
	return pending, nil
}

// Verify checks the submitted code against the pending record. On success
// the record is consumed so the same code cannot be replayed. On failure
// (no record, expired, mismatch) the record is left untouched; expired
// records are evicted lazily by the next Issue.
func (s *OTPStore) Verify(ctx context.Context, email, submitted string) (bool, error) {
	data, err := s.kv.Get(ctx, otpKeyPrefix+NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pending otp: %w", err)
	}

	var pending PendingOTP
	if err := json.Unmarshal(data, &pending); err != nil {
		return false, fmt.Errorf("unmarshal pending otp: %w", err)
	}

	if s.Now().After(pending.ExpiresAt) {
		return false, nil
	}
	if submitted != pending.Code {
		return false, nil
	}

	if err := s.kv.Delete(ctx, otpKeyPrefix+pending.OwnerEmail); err != nil {
		return false, fmt.Errorf("consume pending otp: %w", err)
	}
	return true, nil
}

// generateCode consults the external source first and falls back to the
// local CSPRNG when the source is unavailable or returns malformed output.
func (s *OTPStore) generateCode(ctx context.Context, email string) string {
	if s.source != nil {
		code, err := s.source.GenerateCode(ctx, email)
		if err == nil && ValidCode(code) {
			return code
		}
	}
	return RandomCode()
}

// ValidCode reports whether a string is exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RandomCode returns a uniformly distributed six-digit code with leading
// zeros preserved.
func RandomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand never fails on supported platforms.
		panic("otp: crypto/rand unavailable: " + err.Error())
	}
	return fmt.Sprintf("%06d", n)
}
