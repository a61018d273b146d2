// Package store holds the persistence contracts for enrolled identities and
// pending one-time codes, plus the in-memory implementations used by default.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

var (
	// ErrNotFound is returned when a key has no record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when registering a duplicate identity.
	ErrAlreadyExists = errors.New("identity already exists")
)

// KV is a minimal keyed store. Implementations must be safe for concurrent
// use; a single-writer-per-key model is assumed by callers.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// UserRecord is an enrolled identity. Records are immutable after
// enrollment; there is no update or delete path.
type UserRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PIN           string    `json:"pin"`
	FaceReference []byte    `json:"face_reference"` // JPEG capture sample
	EnrolledAt    time.Time `json:"enrolled_at"`
}

// PendingOTP is an outstanding one-time code. At most one exists per email.
type PendingOTP struct {
	OwnerEmail string    `json:"owner_email"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expires_at"`
}

var emailFolder = cases.Fold()

// NormalizeEmail lowercases an email address using full Unicode case
// folding so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
