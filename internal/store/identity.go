package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const userKeyPrefix = "user:"

// IdentityStore persists enrolled user records keyed by normalized email.
type IdentityStore struct {
	kv KV
}

func NewIdentityStore(kv KV) *IdentityStore {
	return &IdentityStore{kv: kv}
}

// FindByEmail looks up a record case-insensitively. Returns (nil, nil) when
// the email is unknown; an unknown email is not an error.
func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	data, err := s.kv.Get(ctx, userKeyPrefix+NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	var record UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal user record: %w", err)
	}
	return &record, nil
}

// Register appends a new record. A record with the same normalized email
// must not already exist; callers are expected to check FindByEmail first,
// but the store rejects duplicates as well.
func (s *IdentityStore) Register(ctx context.Context, record *UserRecord) error {
	key := userKeyPrefix + NormalizeEmail(record.Email)

	if _, err := s.kv.Get(ctx, key); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store user record: %w", err)
	}
	return nil
}
