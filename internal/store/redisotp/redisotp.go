// Package redisotp provides a Redis-backed pending OTP store. The Redis TTL
// mirrors the code expiry so abandoned codes evict themselves.
package redisotp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/secureface/secureface/internal/store"
)

const keyPrefix = "secureface:otp:"

// Store keeps at most one pending code per email in Redis.
type Store struct {
	client *redis.Client
	source store.CodeSource // optional
	ttl    time.Duration

	// Now is the clock used for expiry stamps. Tests override it.
	Now func() time.Time
}

// New creates a Store from an already-connected client.
func New(client *redis.Client, source store.CodeSource, ttl time.Duration) *Store {
	return &Store{
		client: client,
		source: source,
		ttl:    ttl,
		Now:    time.Now,
	}
}

// Connect dials Redis from a URL and verifies the connection.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(email string) string {
	return keyPrefix + store.NormalizeEmail(email)
}

// Issue generates a fresh six-digit code and replaces any pending one.
func (s *Store) Issue(ctx context.Context, email string) (*store.PendingOTP, error) {
	code := s.generateCode(ctx, email)

	pending := &store.PendingOTP{
		OwnerEmail: store.NormalizeEmail(email),
		Code:       code,
		ExpiresAt:  s.Now().Add(s.ttl),
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal pending otp: %w", err)
	}
	if err := s.client.Set(ctx, key(email), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store pending otp: %w", err)
	}
	return pending, nil
}

// Verify checks the submitted code and consumes the record on success.
func (s *Store) Verify(ctx context.Context, email, submitted string) (bool, error) {
	data, err := s.client.Get(ctx, key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pending otp: %w", err)
	}

	var pending store.PendingOTP
	if err := json.Unmarshal(data, &pending); err != nil {
		return false, fmt.Errorf("unmarshal pending otp: %w", err)
	}

	if s.Now().After(pending.ExpiresAt) {
		return false, nil
	}
	if submitted != pending.Code {
		return false, nil
	}

	if err := s.client.Del(ctx, key(email)).Err(); err != nil {
		return false, fmt.Errorf("consume pending otp: %w", err)
	}
	return true, nil
}

func (s *Store) generateCode(ctx context.Context, email string) string {
	if s.source != nil {
		code, err := s.source.GenerateCode(ctx, email)
		if err == nil && store.ValidCode(code) {
			return code
		}
	}
	return store.RandomCode()
}
