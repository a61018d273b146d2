package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fixedClock returns a controllable clock starting at a fixed instant.
func fixedClock(start time.Time) (func() time.Time, func(d time.Duration)) {
	current := start
	now := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return now, advance
}

// scriptedSource returns canned codes or errors.
type scriptedSource struct {
	code string
	err  error
}

func (s *scriptedSource) GenerateCode(ctx context.Context, recipient string) (string, error) {
	return s.code, s.err
}

func newTestOTPStore(source CodeSource) (*OTPStore, func(d time.Duration)) {
	s := NewOTPStore(NewMemoryKV(), source, 120*time.Second)
	now, advance := fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.Now = now
	return s, advance
}

func TestOTPStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestOTPStore(nil)

	pending, err := s.Issue(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !ValidCode(pending.Code) {
		t.Fatalf("Issue() code = %q, want six digits", pending.Code)
	}

	ok, err := s.Verify(ctx, "alice@example.com", pending.Code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Fatal("Verify() = false with correct code")
	}

	// Replay of a consumed code must fail.
	ok, err = s.Verify(ctx, "alice@example.com", pending.Code)
	if err != nil {
		t.Fatalf("Verify() replay error = %v", err)
	}
	if ok {
		t.Error("Verify() replay = true, want false")
	}
}

func TestOTPStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, advance := newTestOTPStore(nil)

	pending, _ := s.Issue(ctx, "alice@example.com")

	// Exactly at expiry the code is still valid (now <= expiresAt).
	advance(120 * time.Second)
	ok, _ := s.Verify(ctx, "alice@example.com", pending.Code)
	if !ok {
		t.Error("Verify() at expiry boundary = false, want true")
	}

	pending, _ = s.Issue(ctx, "alice@example.com")
	advance(121 * time.Second)
	ok, _ = s.Verify(ctx, "alice@example.com", pending.Code)
	if ok {
		t.Error("Verify() past expiry = true, want false")
	}
}

func TestOTPStore_ReissueInvalidatesPrevious(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestOTPStore(nil)

	first, _ := s.Issue(ctx, "alice@example.com")
	second, _ := s.Issue(ctx, "alice@example.com")

	if ok, _ := s.Verify(ctx, "alice@example.com", first.Code); ok && first.Code != second.Code {
		t.Error("old code verified after reissue")
	}
	if ok, _ := s.Verify(ctx, "alice@example.com", second.Code); !ok {
		t.Error("new code failed verification")
	}
}

func TestOTPStore_MismatchLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestOTPStore(nil)

	pending, _ := s.Issue(ctx, "alice@example.com")

	wrong := "000000"
	if wrong == pending.Code {
		wrong = "000001"
	}
	if ok, _ := s.Verify(ctx, "alice@example.com", wrong); ok {
		t.Fatal("Verify() with wrong code = true")
	}

	// The correct code must still work after a mismatch.
	if ok, _ := s.Verify(ctx, "alice@example.com", pending.Code); !ok {
		t.Error("Verify() after mismatch = false, want true")
	}
}

func TestOTPStore_UnknownEmail(t *testing.T) {
	s, _ := newTestOTPStore(nil)
	ok, err := s.Verify(context.Background(), "nobody@example.com", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("Verify() for unknown email = true")
	}
}

func TestOTPStore_PerEmailNamespace(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestOTPStore(nil)

	a, _ := s.Issue(ctx, "alice@example.com")
	b, _ := s.Issue(ctx, "bob@example.com")

	if ok, _ := s.Verify(ctx, "alice@example.com", a.Code); !ok {
		t.Error("alice's code rejected")
	}
	// Issuing for bob must not have touched alice's record and vice versa.
	if ok, _ := s.Verify(ctx, "bob@example.com", b.Code); !ok {
		t.Error("bob's code rejected")
	}
}

func TestOTPStore_ExternalSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		source   CodeSource
		wantCode string // empty means any locally generated six digits
	}{
		{"valid code with leading zero", &scriptedSource{code: "001234"}, "001234"},
		{"too short", &scriptedSource{code: "12345"}, ""},
		{"non-numeric", &scriptedSource{code: "12a456"}, ""},
		{"too long", &scriptedSource{code: "1234567"}, ""},
		{"source error", &scriptedSource{err: errors.New("unavailable")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestOTPStore(tt.source)
			pending, err := s.Issue(ctx, "alice@example.com")
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if tt.wantCode != "" && pending.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", pending.Code, tt.wantCode)
			}
			if !ValidCode(pending.Code) {
				t.Errorf("code = %q, want six digits from fallback", pending.Code)
			}
		})
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"000000", true},
		{"123456", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidCode(tt.code); got != tt.want {
			t.Errorf("ValidCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestRandomCode_Format(t *testing.T) {
	for range 100 {
		code := RandomCode()
		if !ValidCode(code) {
			t.Fatalf("RandomCode() = %q, want six digits", code)
		}
	}
}
